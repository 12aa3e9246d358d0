package push

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transportFunc func(ctx context.Context) (Stream, error)

func (f transportFunc) Open(ctx context.Context) (Stream, error) { return f(ctx) }

// fakeStream 预填帧，读完返回 io.EOF；Close 解除阻塞中的 Recv
type fakeStream struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeStream(frames ...string) *fakeStream {
	s := &fakeStream{
		frames: make(chan []byte, len(frames)),
		closed: make(chan struct{}),
	}
	for _, f := range frames {
		s.frames <- []byte(f)
	}
	close(s.frames)
	return s
}

// newBlockingStream 返回永不产出帧的流，模拟空闲长连接
func newBlockingStream() *fakeStream {
	return &fakeStream{
		frames: make(chan []byte),
		closed: make(chan struct{}),
	}
}

func (s *fakeStream) Recv() ([]byte, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	case <-s.closed:
		return nil, io.EOF
	}
}

func (s *fakeStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// delayRecorder 记录退避延迟并立即放行
type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *delayRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *delayRecorder) snapshot() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func waitPaused(t *testing.T, paused <-chan struct{}) {
	t.Helper()
	select {
	case <-paused:
	case <-time.After(2 * time.Second):
		t.Fatal("客户端未进入重连耗尽终态")
	}
}

func TestClient_BackoffSequence(t *testing.T) {
	var opens int32
	rec := &delayRecorder{}
	paused := make(chan struct{})

	tr := transportFunc(func(ctx context.Context) (Stream, error) {
		atomic.AddInt32(&opens, 1)
		return nil, errors.New("connection refused")
	})

	c := NewClient(&Config{}, tr, nil,
		WithSleeper(rec.sleep),
		WithOnPaused(func() { close(paused) }),
	)
	require.NoError(t, c.Activate(context.Background()))
	waitPaused(t, paused)

	// 前 5 次失败各调度一次重连：1s 2s 4s 8s 16s，第 6 次失败进入终态
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, rec.snapshot())
	assert.EqualValues(t, 6, atomic.LoadInt32(&opens))

	st := c.State()
	assert.Equal(t, PhaseDisconnected, st.Phase)
	assert.ErrorIs(t, st.LastErr, ErrMaxAttemptsReached)
}

func TestClient_BackoffCap(t *testing.T) {
	rec := &delayRecorder{}
	paused := make(chan struct{})

	tr := transportFunc(func(ctx context.Context) (Stream, error) {
		return nil, errors.New("connection refused")
	})

	c := NewClient(&Config{BackoffBase: 10 * time.Second, MaxAttempts: 4}, tr, nil,
		WithSleeper(rec.sleep),
		WithOnPaused(func() { close(paused) }),
	)
	require.NoError(t, c.Activate(context.Background()))
	waitPaused(t, paused)

	// 10 20 40→30 80→30：不超过 BackoffCap
	assert.Equal(t, []time.Duration{
		10 * time.Second,
		20 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}, rec.snapshot())
}

func TestClient_AttemptResetOnOpen(t *testing.T) {
	var opens int32
	rec := &delayRecorder{}
	paused := make(chan struct{})

	// 第 3 次建流成功但立即断开，其余全部失败
	tr := transportFunc(func(ctx context.Context) (Stream, error) {
		if atomic.AddInt32(&opens, 1) == 3 {
			return newFakeStream(), nil
		}
		return nil, errors.New("connection refused")
	})

	c := NewClient(&Config{}, tr, nil,
		WithSleeper(rec.sleep),
		WithOnPaused(func() { close(paused) }),
	)
	require.NoError(t, c.Activate(context.Background()))
	waitPaused(t, paused)

	// 建流成功后失败计数归零，退避从头开始
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, rec.snapshot())
}

func TestClient_DeliversEventsInOrder(t *testing.T) {
	var (
		mu     sync.Mutex
		got    []Event
		opened int32
	)

	tr := transportFunc(func(ctx context.Context) (Stream, error) {
		if atomic.AddInt32(&opened, 1) == 1 {
			return newFakeStream(
				`{"type": "connected", "data": null}`,
				`{"type": "task_updated", "data": {"entity_type": "task", "entity_id": "123", "action": "updated"}}`,
				`broken frame`,
				`{"type": "ping"}`,
				`{"type": "risk_deleted", "data": {"entity_type": "risk", "entity_id": "9", "action": "deleted"}}`,
			), nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})

	c := NewClient(&Config{}, tr, func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})
	require.NoError(t, c.Activate(context.Background()))
	defer c.Deactivate()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	// 保活帧跳过、坏帧丢弃，业务事件按到达顺序交付
	assert.Equal(t, "task_updated", got[0].Type)
	assert.Equal(t, "123", got[0].EntityID)
	assert.Equal(t, "risk_deleted", got[1].Type)
	assert.Equal(t, "9", got[1].EntityID)
	assert.EqualValues(t, 1, c.DroppedFrames())
}

func TestClient_DeactivateCancelsBackoff(t *testing.T) {
	inBackoff := make(chan struct{}, 1)

	tr := transportFunc(func(ctx context.Context) (Stream, error) {
		return nil, errors.New("connection refused")
	})

	c := NewClient(&Config{}, tr, nil,
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			select {
			case inBackoff <- struct{}{}:
			default:
			}
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	require.NoError(t, c.Activate(context.Background()))

	select {
	case <-inBackoff:
	case <-time.After(2 * time.Second):
		t.Fatal("未进入退避等待")
	}

	// Deactivate 取消挂起的重连定时器并同步等待主循环退出
	c.Deactivate()
	assert.Equal(t, PhaseDisconnected, c.State().Phase)
}

func TestClient_ActivateTwice(t *testing.T) {
	tr := transportFunc(func(ctx context.Context) (Stream, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	c := NewClient(&Config{}, tr, nil)
	require.NoError(t, c.Activate(context.Background()))
	defer c.Deactivate()

	assert.ErrorIs(t, c.Activate(context.Background()), ErrAlreadyActive)
}

func TestClient_ReconnectAfterExhaustion(t *testing.T) {
	var healthy atomic.Bool
	paused := make(chan struct{})

	tr := transportFunc(func(ctx context.Context) (Stream, error) {
		if healthy.Load() {
			return newBlockingStream(), nil
		}
		return nil, errors.New("connection refused")
	})

	c := NewClient(&Config{}, tr, nil,
		WithSleeper(func(ctx context.Context, d time.Duration) error { return ctx.Err() }),
		WithOnPaused(func() { close(paused) }),
	)
	require.NoError(t, c.Activate(context.Background()))
	waitPaused(t, paused)
	assert.Equal(t, PhaseDisconnected, c.State().Phase)

	// 终态后不再自动重连，手动 Reconnect 从零恢复
	healthy.Store(true)
	require.NoError(t, c.Reconnect(context.Background()))
	defer c.Deactivate()

	require.Eventually(t, func() bool {
		return c.State().Phase == PhaseOpen
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, c.State().Attempt)
}
