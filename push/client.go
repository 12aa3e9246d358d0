package push

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KOMKZ/go-dashsync/logger"
	"github.com/KOMKZ/go-dashsync/retry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Phase 连接状态机阶段
type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseConnecting   Phase = "connecting"
	PhaseOpen         Phase = "open"
	PhaseBackoff      Phase = "backoff"
)

// ConnState 连接状态（推送客户端独占所有权）
type ConnState struct {
	Phase   Phase
	Attempt int
	LastErr error
}

// Handler 事件处理函数
// 在读取协程上按到达顺序逐个调用，不重排、不去重
type Handler func(Event)

// Client 推送事件客户端
//
// 状态机：
//
//	disconnected --Activate--> connecting
//	connecting --建流成功--> open（attempt 归零）
//	connecting --失败--> backoff
//	open --流错误/关闭--> backoff
//	backoff --定时器到期--> connecting
//	任意状态 --Deactivate--> disconnected
//
// 退避序列 min(base·2^(attempt-1), cap)：1s, 2s, 4s, 8s, 16s, 30s...
// 连续失败超过 MaxAttempts 次后进入终态 disconnected，
// 不再自动重连，需调用 Reconnect 手动恢复
type Client struct {
	config    *Config
	transport Transport
	handler   Handler
	logger    *logger.CtxZapLogger
	metrics   *OTelPushMetrics
	backoff   retry.BackoffStrategy
	onPaused  func()

	// sleep 退避等待（测试注入假时钟）
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	state   ConnState
	cancel  context.CancelFunc
	active  bool
	done    chan struct{}
	dropped int64
}

// ClientOption 客户端选项
type ClientOption func(*Client)

// WithLogger 注入日志
func WithLogger(l *logger.CtxZapLogger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithMetrics 注入 OTel 指标
func WithMetrics(m *OTelPushMetrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithOnPaused 设置重连耗尽回调（"更新已暂停"指示）
func WithOnPaused(fn func()) ClientOption {
	return func(c *Client) { c.onPaused = fn }
}

// WithSleeper 注入退避等待实现（测试用）
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(c *Client) { c.sleep = fn }
}

// NewClient 创建推送客户端
func NewClient(cfg *Config, transport Transport, handler Handler, opts ...ClientOption) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()

	c := &Client{
		config:    cfg,
		transport: transport,
		handler:   handler,
		state:     ConnState{Phase: PhaseDisconnected},
		backoff:   retry.ExponentialBackoff(cfg.BackoffBase, retry.WithMaxDelay(cfg.BackoffCap)),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.sleep == nil {
		c.sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return c
}

// Activate 激活客户端，开始维护长连接
func (c *Client) Activate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return ErrAlreadyActive
	}

	c.active = true
	c.state = ConnState{Phase: PhaseConnecting}

	// 连接生命周期与调用方 ctx 解耦，由 Deactivate 控制
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(runCtx, c.done)
	return nil
}

// Deactivate 停用客户端：取消挂起的重连定时器，关闭活跃连接
func (c *Client) Deactivate() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	if done != nil {
		<-done
	}

	c.mu.Lock()
	c.state = ConnState{Phase: PhaseDisconnected}
	c.mu.Unlock()
}

// Reconnect 从重连耗尽的终态手动恢复
func (c *Client) Reconnect(ctx context.Context) error {
	c.Deactivate()
	return c.Activate(ctx)
}

// State 返回连接状态快照
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DroppedFrames 累计丢弃的非法帧数
func (c *Client) DroppedFrames() int64 {
	return atomic.LoadInt64(&c.dropped)
}

// run 连接维护主循环
func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		c.setPhase(PhaseConnecting)
		stream, err := c.transport.Open(ctx)

		if err == nil {
			connID := uuid.NewString()

			c.mu.Lock()
			c.state = ConnState{Phase: PhaseOpen} // attempt 归零
			c.mu.Unlock()

			if c.metrics != nil {
				c.metrics.RecordConnect(ctx)
			}
			if c.logger != nil {
				c.logger.InfoCtx(ctx, "事件流已建立", zap.String("conn_id", connID))
			}

			// ctx 取消时关流，解除 Recv 阻塞
			stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
			err = c.readLoop(ctx, stream, connID)
			stop()
			_ = stream.Close()

			if ctx.Err() != nil {
				return
			}
			if c.metrics != nil {
				c.metrics.RecordDisconnect(ctx)
			}
			if c.logger != nil {
				c.logger.WarnCtx(ctx, "事件流断开", zap.String("conn_id", connID), zap.Error(err))
			}
		}

		if ctx.Err() != nil {
			return
		}

		// 失败处理：计数、判断终态、调度退避重连
		c.mu.Lock()
		c.state.Attempt++
		c.state.LastErr = err
		attempt := c.state.Attempt

		if attempt > c.config.MaxAttempts {
			c.state.Phase = PhaseDisconnected
			c.state.LastErr = ErrMaxAttemptsReached.Wrap(err)
			c.active = false
			cancel := c.cancel
			c.mu.Unlock()
			cancel()

			if c.logger != nil {
				c.logger.Error("重连次数耗尽，推送暂停",
					zap.Int("attempts", attempt-1),
					zap.Error(err))
			}
			if c.onPaused != nil {
				c.onPaused()
			}
			return
		}

		c.state.Phase = PhaseBackoff
		c.mu.Unlock()

		delay := c.backoff.Next(attempt)
		if c.logger != nil {
			c.logger.Warn("连接失败，退避后重连",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		}

		if c.sleep(ctx, delay) != nil {
			return
		}
	}
}

// readLoop 读取并分发事件，直到流错误或 ctx 取消
func (c *Client) readLoop(ctx context.Context, stream Stream, connID string) error {
	for {
		raw, err := stream.Recv()
		if err != nil {
			// 服务端静默断开与显式错误同等对待
			return err
		}

		ev, perr := ParseEvent(raw)
		if perr != nil {
			atomic.AddInt64(&c.dropped, 1)
			if c.metrics != nil {
				c.metrics.RecordDropped(ctx)
			}
			if c.logger != nil {
				c.logger.Warn("丢弃非法推送帧",
					zap.String("conn_id", connID),
					zap.Error(perr))
			}
			continue
		}

		if c.metrics != nil {
			c.metrics.RecordEvent(ctx, ev.Type)
		}

		if ev.KeepAlive() {
			continue
		}

		if c.handler != nil {
			c.handler(ev)
		}
	}
}

func (c *Client) setPhase(p Phase) {
	c.mu.Lock()
	c.state.Phase = p
	c.mu.Unlock()
}
