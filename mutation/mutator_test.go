package mutation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KOMKZ/go-dashsync/cache"
	"github.com/KOMKZ/go-dashsync/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errServerRejected = errors.New("server rejected")

func newStoreWithTaskList(t *testing.T) (*cache.Store, cache.Key) {
	t.Helper()
	s := cache.NewStore(&cache.Config{
		StaleAfter:       time.Minute,
		FetchBackoffBase: time.Millisecond,
	})
	t.Cleanup(s.Close)

	key := cache.ListKey(entity.KindTask, nil)
	s.Ensure(context.Background(), key, func(ctx context.Context) (any, error) {
		return entity.Page{
			Items: []entity.Item{
				{"task_id": "t1", "status": entity.TaskStatusNotStarted},
				{"task_id": "t2", "status": entity.TaskStatusDone},
			},
			Total: 2,
		}, nil
	}, cache.Options{})

	require.Eventually(t, func() bool {
		e, ok := s.Read(key)
		return ok && e.Status == cache.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)

	return s, key
}

func taskStatus(t *testing.T, s *cache.Store, key cache.Key, id string) string {
	t.Helper()
	e, ok := s.Read(key)
	require.True(t, ok)
	for _, item := range e.Data.(entity.Page).Items {
		if item["task_id"] == id {
			return item["status"].(string)
		}
	}
	t.Fatalf("task %s 不在列表中", id)
	return ""
}

func TestMutate_OptimisticStatusCycle(t *testing.T) {
	s, key := newStoreWithTaskList(t)
	m := NewMutator(s)

	serverCalled := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = m.Mutate(context.Background(), []cache.Key{key},
			ReplaceItem(entity.KindTask, "t1", func(item entity.Item) {
				item["status"] = entity.NextTaskStatus(item["status"].(string))
			}),
			func(ctx context.Context) (any, error) {
				close(serverCalled)
				<-release
				return entity.Item{"task_id": "t1", "status": entity.TaskStatusInProgress}, nil
			})
	}()

	// 网络响应前缓存已显示新状态
	<-serverCalled
	assert.Equal(t, entity.TaskStatusInProgress, taskStatus(t, s, key, "t1"))
	close(release)
}

func TestMutate_RollbackOnFailure(t *testing.T) {
	s, key := newStoreWithTaskList(t)
	m := NewMutator(s)

	before, _ := s.Read(key)

	_, err := m.Mutate(context.Background(), []cache.Key{key},
		ReplaceItem(entity.KindTask, "t1", func(item entity.Item) {
			item["status"] = entity.TaskStatusInProgress
		}),
		func(ctx context.Context) (any, error) {
			// 服务端拒绝时缓存中已是补丁值
			assert.Equal(t, entity.TaskStatusInProgress, taskStatus(t, s, key, "t1"))
			return nil, errServerRejected
		})

	require.ErrorIs(t, err, errServerRejected)

	// 回滚后与变更前结构相等
	after, _ := s.Read(key)
	assert.Equal(t, before.Data, after.Data)
	assert.Equal(t, entity.TaskStatusNotStarted, taskStatus(t, s, key, "t1"))
}

func TestMutate_DeletionConsistency(t *testing.T) {
	s := cache.NewStore(&cache.Config{StaleAfter: time.Minute, FetchBackoffBase: time.Millisecond})
	defer s.Close()

	key := cache.ListKey(entity.KindRisk, nil)
	items := make([]entity.Item, 0, 12)
	for _, id := range []string{"r1", "r2", "r3", "r4", "r5", "r6", "r7", "r8", "r9", "r10", "r11", "r12"} {
		items = append(items, entity.Item{"risk_id": id, "risk_level": entity.RiskLevelLow})
	}
	s.Ensure(context.Background(), key, func(ctx context.Context) (any, error) {
		return entity.Page{Items: items, Total: 12}, nil
	}, cache.Options{})
	require.Eventually(t, func() bool {
		e, ok := s.Read(key)
		return ok && e.Status == cache.StatusSuccess
	}, 2*time.Second, 5*time.Millisecond)

	m := NewMutator(s)

	hasRisk := func(id string) bool {
		e, _ := s.Read(key)
		for _, item := range e.Data.(entity.Page).Items {
			if item["risk_id"] == id {
				return true
			}
		}
		return false
	}
	total := func() int {
		e, _ := s.Read(key)
		return e.Data.(entity.Page).Total
	}

	// 服务端拒绝：r1 恢复，total 回到 12
	_, err := m.Mutate(context.Background(), []cache.Key{key},
		RemoveItem(entity.KindRisk, "r1"),
		func(ctx context.Context) (any, error) {
			assert.False(t, hasRisk("r1"))
			assert.Equal(t, 11, total())
			return nil, errServerRejected
		})
	require.Error(t, err)
	assert.True(t, hasRisk("r1"))
	assert.Equal(t, 12, total())

	// 服务端确认：不再有进一步变化
	_, err = m.Mutate(context.Background(), []cache.Key{key},
		RemoveItem(entity.KindRisk, "r1"),
		func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)
	assert.False(t, hasRisk("r1"))
	assert.Equal(t, 11, total())
}

func TestMutate_RollbackIdempotence(t *testing.T) {
	s, key := newStoreWithTaskList(t)
	detail := cache.DetailKey(entity.KindTask, "t1")
	s.Put(detail, entity.Item{"task_id": "t1", "status": entity.TaskStatusNotStarted})

	m := NewMutator(s)
	targets := []cache.Key{key, detail}

	beforeList, _ := s.Read(key)
	beforeDetail, _ := s.Read(detail)

	_, err := m.Mutate(context.Background(), targets,
		ReplaceItem(entity.KindTask, "t1", func(item entity.Item) {
			item["status"] = entity.TaskStatusInProgress
		}),
		func(ctx context.Context) (any, error) { return nil, errServerRejected })
	require.Error(t, err)

	afterList, _ := s.Read(key)
	afterDetail, _ := s.Read(detail)
	assert.Equal(t, beforeList.Data, afterList.Data)
	assert.Equal(t, beforeDetail.Data, afterDetail.Data)
}

func TestMutate_SuccessReplacesDetailWithAuthoritative(t *testing.T) {
	s, listKey := newStoreWithTaskList(t)
	detail := cache.DetailKey(entity.KindTask, "t1")
	s.Put(detail, entity.Item{"task_id": "t1", "status": entity.TaskStatusNotStarted})

	m := NewMutator(s)

	authoritative := entity.Item{
		"task_id":  "t1",
		"status":   entity.TaskStatusInProgress,
		"priority": "HIGH", // 服务端侧写的字段
	}

	_, err := m.Mutate(context.Background(), []cache.Key{listKey, detail},
		ReplaceItem(entity.KindTask, "t1", func(item entity.Item) {
			item["status"] = entity.TaskStatusInProgress
		}),
		func(ctx context.Context) (any, error) { return authoritative, nil })
	require.NoError(t, err)

	e, ok := s.Read(detail)
	require.True(t, ok)
	assert.Equal(t, "HIGH", e.Data.(entity.Item)["priority"])

	// 列表键被标记后台失效（数据保留渲染）
	require.Eventually(t, func() bool {
		e, _ := s.Read(listKey)
		return e.FetchedAt.IsZero()
	}, 2*time.Second, 5*time.Millisecond)
	e, _ = s.Read(listKey)
	assert.Equal(t, entity.TaskStatusInProgress, taskStatus(t, s, listKey, "t1"))
}

func TestMutate_LaterSnapshotSurvivesItsOwnRollback(t *testing.T) {
	s, key := newStoreWithTaskList(t)
	m := NewMutator(s)

	// 变更 A 成功推进 t1
	_, err := m.Mutate(context.Background(), []cache.Key{key},
		ReplaceItem(entity.KindTask, "t1", func(item entity.Item) {
			item["status"] = entity.TaskStatusInProgress
		}),
		func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)

	// 变更 B 的快照在 A 的补丁之后捕获：B 回滚不会抹掉 A 的结果
	_, err = m.Mutate(context.Background(), []cache.Key{key},
		ReplaceItem(entity.KindTask, "t2", func(item entity.Item) {
			item["status"] = entity.TaskStatusNotStarted
		}),
		func(ctx context.Context) (any, error) { return nil, errServerRejected })
	require.Error(t, err)

	assert.Equal(t, entity.TaskStatusInProgress, taskStatus(t, s, key, "t1"))
	assert.Equal(t, entity.TaskStatusDone, taskStatus(t, s, key, "t2"))
}

func TestMutate_FatalErrorPropagatesUnchanged(t *testing.T) {
	errUnauthenticated := errors.New("unauthenticated")
	s, key := newStoreWithTaskList(t)

	m := NewMutator(s, WithFatalCondition(func(err error) bool {
		return errors.Is(err, errUnauthenticated)
	}))

	_, err := m.Mutate(context.Background(), []cache.Key{key},
		ReplaceItem(entity.KindTask, "t1", func(item entity.Item) {
			item["status"] = entity.TaskStatusDone
		}),
		func(ctx context.Context) (any, error) { return nil, errUnauthenticated })

	// 原样上抛，同时快照已还原
	require.ErrorIs(t, err, errUnauthenticated)
	assert.Equal(t, entity.TaskStatusNotStarted, taskStatus(t, s, key, "t1"))
}

func TestMutate_SettlementAfterCloseIsNoOp(t *testing.T) {
	s, key := newStoreWithTaskList(t)
	m := NewMutator(s)

	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = m.Mutate(context.Background(), []cache.Key{key},
			ReplaceItem(entity.KindTask, "t1", func(item entity.Item) {
				item["status"] = entity.TaskStatusDone
			}),
			func(ctx context.Context) (any, error) {
				<-release
				return nil, errServerRejected
			})
	}()

	// 变更在途时同步层停用
	time.Sleep(20 * time.Millisecond)
	s.Close()
	close(release)
	<-done

	// 回滚落账被丢弃，不 panic
}
