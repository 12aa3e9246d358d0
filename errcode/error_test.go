package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(20, 1, "cache", "缓存项不存在")

	assert.Equal(t, 200001, err.Code())
	assert.Equal(t, "cache", err.Module())
	assert.Equal(t, "缓存项不存在", err.Message())
	assert.Equal(t, "缓存项不存在", err.Error())
}

func TestLayeredError_WithMsg(t *testing.T) {
	base := New(20, 1, "cache", "缓存项不存在")
	modified := base.WithMsgf("缓存项不存在: %s", "task:list")

	// 原实例不被修改
	assert.Equal(t, "缓存项不存在", base.Message())
	assert.Equal(t, "缓存项不存在: task:list", modified.Message())
	assert.Equal(t, base.Code(), modified.Code())
}

func TestLayeredError_Wrap(t *testing.T) {
	base := New(22, 3, "api", "请求失败")
	cause := fmt.Errorf("connection refused")

	wrapped := base.Wrap(cause)

	assert.Equal(t, cause, wrapped.Cause())
	assert.Equal(t, cause, errors.Unwrap(wrapped))
	assert.Contains(t, wrapped.Error(), "connection refused")

	// Wrap(nil) 返回自身
	assert.Same(t, base, base.Wrap(nil))
}

func TestLayeredError_Is(t *testing.T) {
	base := New(23, 2, "push", "连接已断开")
	wrapped := base.Wrap(fmt.Errorf("EOF")).WithData("attempt", 3)

	assert.True(t, errors.Is(wrapped, base))

	other := New(23, 3, "push", "重连次数耗尽")
	assert.False(t, errors.Is(wrapped, other))
}

func TestLayeredError_WithData(t *testing.T) {
	base := New(21, 1, "mutation", "变更失败")
	withData := base.WithData("entity_id", "t1")

	assert.Empty(t, base.Data())
	assert.Equal(t, "t1", withData.Data()["entity_id"])
}

func TestRegistry_Conflict(t *testing.T) {
	r := &Registry{codes: make(map[int]string)}

	errA := New(30, 1, "alpha", "a")
	r.Register(errA)
	require.Equal(t, 1, r.Count())

	// 同模块幂等注册
	r.Register(New(30, 1, "alpha", "a2"))
	assert.Equal(t, 1, r.Count())

	// 不同模块注册同一错误码 panic
	assert.Panics(t, func() {
		r.Register(New(30, 1, "beta", "b"))
	})
}
