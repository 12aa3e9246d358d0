package errcode

import (
	"fmt"
	"sync"
)

// Registry 错误码注册表（防止模块间错误码冲突）
type Registry struct {
	mu    sync.RWMutex
	codes map[int]string // code -> module
}

var globalRegistry = &Registry{
	codes: make(map[int]string),
}

// Register 注册错误码到全局注册表
// 同一错误码被不同模块重复注册时 panic（启动期即暴露冲突）
func Register(err *LayeredError) *LayeredError {
	return globalRegistry.Register(err)
}

// Register 注册错误码
func (r *Registry) Register(err *LayeredError) *LayeredError {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := err.Code()
	if existing, ok := r.codes[code]; ok {
		if existing != err.Module() {
			panic(fmt.Sprintf(
				"error code conflict: code %d is already registered by module %q, cannot register for %q",
				code, existing, err.Module(),
			))
		}
		// 同模块幂等注册
		return err
	}

	r.codes[code] = err.Module()
	return err
}

// Count 已注册错误码数量
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.codes)
}

// Clear 清空注册表（仅用于测试）
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = make(map[int]string)
}
