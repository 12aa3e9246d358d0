// Package mutation 实现乐观变更协议：
// 快照 → 同步打补丁 → 请求服务端 → 成功落账或快照回滚
package mutation

import (
	"context"

	"github.com/KOMKZ/go-dashsync/cache"
	"github.com/KOMKZ/go-dashsync/logger"
	"go.uber.org/zap"
)

// ServerCall 服务端写请求，返回权威的变更后实体
type ServerCall func(ctx context.Context) (any, error)

// PatchFunc 单键补丁：收到记录副本，返回补丁后的记录
// 在存储写锁内同步执行，视图不会看到半成品补丁
type PatchFunc func(e cache.Entry) cache.Entry

// Mutator 乐观变更执行器
type Mutator struct {
	store   *cache.Store
	logger  *logger.CtxZapLogger
	metrics *OTelMutationMetrics

	// fatal 判定致命错误（认证失败）：跳过常规失败处理直接上抛
	fatal func(error) bool
}

// MutatorOption 执行器选项
type MutatorOption func(*Mutator)

// WithLogger 注入日志
func WithLogger(l *logger.CtxZapLogger) MutatorOption {
	return func(m *Mutator) { m.logger = l }
}

// WithMetrics 注入 OTel 指标
func WithMetrics(mm *OTelMutationMetrics) MutatorOption {
	return func(m *Mutator) { m.metrics = mm }
}

// WithFatalCondition 设置致命错误判定
func WithFatalCondition(fn func(error) bool) MutatorOption {
	return func(m *Mutator) { m.fatal = fn }
}

// NewMutator 创建变更执行器
func NewMutator(store *cache.Store, opts ...MutatorOption) *Mutator {
	m := &Mutator{store: store}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mutate 执行一次乐观变更
//
// 算法：
//  1. 快照：逐字捕获 targetKeys 的当前记录（本次变更私有）
//  2. 应用：对每个目标键同步执行 patch，编辑立即对所有视图可见
//  3. 派发：调用 call 请求服务端
//  4. 成功：服务端权威实体替换 detail 记录；list/stats 键后台失效
//     （保留补丁值渲染，下次读取时与服务端对账）
//  5. 失败：快照逐字还原，错误原样上抛给调用方
//
// 存储已关闭（同步层停用）时落账步骤自动变为 no-op
func (m *Mutator) Mutate(ctx context.Context, targetKeys []cache.Key, patch PatchFunc, call ServerCall) (any, error) {
	snap := m.store.Capture(targetKeys)

	applied := 0
	for _, key := range targetKeys {
		if m.store.Update(key, patch) {
			applied++
		}
	}

	if m.metrics != nil {
		m.metrics.RecordApplied(ctx, applied)
	}
	if m.logger != nil {
		m.logger.DebugCtx(ctx, "乐观补丁已应用",
			zap.Int("keys", len(targetKeys)),
			zap.Int("patched", applied))
	}

	result, err := call(ctx)
	if err != nil {
		m.store.Restore(snap)
		if m.metrics != nil {
			m.metrics.RecordRolledBack(ctx)
		}

		if m.fatal != nil && m.fatal(err) {
			// 认证失败：除快照还原外无额外处理，直接上抛
			return nil, err
		}

		if m.logger != nil {
			m.logger.WarnCtx(ctx, "变更失败，已回滚", zap.Error(err))
		}
		return nil, err
	}

	m.reconcile(result, targetKeys)

	if m.metrics != nil {
		m.metrics.RecordCommitted(ctx)
	}
	return result, nil
}

// reconcile 成功落账：detail 键写入权威实体，list/stats 键标记后台失效
func (m *Mutator) reconcile(result any, targetKeys []cache.Key) {
	for _, key := range targetKeys {
		switch key.Scope {
		case cache.ScopeDetail:
			if result != nil {
				m.store.Put(key, result)
			}
		default:
			// 列表保持补丁值渲染，失效后由下次读取对账服务端副作用
			go m.store.Invalidate(key)
		}
	}
}
