// Package router 实现推送事件到缓存失效的路由
// 纯映射：除了对缓存表的 Invalidate/Evict 不做任何 I/O
package router

import (
	"context"
	"strings"

	"github.com/KOMKZ/go-dashsync/cache"
	"github.com/KOMKZ/go-dashsync/entity"
	"github.com/KOMKZ/go-dashsync/errcode"
	"github.com/KOMKZ/go-dashsync/logger"
	"github.com/KOMKZ/go-dashsync/push"
	"go.uber.org/zap"
)

// 路由模块错误码（模块码 24）
var (
	// ErrNilStore 缓存表未注入
	ErrNilStore = errcode.Register(errcode.New(24, 1, "router", "缓存表未注入"))
)

// Store 路由器需要的缓存表能力
type Store interface {
	Invalidate(prefix cache.Key)
	Evict(prefix cache.Key)
}

// meetingFanout 会议处理完成后保守失效的实体类型
// 会议流水线会批量产出任务、风险、决策并更新项目画像，
// 事件里不带受影响实体清单，因此整面失效
var meetingFanout = []entity.Kind{
	entity.KindTask,
	entity.KindRisk,
	entity.KindDecision,
	entity.KindProject,
}

// Router 事件路由器
type Router struct {
	store  Store
	logger *logger.CtxZapLogger
}

// Option 路由器选项
type Option func(*Router)

// WithLogger 注入日志
func WithLogger(l *logger.CtxZapLogger) Option {
	return func(r *Router) { r.logger = l }
}

// NewRouter 创建路由器
func NewRouter(store Store, opts ...Option) (*Router, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	r := &Router{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Route 处理一条推送事件
// 调用方保证按事件到达顺序串行调用
func (r *Router) Route(ctx context.Context, ev push.Event) {
	switch ev.Type {
	case push.EventTypeMeetingComplete:
		r.routeMeetingComplete(ctx, ev)
	case push.EventTypeMeetingError:
		r.routeMeetingError(ctx, ev)
	default:
		r.routeEntity(ctx, ev)
	}
}

// routeEntity 实体 CRUD 事件：<kind>_created|updated|deleted
func (r *Router) routeEntity(ctx context.Context, ev push.Event) {
	kind, action, ok := entityEvent(ev)
	if !ok {
		if r.logger != nil {
			r.logger.DebugCtx(ctx, "忽略未知事件", zap.String("event_type", ev.Type))
		}
		return
	}

	// 任何写操作都会改变列表成员与统计口径
	r.store.Invalidate(cache.Prefix(kind, cache.ScopeList))
	r.store.Invalidate(cache.Prefix(kind, cache.ScopeStats))

	if ev.EntityID == "" {
		return
	}

	switch action {
	case actionDeleted:
		// 已删除实体的详情不可再取，逐出而非失效
		r.store.Evict(cache.DetailKey(kind, ev.EntityID))
	default:
		r.store.Invalidate(cache.DetailKey(kind, ev.EntityID))
	}

	if r.logger != nil {
		r.logger.DebugCtx(ctx, "事件已路由",
			zap.String("event_type", ev.Type),
			zap.String("kind", string(kind)),
			zap.String("entity_id", ev.EntityID))
	}
}

// routeMeetingComplete 会议处理完成：会议自身 + 产出实体整面失效
func (r *Router) routeMeetingComplete(ctx context.Context, ev push.Event) {
	r.store.Invalidate(cache.Prefix(entity.KindMeeting, cache.ScopeList))
	if ev.EntityID != "" {
		r.store.Invalidate(cache.DetailKey(entity.KindMeeting, ev.EntityID))
	}

	for _, kind := range meetingFanout {
		r.store.Invalidate(cache.Prefix(kind, cache.ScopeList))
		r.store.Invalidate(cache.Prefix(kind, cache.ScopeStats))
	}

	if r.logger != nil {
		r.logger.InfoCtx(ctx, "会议处理完成，已整面失效产出实体",
			zap.String("meeting_id", ev.EntityID))
	}
}

// routeMeetingError 会议处理失败：只刷会议自身的状态
func (r *Router) routeMeetingError(ctx context.Context, ev push.Event) {
	r.store.Invalidate(cache.Prefix(entity.KindMeeting, cache.ScopeList))
	if ev.EntityID != "" {
		r.store.Invalidate(cache.DetailKey(entity.KindMeeting, ev.EntityID))
	}

	if r.logger != nil {
		r.logger.WarnCtx(ctx, "会议处理失败", zap.String("meeting_id", ev.EntityID))
	}
}

// 实体事件动作
const (
	actionCreated = "created"
	actionUpdated = "updated"
	actionDeleted = "deleted"
)

// entityEvent 从事件中提取实体类型与动作
// 优先取 data 里的 entity_type/action，缺失时从事件类型名推导
// （task_updated → task + updated）
func entityEvent(ev push.Event) (entity.Kind, string, bool) {
	kind, kindErr := entity.ParseKind(ev.EntityType)
	action := ev.Action

	if kindErr != nil || action == "" {
		if i := strings.LastIndex(ev.Type, "_"); i > 0 {
			if derived, err := entity.ParseKind(ev.Type[:i]); err == nil {
				kind, kindErr = derived, nil
				if action == "" {
					action = ev.Type[i+1:]
				}
			}
		}
	}

	if kindErr != nil {
		return "", "", false
	}

	switch action {
	case actionCreated, actionUpdated, actionDeleted:
		return kind, action, true
	}
	return "", "", false
}
