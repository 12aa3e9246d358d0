// Package sync 实现同步层门面：
// 组装 API 客户端、查询缓存、乐观变更、推送客户端、事件路由与条件轮询，
// 对外提供统一的激活/停用生命周期和按实体类型的查询/变更入口
package sync

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/KOMKZ/go-dashsync/api"
	"github.com/KOMKZ/go-dashsync/cache"
	"github.com/KOMKZ/go-dashsync/component"
	"github.com/KOMKZ/go-dashsync/entity"
	"github.com/KOMKZ/go-dashsync/logger"
	"github.com/KOMKZ/go-dashsync/mutation"
	"github.com/KOMKZ/go-dashsync/poller"
	"github.com/KOMKZ/go-dashsync/push"
	"github.com/KOMKZ/go-dashsync/router"
	"github.com/KOMKZ/go-dashsync/telemetry"
	"go.uber.org/zap"
)

// 生命周期状态
const (
	stateCreated = iota
	stateReady
	stateActive
	stateClosed
)

// Syncer 同步层门面
//
// 生命周期：New → Init → Activate → Deactivate（终态）
// 停用后缓存表对写入关闭，进行中的变更落账自动作废
type Syncer struct {
	config *Config
	logger *logger.CtxZapLogger

	api     *api.Client
	store   *cache.Store
	mutator *mutation.Mutator
	pushcli *push.Client
	router  *router.Router
	poller  *poller.Poller

	cacheMetrics    *cache.OTelCacheMetrics
	mutationMetrics *mutation.OTelMutationMetrics
	pushMetrics     *push.OTelPushMetrics

	// transport 测试注入的推送传输；nil 时用 SSE 生产实现
	transport push.Transport

	// metricsRegistry 指标注册中心；注入后 Init 时自动注册本层全部指标
	metricsRegistry *telemetry.MetricsRegistry

	onPaused          func()
	onUnauthenticated func(error)

	mu    sync.Mutex
	state int
}

// Option 门面选项
type Option func(*Syncer)

// WithLogger 注入日志
func WithLogger(l *logger.CtxZapLogger) Option {
	return func(s *Syncer) { s.logger = l }
}

// WithConfig 直接注入配置（绕过 ConfigLoader，库内嵌场景用）
func WithConfig(cfg *Config) Option {
	return func(s *Syncer) { s.config = cfg }
}

// WithTransport 注入推送传输（测试用）
func WithTransport(t push.Transport) Option {
	return func(s *Syncer) { s.transport = t }
}

// WithMetricsRegistry 注入指标注册中心
func WithMetricsRegistry(r *telemetry.MetricsRegistry) Option {
	return func(s *Syncer) { s.metricsRegistry = r }
}

// WithOnPaused 设置"更新已暂停"回调（推送重连耗尽时触发）
func WithOnPaused(fn func()) Option {
	return func(s *Syncer) { s.onPaused = fn }
}

// WithOnUnauthenticated 设置未认证升级回调（外层据此发起重新登录）
func WithOnUnauthenticated(fn func(error)) Option {
	return func(s *Syncer) { s.onUnauthenticated = fn }
}

// NewSyncer 创建同步层门面
func NewSyncer(opts ...Option) *Syncer {
	s := &Syncer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================================
// component.Component 实现
// ============================================================

// Name 实现 component.Component 接口
func (s *Syncer) Name() string {
	return component.ComponentSyncer
}

// DependsOn 实现 component.Component 接口
func (s *Syncer) DependsOn() []string {
	return []string{component.ComponentConfig, component.ComponentLogger}
}

// Init 实现 component.Component 接口：读取 sync 配置段并组装各部件
func (s *Syncer) Init(ctx context.Context, loader component.ConfigLoader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateCreated {
		return nil
	}

	if s.config == nil {
		var cfg Config
		if loader != nil && loader.IsSet("sync") {
			if err := loader.Unmarshal("sync", &cfg); err != nil {
				return ErrInitFailed.Wrap(err)
			}
		}
		s.config = &cfg
	}
	s.config.ApplyDefaults()
	if err := s.config.Validate(); err != nil {
		return err
	}

	if s.logger == nil {
		s.logger = logger.GetLogger("sync")
	}

	if err := s.buildParts(); err != nil {
		return err
	}

	if s.metricsRegistry != nil {
		if err := s.metricsRegistry.Register(s); err != nil {
			return err
		}
	}

	s.state = stateReady
	s.logger.InfoCtx(ctx, "同步层初始化完成",
		zap.String("base_url", s.config.API.BaseURL),
		zap.String("stream_url", s.config.Push.StreamURL))
	return nil
}

// buildParts 组装各部件并接线：
// 未认证错误从缓存/变更经门面升级到外层，推送事件经路由落到缓存
func (s *Syncer) buildParts() error {
	apiClient, err := api.NewClient(&s.config.API, api.WithLogger(logger.GetLogger("api")))
	if err != nil {
		return err
	}
	s.api = apiClient

	s.cacheMetrics = cache.NewOTelCacheMetrics(s.config.Cache.MetricsEnabled)
	s.store = cache.NewStore(&s.config.Cache,
		cache.WithLogger(logger.GetLogger("cache")),
		cache.WithMetrics(s.cacheMetrics),
		cache.WithFatalCondition(api.IsUnauthenticated),
		cache.WithOnFatal(s.handleUnauthenticated),
	)

	s.mutationMetrics = mutation.NewOTelMutationMetrics(s.config.MetricsEnabled)
	s.mutator = mutation.NewMutator(s.store,
		mutation.WithLogger(logger.GetLogger("mutation")),
		mutation.WithMetrics(s.mutationMetrics),
		mutation.WithFatalCondition(api.IsUnauthenticated),
	)

	s.router, err = router.NewRouter(s.store, router.WithLogger(logger.GetLogger("router")))
	if err != nil {
		return err
	}

	s.poller, err = poller.NewPoller(s.store,
		poller.WithLogger(logger.GetLogger("poller")),
		poller.WithDefaultInterval(s.config.PollInterval),
	)
	if err != nil {
		return err
	}

	transport := s.transport
	if transport == nil {
		// 与 API 客户端共享 Cookie 会话；长连接不设请求超时
		transport = push.NewSSETransport(s.config.Push.StreamURL,
			&http.Client{Jar: s.api.HTTPClient().Jar})
	}

	s.pushMetrics = push.NewOTelPushMetrics(s.config.Push.MetricsEnabled)
	s.pushcli = push.NewClient(&s.config.Push, transport, s.handleEvent,
		push.WithLogger(logger.GetLogger("push")),
		push.WithMetrics(s.pushMetrics),
		push.WithOnPaused(s.handlePaused),
	)
	return nil
}

// Start 实现 component.Component 接口
func (s *Syncer) Start(ctx context.Context) error {
	return s.Activate(ctx)
}

// Stop 实现 component.Component 接口
func (s *Syncer) Stop(_ context.Context) error {
	s.Deactivate()
	return nil
}

// ============================================================
// 激活 / 停用
// ============================================================

// Activate 激活同步层：建立推送连接，开始接收变更通知
func (s *Syncer) Activate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateCreated:
		return ErrNotInitialized
	case stateActive:
		return ErrAlreadyActive
	case stateClosed:
		return ErrClosed
	}

	if err := s.pushcli.Activate(ctx); err != nil {
		return err
	}
	s.state = stateActive
	s.logger.InfoCtx(ctx, "同步层已激活")
	return nil
}

// Deactivate 停用同步层（终态）：
// 断开推送、停止轮询、关闭缓存表写入；进行中的变更落账自动作废
func (s *Syncer) Deactivate() {
	s.mu.Lock()
	if s.state == stateClosed || s.state == stateCreated {
		s.mu.Unlock()
		return
	}
	s.state = stateClosed
	s.mu.Unlock()

	s.pushcli.Deactivate()
	if err := s.poller.Stop(); err != nil {
		s.logger.Warn("轮询器关闭异常", zap.Error(err))
	}
	s.store.Close()
	s.logger.Info("同步层已停用")
}

// ============================================================
// 查询入口（缓存优先，后台刷新）
// ============================================================

// List 列表查询：立即返回缓存记录，缺失或过期时后台拉取
func (s *Syncer) List(ctx context.Context, kind entity.Kind, params map[string]string) cache.Entry {
	return s.store.Ensure(ctx, cache.ListKey(kind, params), func(ctx context.Context) (any, error) {
		return s.api.List(ctx, kind, params)
	}, cache.Options{AutoRefetch: true})
}

// Detail 详情查询
func (s *Syncer) Detail(ctx context.Context, kind entity.Kind, id string) cache.Entry {
	return s.store.Ensure(ctx, cache.DetailKey(kind, id), func(ctx context.Context) (any, error) {
		return s.api.Get(ctx, kind, id)
	}, cache.Options{AutoRefetch: true})
}

// Stats 统计查询
func (s *Syncer) Stats(ctx context.Context, kind entity.Kind, params map[string]string) cache.Entry {
	return s.store.Ensure(ctx, cache.StatsKey(kind, params), func(ctx context.Context) (any, error) {
		return s.api.Stats(ctx, kind, params)
	}, cache.Options{AutoRefetch: true})
}

// Subscribe 订阅前缀下的记录变化
func (s *Syncer) Subscribe(prefix cache.Key, fn func(cache.Entry)) cache.UnsubscribeFunc {
	return s.store.Subscribe(prefix, fn)
}

// ============================================================
// 变更入口（乐观协议）
// ============================================================

// UpdateEntity 乐观更新：缓存中的列表行与详情立即打补丁，
// 服务端确认后以权威实体落账，失败则回滚
func (s *Syncer) UpdateEntity(ctx context.Context, kind entity.Kind, id string, fields map[string]any) (entity.Item, error) {
	targets := s.mutationTargets(kind)
	targets = append(targets, cache.DetailKey(kind, id))

	patch := mutation.ReplaceItem(kind, id, func(item entity.Item) {
		for k, v := range fields {
			item[k] = v
		}
	})

	result, err := s.mutator.Mutate(ctx, targets, patch, func(ctx context.Context) (any, error) {
		return s.api.Update(ctx, kind, id, fields)
	})
	if err != nil {
		return nil, err
	}

	item, _ := result.(entity.Item)
	return item, nil
}

// CycleTaskStatus 任务状态推进一格（NOT_STARTED → IN_PROGRESS → DONE → 循环）
func (s *Syncer) CycleTaskStatus(ctx context.Context, id string) (entity.Item, error) {
	next := entity.NextTaskStatus(s.cachedTaskStatus(id))
	return s.UpdateEntity(ctx, entity.KindTask, id, map[string]any{"status": next})
}

// DeleteEntity 乐观删除：列表行立即消失（Total 同步递减），
// 服务端确认后逐出详情，失败则行恢复原位
func (s *Syncer) DeleteEntity(ctx context.Context, kind entity.Kind, id string) error {
	targets := s.mutationTargets(kind)

	_, err := s.mutator.Mutate(ctx, targets, mutation.RemoveItem(kind, id), func(ctx context.Context) (any, error) {
		return nil, s.api.Delete(ctx, kind, id)
	})
	if err != nil {
		return err
	}

	s.store.Evict(cache.DetailKey(kind, id))
	return nil
}

// mutationTargets 圈定变更目标键：该实体类型当前缓存的全部 list/stats 键
func (s *Syncer) mutationTargets(kind entity.Kind) []cache.Key {
	targets := s.store.Keys(cache.Prefix(kind, cache.ScopeList))
	return append(targets, s.store.Keys(cache.Prefix(kind, cache.ScopeStats))...)
}

// cachedTaskStatus 从缓存里找任务当前状态：先查详情，再扫列表行
func (s *Syncer) cachedTaskStatus(id string) string {
	if e, ok := s.store.Read(cache.DetailKey(entity.KindTask, id)); ok {
		if item, ok := e.Data.(entity.Item); ok {
			if status, ok := item["status"].(string); ok {
				return status
			}
		}
	}

	for _, key := range s.store.Keys(cache.Prefix(entity.KindTask, cache.ScopeList)) {
		e, ok := s.store.Read(key)
		if !ok {
			continue
		}
		page, ok := e.Data.(entity.Page)
		if !ok {
			continue
		}
		for _, item := range page.Items {
			if itemID, ok := entity.ItemID(entity.KindTask, item); ok && itemID == id {
				if status, ok := item["status"].(string); ok {
					return status
				}
			}
		}
	}
	return ""
}

// ============================================================
// 轮询与推送控制
// ============================================================

// WatchMeeting 会议处理期间轮询详情，脱离 PROCESSING 后自动解除
// 覆盖推送丢失或未建连的窗口期
func (s *Syncer) WatchMeeting(id string) error {
	key := cache.DetailKey(entity.KindMeeting, id)
	return s.poller.Watch(key, s.config.PollInterval, func(e cache.Entry) bool {
		item, ok := e.Data.(entity.Item)
		return ok && item["status"] == entity.MeetingStatusProcessing
	})
}

// Watch 注册任意键的条件轮询
func (s *Syncer) Watch(key cache.Key, interval time.Duration, cond poller.Condition) error {
	return s.poller.Watch(key, interval, cond)
}

// Unwatch 解除指定键的轮询
func (s *Syncer) Unwatch(key cache.Key) {
	s.poller.Unwatch(key)
}

// PushState 推送连接状态快照
func (s *Syncer) PushState() push.ConnState {
	return s.pushcli.State()
}

// ReconnectPush 从重连耗尽的终态手动恢复推送
func (s *Syncer) ReconnectPush(ctx context.Context) error {
	return s.pushcli.Reconnect(ctx)
}

// ============================================================
// 会话
// ============================================================

// SetSessionToken 注入会话令牌
// 令牌已过期时立即发未认证信号，避免等到首个请求 401
func (s *Syncer) SetSessionToken(token string) error {
	s.api.SetSessionToken(token)

	sess, err := api.SessionInfo(token)
	if err != nil {
		return err
	}
	if sess.Expired(time.Now()) {
		s.handleUnauthenticated(api.ErrUnauthenticated.WithMsg("会话已过期"))
	}
	return nil
}

// ============================================================
// 内部回调
// ============================================================

// handleEvent 推送事件到达：按到达顺序路由为缓存失效
func (s *Syncer) handleEvent(ev push.Event) {
	s.router.Route(context.Background(), ev)
}

// handlePaused 推送重连耗尽：通知外层"更新已暂停"
func (s *Syncer) handlePaused() {
	s.logger.Warn("推送重连耗尽，实时更新已暂停")
	if s.onPaused != nil {
		s.onPaused()
	}
}

// handleUnauthenticated 未认证升级：外层据此发起重新登录
func (s *Syncer) handleUnauthenticated(err error) {
	s.logger.Warn("会话未认证，已上抛", zap.Error(err))
	if s.onUnauthenticated != nil {
		s.onUnauthenticated(err)
	}
}

// ============================================================
// 部件访问
// ============================================================

// Store 底层缓存表
func (s *Syncer) Store() *cache.Store { return s.store }

// API 实体 REST 客户端
func (s *Syncer) API() *api.Client { return s.api }

// Mutator 乐观变更执行器
func (s *Syncer) Mutator() *mutation.Mutator { return s.mutator }

// Poller 条件轮询器
func (s *Syncer) Poller() *poller.Poller { return s.poller }
