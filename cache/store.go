package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KOMKZ/go-dashsync/logger"
	"github.com/KOMKZ/go-dashsync/retry"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fetcher 单键数据拉取函数
type Fetcher func(ctx context.Context) (any, error)

// Options Ensure 的按键选项
type Options struct {
	// StaleAfter 覆盖默认新鲜度窗口（0 表示用配置默认值）
	StaleAfter time.Duration

	// AutoRefetch 失效后立即后台刷新（有活跃视图在读的键）
	AutoRefetch bool
}

// UnsubscribeFunc 取消订阅函数
type UnsubscribeFunc func()

// Stats 缓存统计
type Stats struct {
	Hits          int64
	Misses        int64
	Fetches       int64
	Errors        int64
	Invalidations int64
	Evictions     int64
}

// fetcherRecord 记录键的拉取函数与选项，供失效后刷新和轮询复用
type fetcherRecord struct {
	fetcher     Fetcher
	autoRefetch bool
	staleAfter  time.Duration
}

type subscriber struct {
	prefix Key
	fn     func(Entry)
}

// Store 缓存存储 + 查询引擎
// 整个同步层唯一的共享可变状态，所有组件通过它通信
type Store struct {
	config  *Config
	logger  *logger.CtxZapLogger
	metrics *OTelCacheMetrics

	mu          sync.RWMutex
	entries     map[string]Entry
	fetchers    map[string]fetcherRecord
	subscribers map[uint64]subscriber
	nextSubID   uint64

	sf     singleflight.Group
	pool   *ants.Pool
	closed int32

	// fatal 判定不可重试的致命错误（认证失败），onFatal 上报给外层
	fatal   func(error) bool
	onFatal func(error)

	now func() time.Time

	hits          int64
	misses        int64
	fetches       int64
	errors        int64
	invalidations int64
	evictions     int64
}

// StoreOption 存储选项
type StoreOption func(*Store)

// WithLogger 注入日志
func WithLogger(l *logger.CtxZapLogger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithMetrics 注入 OTel 指标
func WithMetrics(m *OTelCacheMetrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// WithFatalCondition 设置致命错误判定（匹配的错误不重试、触发 onFatal）
func WithFatalCondition(fn func(error) bool) StoreOption {
	return func(s *Store) { s.fatal = fn }
}

// WithOnFatal 设置致命错误回调
func WithOnFatal(fn func(error)) StoreOption {
	return func(s *Store) { s.onFatal = fn }
}

// WithClock 注入时钟（测试用）
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore 创建缓存存储
func NewStore(cfg *Config, opts ...StoreOption) *Store {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()

	s := &Store{
		config:      cfg,
		entries:     make(map[string]Entry),
		fetchers:    make(map[string]fetcherRecord),
		subscribers: make(map[uint64]subscriber),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	pool, err := ants.NewPool(cfg.NotifyPoolSize)
	if err != nil {
		pool, _ = ants.NewPool(64)
	}
	s.pool = pool

	return s
}

// Read 点查缓存记录，绝不触发拉取
func (s *Store) Read(key Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key.String()]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Ensure 确保键有数据：立即返回当前记录（可能是 loading 或过期值），
// 缺失或过期时在后台调度恰好一次拉取（同键并发请求合并）
func (s *Store) Ensure(ctx context.Context, key Key, fetcher Fetcher, opts Options) Entry {
	if s.isClosed() {
		e, _ := s.Read(key)
		return e
	}

	staleAfter := opts.StaleAfter
	if staleAfter <= 0 {
		staleAfter = s.config.StaleAfter
	}

	ks := key.String()
	needFetch := false

	s.mu.Lock()
	s.fetchers[ks] = fetcherRecord{fetcher: fetcher, autoRefetch: opts.AutoRefetch, staleAfter: staleAfter}

	cur, ok := s.entries[ks]
	switch {
	case !ok:
		cur = Entry{Key: key, Status: StatusLoading}
		s.entries[ks] = cur
		needFetch = true
		atomic.AddInt64(&s.misses, 1)
	case cur.Stale(staleAfter, s.now()) && cur.Status != StatusLoading:
		cur.Status = StatusLoading
		s.entries[ks] = cur
		needFetch = true
		atomic.AddInt64(&s.misses, 1)
	default:
		atomic.AddInt64(&s.hits, 1)
	}
	s.mu.Unlock()

	if s.metrics != nil {
		if needFetch {
			s.metrics.RecordMiss(ctx, key)
		} else {
			s.metrics.RecordHit(ctx, key)
		}
	}

	if needFetch {
		// 拉取与调用方生命周期解耦：视图消失不中断进行中的拉取
		go s.fetch(context.WithoutCancel(ctx), key, fetcher)
	}

	return cur.clone()
}

// Refetch 用已记录的拉取函数后台刷新指定键（轮询器使用）
func (s *Store) Refetch(key Key) error {
	if s.isClosed() {
		return ErrStoreClosed
	}

	s.mu.RLock()
	rec, ok := s.fetchers[key.String()]
	s.mu.RUnlock()
	if !ok {
		return ErrNoFetcher.WithData("key", key.String())
	}

	go s.fetch(context.Background(), key, rec.fetcher)
	return nil
}

// fetch 执行单键拉取（singleflight 合并并发请求）
func (s *Store) fetch(ctx context.Context, key Key, fetcher Fetcher) {
	ks := key.String()

	_, _, _ = s.sf.Do(ks, func() (any, error) {
		atomic.AddInt64(&s.fetches, 1)
		if s.metrics != nil {
			s.metrics.RecordFetch(ctx, key)
		}

		data, err := retry.DoWithData(ctx, func() (any, error) {
			return fetcher(ctx)
		},
			retry.MaxAttempts(s.config.FetchAttempts),
			retry.Backoff(retry.ExponentialBackoff(s.config.FetchBackoffBase)),
			retry.Condition(retry.RetryOnCondition(func(err error) bool {
				return s.fatal == nil || !s.fatal(err)
			})),
		)

		if err != nil {
			s.setError(key, err)
			return nil, err
		}

		s.setSuccess(key, data)
		return data, nil
	})
}

// setSuccess 写入成功结果
func (s *Store) setSuccess(key Key, data any) {
	if s.isClosed() {
		return
	}

	ks := key.String()
	s.mu.Lock()
	e := s.entries[ks]
	e.Key = key
	e.Data = data
	e.Status = StatusSuccess
	e.FetchedAt = s.now()
	e.Err = nil
	s.entries[ks] = e
	s.mu.Unlock()

	s.notify(e)
}

// setError 写入失败结果，保留最后一次成功数据
func (s *Store) setError(key Key, err error) {
	atomic.AddInt64(&s.errors, 1)
	if s.logger != nil {
		s.logger.Warn("缓存拉取失败", zap.String("key", key.String()), zap.Error(err))
	}

	fatal := s.fatal != nil && s.fatal(err)
	if fatal && s.onFatal != nil {
		s.onFatal(err)
	}

	if s.isClosed() {
		return
	}

	ks := key.String()
	s.mu.Lock()
	e := s.entries[ks]
	e.Key = key
	e.Status = StatusError
	e.Err = err
	s.entries[ks] = e
	s.mu.Unlock()

	s.notify(e)
}

// Invalidate 前缀失效：匹配记录标记为过期（FetchedAt 归零），数据保留
// 注册了 AutoRefetch 的键立即后台刷新，其余键等下次 Ensure 时惰性刷新
func (s *Store) Invalidate(prefix Key) {
	if s.isClosed() {
		return
	}

	var changed []Entry
	var refetch []Key

	s.mu.Lock()
	for ks, e := range s.entries {
		if !e.Key.HasPrefix(prefix) {
			continue
		}
		e.FetchedAt = time.Time{}
		s.entries[ks] = e
		changed = append(changed, e)
		atomic.AddInt64(&s.invalidations, 1)

		if rec, ok := s.fetchers[ks]; ok && rec.autoRefetch {
			refetch = append(refetch, e.Key)
		}
	}
	s.mu.Unlock()

	if s.metrics != nil && len(changed) > 0 {
		s.metrics.RecordInvalidation(context.Background(), prefix, len(changed))
	}
	if s.logger != nil && len(changed) > 0 {
		s.logger.Debug("缓存前缀失效",
			zap.String("prefix", prefix.String()),
			zap.Int("matched", len(changed)))
	}

	for _, e := range changed {
		s.notify(e)
	}
	for _, key := range refetch {
		_ = s.Refetch(key)
	}
}

// Evict 前缀驱逐：直接移除匹配记录（实体删除时使用）
func (s *Store) Evict(prefix Key) {
	if s.isClosed() {
		return
	}

	var removed []Key

	s.mu.Lock()
	for ks, e := range s.entries {
		if !e.Key.HasPrefix(prefix) {
			continue
		}
		delete(s.entries, ks)
		delete(s.fetchers, ks)
		removed = append(removed, e.Key)
		atomic.AddInt64(&s.evictions, 1)
	}
	s.mu.Unlock()

	if s.metrics != nil && len(removed) > 0 {
		s.metrics.RecordEviction(context.Background(), prefix, len(removed))
	}

	for _, key := range removed {
		s.notify(Entry{Key: key, Status: StatusIdle})
	}
}

// Subscribe 订阅前缀下的记录变化
// 回调在存储状态更新之后经协程池异步送达，收到的是记录副本
func (s *Store) Subscribe(prefix Key, fn func(Entry)) UnsubscribeFunc {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = subscriber{prefix: prefix, fn: fn}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// notify 通知匹配前缀的订阅者
func (s *Store) notify(e Entry) {
	s.mu.RLock()
	var matched []func(Entry)
	for _, sub := range s.subscribers {
		if e.Key.HasPrefix(sub.prefix) {
			matched = append(matched, sub.fn)
		}
	}
	s.mu.RUnlock()

	for _, fn := range matched {
		fn := fn
		entry := e.clone()
		if err := s.pool.Submit(func() { fn(entry) }); err != nil {
			// 池已释放：同步层停用中，丢弃通知
			return
		}
	}
}

// ============================================================
// 乐观变更支持（mutation 包使用）
// ============================================================

// Snapshot 记录快照：nil 值表示该键当时不存在
type Snapshot map[Key]*Entry

// Capture 捕获目标键的当前状态（逐键深拷贝）
func (s *Store) Capture(keys []Key) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(Snapshot, len(keys))
	for _, key := range keys {
		if e, ok := s.entries[key.String()]; ok {
			c := e.clone()
			snap[key] = &c
		} else {
			snap[key] = nil
		}
	}
	return snap
}

// Update 在写锁内对单键原子地应用变换并通知订阅者
// patch 收到记录副本，返回值整体替换该键；键不存在时不调用 patch
func (s *Store) Update(key Key, patch func(Entry) Entry) bool {
	if s.isClosed() {
		return false
	}

	ks := key.String()
	s.mu.Lock()
	e, ok := s.entries[ks]
	if !ok {
		s.mu.Unlock()
		return false
	}
	e = patch(e.clone())
	e.Key = key
	s.entries[ks] = e
	s.mu.Unlock()

	s.notify(e)
	return true
}

// Put 写入服务端权威数据（变更成功后替换详情记录）
func (s *Store) Put(key Key, data any) {
	s.setSuccess(key, data)
}

// Restore 按快照逐字还原（变更失败回滚）
// 同步层停用后调用是 no-op
func (s *Store) Restore(snap Snapshot) {
	if s.isClosed() {
		return
	}

	var changed []Entry

	s.mu.Lock()
	for key, e := range snap {
		ks := key.String()
		if e == nil {
			delete(s.entries, ks)
			changed = append(changed, Entry{Key: key, Status: StatusIdle})
			continue
		}
		restored := e.clone()
		s.entries[ks] = restored
		changed = append(changed, restored)
	}
	s.mu.Unlock()

	for _, e := range changed {
		s.notify(e)
	}
}

// ============================================================
// 生命周期与统计
// ============================================================

// Close 关闭存储：后续写入全部变为 no-op，通知池释放
func (s *Store) Close() {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return
	}
	if s.pool != nil {
		s.pool.Release()
	}
}

func (s *Store) isClosed() bool {
	return atomic.LoadInt32(&s.closed) == 1
}

// Stats 返回统计快照
func (s *Store) Stats() Stats {
	return Stats{
		Hits:          atomic.LoadInt64(&s.hits),
		Misses:        atomic.LoadInt64(&s.misses),
		Fetches:       atomic.LoadInt64(&s.fetches),
		Errors:        atomic.LoadInt64(&s.errors),
		Invalidations: atomic.LoadInt64(&s.invalidations),
		Evictions:     atomic.LoadInt64(&s.evictions),
	}
}

// Len 当前缓存记录数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys 返回匹配前缀的全部查询键（变更协议用来圈定目标键）
func (s *Store) Keys(prefix Key) []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []Key
	for _, e := range s.entries {
		if e.Key.HasPrefix(prefix) {
			keys = append(keys, e.Key)
		}
	}
	return keys
}
