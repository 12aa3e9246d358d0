// Package poller 实现条件轮询：在推送覆盖不到的窗口期
// （如会议仍在 PROCESSING）按固定间隔后台刷新指定查询键，
// 条件不再成立时自动解除
package poller

import (
	"sync"
	"time"

	"github.com/KOMKZ/go-dashsync/cache"
	"github.com/KOMKZ/go-dashsync/errcode"
	"github.com/KOMKZ/go-dashsync/logger"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// DefaultInterval 默认轮询间隔
const DefaultInterval = 7 * time.Second

// 轮询模块错误码（模块码 25）
var (
	// ErrPollerClosed 轮询器已关闭
	ErrPollerClosed = errcode.Register(errcode.New(25, 1, "poller", "轮询器已关闭"))

	// ErrScheduleFailed 任务注册失败
	ErrScheduleFailed = errcode.Register(errcode.New(25, 2, "poller", "轮询任务注册失败"))
)

// Store 轮询器需要的缓存表能力
type Store interface {
	Read(key cache.Key) (cache.Entry, bool)
	Refetch(key cache.Key) error
}

// Condition 轮询持续条件，对当前缓存记录求值
// 返回 false 时该键的轮询自动解除
type Condition func(cache.Entry) bool

// Poller 条件轮询器
type Poller struct {
	store     Store
	scheduler gocron.Scheduler
	logger    *logger.CtxZapLogger
	interval  time.Duration

	mu     sync.Mutex
	jobs   map[cache.Key]gocron.Job
	closed bool
}

// Option 轮询器选项
type Option func(*Poller)

// WithLogger 注入日志
func WithLogger(l *logger.CtxZapLogger) Option {
	return func(p *Poller) { p.logger = l }
}

// WithDefaultInterval 覆盖默认轮询间隔
func WithDefaultInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// NewPoller 创建并启动轮询器
func NewPoller(store Store, opts ...Option) (*Poller, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, ErrScheduleFailed.Wrap(err)
	}

	p := &Poller{
		store:     store,
		scheduler: scheduler,
		interval:  DefaultInterval,
		jobs:      make(map[cache.Key]gocron.Job),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.scheduler.Start()
	return p, nil
}

// Watch 注册一个条件轮询任务
// interval <= 0 时用默认间隔；同键重复注册是幂等的
func (p *Poller) Watch(key cache.Key, interval time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = p.interval
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPollerClosed
	}
	if _, ok := p.jobs[key]; ok {
		return nil
	}

	job, err := p.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { p.tick(key, cond) }),
	)
	if err != nil {
		return ErrScheduleFailed.Wrap(err)
	}

	p.jobs[key] = job

	if p.logger != nil {
		p.logger.Debug("轮询已注册",
			zap.String("key", key.String()),
			zap.Duration("interval", interval))
	}
	return nil
}

// tick 一次轮询：条件成立则后台刷新，否则自动解除
func (p *Poller) tick(key cache.Key, cond Condition) {
	entry, ok := p.store.Read(key)
	if !ok || cond == nil || !cond(entry) {
		p.Unwatch(key)
		if p.logger != nil {
			p.logger.Debug("轮询条件不再成立，已解除", zap.String("key", key.String()))
		}
		return
	}

	if err := p.store.Refetch(key); err != nil {
		if p.logger != nil {
			p.logger.Warn("轮询刷新失败",
				zap.String("key", key.String()),
				zap.Error(err))
		}
	}
}

// Unwatch 解除指定键的轮询
func (p *Poller) Unwatch(key cache.Key) {
	p.mu.Lock()
	defer p.mu.Unlock()

	job, ok := p.jobs[key]
	if !ok {
		return
	}
	delete(p.jobs, key)

	if err := p.scheduler.RemoveJob(job.ID()); err != nil && p.logger != nil {
		p.logger.Warn("轮询任务移除失败",
			zap.String("key", key.String()),
			zap.Error(err))
	}
}

// Watching 当前在轮询的键数量
func (p *Poller) Watching() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

// Stop 关闭轮询器，取消全部任务
// 关闭后 Watch 返回 ErrPollerClosed
func (p *Poller) Stop() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.jobs = make(map[cache.Key]gocron.Job)
	p.mu.Unlock()

	return p.scheduler.Shutdown()
}
