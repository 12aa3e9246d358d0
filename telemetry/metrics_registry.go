// Package telemetry 提供指标注册中心：
// 各部件实现 component.MetricsProvider，由注册中心统一分配 Meter 并注册
package telemetry

import (
	"sync"

	"github.com/KOMKZ/go-dashsync/component"
	"github.com/KOMKZ/go-dashsync/errcode"
	"github.com/KOMKZ/go-dashsync/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// 遥测模块错误码（模块码 27）
var (
	// ErrNilProvider 指标提供者为空
	ErrNilProvider = errcode.Register(errcode.New(27, 1, "telemetry", "指标提供者为空"))

	// ErrDuplicateProvider 指标提供者重复注册
	ErrDuplicateProvider = errcode.Register(errcode.New(27, 2, "telemetry", "指标提供者重复注册"))

	// ErrRegisterFailed 指标注册失败
	ErrRegisterFailed = errcode.Register(errcode.New(27, 3, "telemetry", "指标注册失败"))
)

// MetricsRegistry 指标注册中心
// 按提供者名分配独立 Meter（{namespace}_{name}），禁止重名
type MetricsRegistry struct {
	meterProvider metric.MeterProvider
	namespace     string
	logger        *logger.CtxZapLogger

	mu        sync.RWMutex
	meters    map[string]metric.Meter
	providers []component.MetricsProvider
}

// Option 注册中心选项
type Option func(*MetricsRegistry)

// WithNamespace 设置指标命名空间前缀
func WithNamespace(namespace string) Option {
	return func(r *MetricsRegistry) { r.namespace = namespace }
}

// WithLogger 注入日志
func WithLogger(l *logger.CtxZapLogger) Option {
	return func(r *MetricsRegistry) { r.logger = l }
}

// NewMetricsRegistry 创建注册中心
// mp 为 nil 时用全局 MeterProvider
func NewMetricsRegistry(mp metric.MeterProvider, opts ...Option) *MetricsRegistry {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	r := &MetricsRegistry{
		meterProvider: mp,
		namespace:     "dashsync",
		meters:        make(map[string]metric.Meter),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register 注册一个指标提供者
// 未启用指标的提供者直接跳过；重名返回错误
func (r *MetricsRegistry) Register(provider component.MetricsProvider) error {
	if provider == nil {
		return ErrNilProvider
	}
	if !provider.IsMetricsEnabled() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.MetricsName()
	if name == "" {
		return ErrNilProvider.WithMsg("指标提供者名为空")
	}
	for _, p := range r.providers {
		if p.MetricsName() == name {
			return ErrDuplicateProvider.WithData("provider", name)
		}
	}

	if err := provider.RegisterMetrics(r.getMeterLocked(name)); err != nil {
		return ErrRegisterFailed.WithData("provider", name).Wrap(err)
	}
	r.providers = append(r.providers, provider)

	if r.logger != nil {
		r.logger.Debug("指标提供者已注册", zap.String("provider", name))
	}
	return nil
}

// RegisterAll 批量注册，遇到第一个错误即停止
func (r *MetricsRegistry) RegisterAll(providers ...component.MetricsProvider) error {
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// GetMeter 返回指定名称的 Meter（按需创建）
func (r *MetricsRegistry) GetMeter(name string) metric.Meter {
	r.mu.RLock()
	if meter, ok := r.meters[name]; ok {
		r.mu.RUnlock()
		return meter
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getMeterLocked(name)
}

func (r *MetricsRegistry) getMeterLocked(name string) metric.Meter {
	if meter, ok := r.meters[name]; ok {
		return meter
	}

	meterName := name
	if r.namespace != "" {
		meterName = r.namespace + "_" + name
	}

	meter := r.meterProvider.Meter(meterName)
	r.meters[name] = meter
	return meter
}

// Names 已注册的提供者名
func (r *MetricsRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.MetricsName())
	}
	return names
}

// Count 已注册的提供者数量
func (r *MetricsRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
