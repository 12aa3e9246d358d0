package cache

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelCacheMetrics implements component.MetricsProvider for OpenTelemetry integration.
type OTelCacheMetrics struct {
	enabled    bool
	registered bool
	mu         sync.RWMutex

	hitsTotal          metric.Int64Counter
	missesTotal        metric.Int64Counter
	fetchesTotal       metric.Int64Counter
	invalidationsTotal metric.Int64Counter
	evictionsTotal     metric.Int64Counter
}

// NewOTelCacheMetrics creates an OTel metrics provider for the cache store.
func NewOTelCacheMetrics(enabled bool) *OTelCacheMetrics {
	return &OTelCacheMetrics{enabled: enabled}
}

// MetricsName returns the metrics group name.
func (m *OTelCacheMetrics) MetricsName() string {
	return "cache"
}

// IsMetricsEnabled returns whether metrics collection is enabled.
func (m *OTelCacheMetrics) IsMetricsEnabled() bool {
	return m.enabled
}

// RegisterMetrics registers all cache metrics with the provided Meter.
func (m *OTelCacheMetrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	var err error

	m.hitsTotal, err = meter.Int64Counter(
		"cache_hits_total",
		metric.WithDescription("Total number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	m.missesTotal, err = meter.Int64Counter(
		"cache_misses_total",
		metric.WithDescription("Total number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}

	m.fetchesTotal, err = meter.Int64Counter(
		"cache_fetches_total",
		metric.WithDescription("Total number of upstream fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	m.invalidationsTotal, err = meter.Int64Counter(
		"cache_invalidations_total",
		metric.WithDescription("Total number of invalidated entries"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	m.evictionsTotal, err = meter.Int64Counter(
		"cache_evictions_total",
		metric.WithDescription("Total number of evicted entries"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	m.registered = true
	return nil
}

// IsRegistered returns whether metrics have been registered.
func (m *OTelCacheMetrics) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

func keyAttrs(key Key) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("kind", string(key.Kind)),
		attribute.String("scope", string(key.Scope)),
	}
}

// RecordHit records a cache hit.
func (m *OTelCacheMetrics) RecordHit(ctx context.Context, key Key) {
	if !m.IsRegistered() {
		return
	}
	m.hitsTotal.Add(ctx, 1, metric.WithAttributes(keyAttrs(key)...))
}

// RecordMiss records a cache miss.
func (m *OTelCacheMetrics) RecordMiss(ctx context.Context, key Key) {
	if !m.IsRegistered() {
		return
	}
	m.missesTotal.Add(ctx, 1, metric.WithAttributes(keyAttrs(key)...))
}

// RecordFetch records an upstream fetch.
func (m *OTelCacheMetrics) RecordFetch(ctx context.Context, key Key) {
	if !m.IsRegistered() {
		return
	}
	m.fetchesTotal.Add(ctx, 1, metric.WithAttributes(keyAttrs(key)...))
}

// RecordInvalidation records invalidated entries under a prefix.
func (m *OTelCacheMetrics) RecordInvalidation(ctx context.Context, prefix Key, count int) {
	if !m.IsRegistered() {
		return
	}
	m.invalidationsTotal.Add(ctx, int64(count), metric.WithAttributes(keyAttrs(prefix)...))
}

// RecordEviction records evicted entries under a prefix.
func (m *OTelCacheMetrics) RecordEviction(ctx context.Context, prefix Key, count int) {
	if !m.IsRegistered() {
		return
	}
	m.evictionsTotal.Add(ctx, int64(count), metric.WithAttributes(keyAttrs(prefix)...))
}
