package push

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelPushMetrics implements component.MetricsProvider for OpenTelemetry integration.
type OTelPushMetrics struct {
	enabled    bool
	registered bool
	mu         sync.RWMutex

	connectsTotal      metric.Int64Counter
	disconnectsTotal   metric.Int64Counter
	eventsTotal        metric.Int64Counter
	droppedFramesTotal metric.Int64Counter
}

// NewOTelPushMetrics creates an OTel metrics provider for the push client.
func NewOTelPushMetrics(enabled bool) *OTelPushMetrics {
	return &OTelPushMetrics{enabled: enabled}
}

// MetricsName returns the metrics group name.
func (m *OTelPushMetrics) MetricsName() string {
	return "push"
}

// IsMetricsEnabled returns whether metrics collection is enabled.
func (m *OTelPushMetrics) IsMetricsEnabled() bool {
	return m.enabled
}

// RegisterMetrics registers all push metrics with the provided Meter.
func (m *OTelPushMetrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	var err error

	m.connectsTotal, err = meter.Int64Counter(
		"push_connects_total",
		metric.WithDescription("Total number of established event streams"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}

	m.disconnectsTotal, err = meter.Int64Counter(
		"push_disconnects_total",
		metric.WithDescription("Total number of dropped event streams"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return err
	}

	m.eventsTotal, err = meter.Int64Counter(
		"push_events_total",
		metric.WithDescription("Total number of received push events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	m.droppedFramesTotal, err = meter.Int64Counter(
		"push_dropped_frames_total",
		metric.WithDescription("Total number of malformed frames dropped"),
		metric.WithUnit("{frame}"),
	)
	if err != nil {
		return err
	}

	m.registered = true
	return nil
}

// IsRegistered returns whether metrics have been registered.
func (m *OTelPushMetrics) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

// RecordConnect records an established stream.
func (m *OTelPushMetrics) RecordConnect(ctx context.Context) {
	if !m.IsRegistered() {
		return
	}
	m.connectsTotal.Add(ctx, 1)
}

// RecordDisconnect records a dropped stream.
func (m *OTelPushMetrics) RecordDisconnect(ctx context.Context) {
	if !m.IsRegistered() {
		return
	}
	m.disconnectsTotal.Add(ctx, 1)
}

// RecordEvent records a received event by type.
func (m *OTelPushMetrics) RecordEvent(ctx context.Context, eventType string) {
	if !m.IsRegistered() {
		return
	}
	m.eventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
	))
}

// RecordDropped records a malformed frame drop.
func (m *OTelPushMetrics) RecordDropped(ctx context.Context) {
	if !m.IsRegistered() {
		return
	}
	m.droppedFramesTotal.Add(ctx, 1)
}
