package mutation

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// OTelMutationMetrics implements component.MetricsProvider for OpenTelemetry integration.
type OTelMutationMetrics struct {
	enabled    bool
	registered bool
	mu         sync.RWMutex

	appliedTotal    metric.Int64Counter
	committedTotal  metric.Int64Counter
	rolledBackTotal metric.Int64Counter
}

// NewOTelMutationMetrics creates an OTel metrics provider for the mutator.
func NewOTelMutationMetrics(enabled bool) *OTelMutationMetrics {
	return &OTelMutationMetrics{enabled: enabled}
}

// MetricsName returns the metrics group name.
func (m *OTelMutationMetrics) MetricsName() string {
	return "mutation"
}

// IsMetricsEnabled returns whether metrics collection is enabled.
func (m *OTelMutationMetrics) IsMetricsEnabled() bool {
	return m.enabled
}

// RegisterMetrics registers all mutation metrics with the provided Meter.
func (m *OTelMutationMetrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	var err error

	m.appliedTotal, err = meter.Int64Counter(
		"mutation_patches_applied_total",
		metric.WithDescription("Total number of optimistic patches applied to cache entries"),
		metric.WithUnit("{patch}"),
	)
	if err != nil {
		return err
	}

	m.committedTotal, err = meter.Int64Counter(
		"mutation_committed_total",
		metric.WithDescription("Total number of mutations confirmed by the server"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return err
	}

	m.rolledBackTotal, err = meter.Int64Counter(
		"mutation_rolled_back_total",
		metric.WithDescription("Total number of mutations rolled back to their snapshot"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return err
	}

	m.registered = true
	return nil
}

// IsRegistered returns whether metrics have been registered.
func (m *OTelMutationMetrics) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

// RecordApplied records optimistic patches applied to the store.
func (m *OTelMutationMetrics) RecordApplied(ctx context.Context, count int) {
	if !m.IsRegistered() {
		return
	}
	m.appliedTotal.Add(ctx, int64(count))
}

// RecordCommitted records a server-confirmed mutation.
func (m *OTelMutationMetrics) RecordCommitted(ctx context.Context) {
	if !m.IsRegistered() {
		return
	}
	m.committedTotal.Add(ctx, 1)
}

// RecordRolledBack records a rolled-back mutation.
func (m *OTelMutationMetrics) RecordRolledBack(ctx context.Context) {
	if !m.IsRegistered() {
		return
	}
	m.rolledBackTotal.Add(ctx, 1)
}
