// Package component provides component interface definitions
package component

import "go.opentelemetry.io/otel/metric"

// MetricsProvider defines the interface for components that expose metrics.
// Components optionally implement this interface; the embedding application
// registers them against its own MeterProvider.
//
// Example implementation:
//
//	func (s *Store) MetricsName() string {
//	    return "cache"
//	}
//
//	func (s *Store) RegisterMetrics(meter metric.Meter) error {
//	    counter, err := meter.Int64Counter("cache_hits_total")
//	    if err != nil {
//	        return err
//	    }
//	    s.hitsCounter = counter
//	    return nil
//	}
//
//	func (s *Store) IsMetricsEnabled() bool {
//	    return s.config.Metrics.Enabled
//	}
type MetricsProvider interface {
	// MetricsName returns the metrics group name (used for Meter naming).
	// Should be a short, lowercase identifier like "cache", "push".
	MetricsName() string

	// RegisterMetrics registers all metrics for this component.
	RegisterMetrics(meter metric.Meter) error

	// IsMetricsEnabled returns whether metrics collection is enabled.
	IsMetricsEnabled() bool
}
