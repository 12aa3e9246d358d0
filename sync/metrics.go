package sync

import (
	"github.com/KOMKZ/go-dashsync/component"
	"go.opentelemetry.io/otel/metric"
)

// MetricsName implements component.MetricsProvider.
func (s *Syncer) MetricsName() string {
	return "sync"
}

// IsMetricsEnabled implements component.MetricsProvider.
func (s *Syncer) IsMetricsEnabled() bool {
	return s.config != nil && s.config.MetricsEnabled
}

// RegisterMetrics registers the metrics of every enabled part against the
// same Meter, so the embedding application wires the whole layer in one call.
func (s *Syncer) RegisterMetrics(meter metric.Meter) error {
	var providers []component.MetricsProvider
	if s.cacheMetrics != nil {
		providers = append(providers, s.cacheMetrics)
	}
	if s.mutationMetrics != nil {
		providers = append(providers, s.mutationMetrics)
	}
	if s.pushMetrics != nil {
		providers = append(providers, s.pushMetrics)
	}

	for _, p := range providers {
		if !p.IsMetricsEnabled() {
			continue
		}
		if err := p.RegisterMetrics(meter); err != nil {
			return err
		}
	}
	return nil
}
