// Package metrics provides Prometheus metrics collection for the
// metering gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the gateway.
type Collector struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Quota metrics
	QuotaChecks *prometheus.CounterVec
	QuotaResets *prometheus.CounterVec

	// Rate limit metrics
	RateLimitDecisions *prometheus.CounterVec

	// Store metrics
	StoreErrors prometheus.Counter

	// Entitlement sync metrics
	SyncEvents *prometheus.CounterVec
}

// New creates a new metrics collector registered on the default
// registry.
func New() *Collector {
	return newWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a collector on a custom registry (for
// tests, which would otherwise collide on the default registry).
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newWith(promauto.With(reg))
}

func newWith(factory promauto.Factory) *Collector {
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "metergate",
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "metergate",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"path"},
		),
		QuotaChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "metergate",
				Name:      "quota_checks_total",
				Help:      "Usage accounting outcomes",
			},
			[]string{"plan", "outcome"},
		),
		QuotaResets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "metergate",
				Name:      "quota_resets_total",
				Help:      "Period rollover resets applied",
			},
			[]string{"plan"},
		),
		RateLimitDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "metergate",
				Name:      "ratelimit_decisions_total",
				Help:      "Rate limiter outcomes",
			},
			[]string{"outcome"},
		),
		StoreErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "metergate",
				Name:      "store_errors_total",
				Help:      "Key-value store failures",
			},
		),
		SyncEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "metergate",
				Name:      "entitlement_sync_events_total",
				Help:      "Billing lifecycle events applied to tier assignments",
			},
			[]string{"event"},
		),
	}
}
