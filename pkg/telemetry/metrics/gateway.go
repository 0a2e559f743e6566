package metrics

import (
	"labops/runsweep/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics tracks calls to the platform, staging and ticketing systems.
type GatewayMetrics struct {
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	errorsTotal  *prometheus.CounterVec
	skippedRuns  prometheus.Counter
}

// NewGatewayMetrics creates and registers gateway metrics.
func NewGatewayMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *GatewayMetrics {
	m := &GatewayMetrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "gateway",
				Name:      "calls_total",
				Help:      "Calls to external systems by gateway, operation and status",
			},
			[]string{"gateway", "op", "status"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "gateway",
				Name:      "call_duration_seconds",
				Help:      "Duration of calls to external systems",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"gateway", "op"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "gateway",
				Name:      "errors_total",
				Help:      "Failed calls to external systems",
			},
			[]string{"gateway", "op"},
		),
		skippedRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "gateway",
			Name:      "skipped_runs_total",
			Help:      "Runs excluded from a cycle after a lookup failure",
		}),
	}

	registry.MustRegister(m.callsTotal, m.callDuration, m.errorsTotal, m.skippedRuns)
	return m
}
