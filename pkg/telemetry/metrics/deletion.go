package metrics

import (
	"labops/runsweep/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DeletionMetrics tracks the execute phase and notifications.
type DeletionMetrics struct {
	deletedRuns       prometheus.Counter
	deletedBytes      prometheus.Counter
	failures          prometheus.Counter
	revalidationSkips prometheus.Counter
	notifications     *prometheus.CounterVec
}

// NewDeletionMetrics creates and registers deletion metrics.
func NewDeletionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DeletionMetrics {
	m := &DeletionMetrics{
		deletedRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "deleted_runs_total",
			Help:      "Run directories deleted",
		}),
		deletedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "deleted_bytes_total",
			Help:      "Bytes freed by deleted run directories",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "deletion_failures_total",
			Help:      "Deletion batches halted by a filesystem error",
		}),
		revalidationSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "revalidation_skips_total",
			Help:      "Proposed runs kept because their ticket no longer permits deletion",
		}),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "notifications_total",
				Help:      "Chat posts by kind and status",
			},
			[]string{"kind", "status"},
		),
	}

	registry.MustRegister(m.deletedRuns, m.deletedBytes, m.failures, m.revalidationSkips, m.notifications)
	return m
}
