package metrics

import (
	"labops/runsweep/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CycleMetrics tracks reconciliation cycles.
//
// Metrics:
//   - runsweep_cycles_total: cycles by phase and outcome
//   - runsweep_cycle_duration_seconds: cycle duration histogram
//   - runsweep_last_success_timestamp_seconds: last successful cycle per phase
//   - runsweep_dispositions_total: classified runs by disposition
//   - runsweep_monitored_runs: runs found by the last scan
//   - runsweep_intent_batch_runs: runs in the persisted deletion batch
//   - runsweep_disk_used_percent: run volume usage
type CycleMetrics struct {
	cyclesTotal   *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	lastSuccess   *prometheus.GaugeVec
	dispositions  *prometheus.CounterVec
	monitoredRuns prometheus.Gauge
	intentBatch   prometheus.Gauge
	diskUsage     prometheus.Gauge
}

// NewCycleMetrics creates and registers cycle metrics.
func NewCycleMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CycleMetrics {
	m := &CycleMetrics{
		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "cycles_total",
				Help:      "Total number of reconciliation cycles",
			},
			[]string{"phase", "outcome"},
		),
		cycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Duration of reconciliation cycles in seconds",
				Buckets:   cfg.CycleDurationBuckets,
			},
			[]string{"phase"},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful cycle",
			},
			[]string{"phase"},
		),
		dispositions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "dispositions_total",
				Help:      "Classified runs by disposition",
			},
			[]string{"disposition"},
		),
		monitoredRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "monitored_runs",
			Help:      "Runs with both a directory and an upload log in the last scan",
		}),
		intentBatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "intent_batch_runs",
			Help:      "Runs in the persisted deletion batch",
		}),
		diskUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "disk_used_percent",
			Help:      "Used space of the run volume in percent",
		}),
	}

	registry.MustRegister(
		m.cyclesTotal,
		m.cycleDuration,
		m.lastSuccess,
		m.dispositions,
		m.monitoredRuns,
		m.intentBatch,
		m.diskUsage,
	)
	return m
}
