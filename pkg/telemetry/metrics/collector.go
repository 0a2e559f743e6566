package metrics

import (
	"time"

	"labops/runsweep/pkg/config"
	"labops/runsweep/pkg/lifecycle"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every runsweep metric and the registry they are
// registered with. All Record methods are no-ops when metrics are disabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	cycle    *CycleMetrics
	gateway  *GatewayMetrics
	deletion *DeletionMetrics
}

// NewCollector creates a collector. If registry is nil a fresh registry
// is used.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.CycleDurationBuckets) == 0 {
		cfg.CycleDurationBuckets = config.DefaultCycleDurationBuckets()
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		cycle:    NewCycleMetrics(cfg, registry),
		gateway:  NewGatewayMetrics(cfg, registry),
		deletion: NewDeletionMetrics(cfg, registry),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordCycle records a finished reconciliation cycle. Outcome is
// "success" or "error".
func (c *Collector) RecordCycle(phase, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.cycle.cyclesTotal.WithLabelValues(phase, outcome).Inc()
	c.cycle.cycleDuration.WithLabelValues(phase).Observe(duration.Seconds())
	if outcome == "success" {
		c.cycle.lastSuccess.WithLabelValues(phase).SetToCurrentTime()
	}
}

// RecordDisposition counts one classified run.
func (c *Collector) RecordDisposition(d lifecycle.Disposition) {
	if !c.config.Enabled {
		return
	}
	c.cycle.dispositions.WithLabelValues(string(d)).Inc()
}

// SetMonitoredRuns records how many runs the last scan found.
func (c *Collector) SetMonitoredRuns(n int) {
	if !c.config.Enabled {
		return
	}
	c.cycle.monitoredRuns.Set(float64(n))
}

// SetIntentBatch records the size of the persisted deletion batch.
func (c *Collector) SetIntentBatch(n int) {
	if !c.config.Enabled {
		return
	}
	c.cycle.intentBatch.Set(float64(n))
}

// SetDiskUsage records the used fraction of the run volume in percent.
func (c *Collector) SetDiskUsage(usedPercent float64) {
	if !c.config.Enabled {
		return
	}
	c.cycle.diskUsage.Set(usedPercent)
}

// RecordGatewayCall records one call to an external system.
func (c *Collector) RecordGatewayCall(gateway, op string, err error, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
		c.gateway.errorsTotal.WithLabelValues(gateway, op).Inc()
	}
	c.gateway.callsTotal.WithLabelValues(gateway, op, status).Inc()
	c.gateway.callDuration.WithLabelValues(gateway, op).Observe(duration.Seconds())
}

// RecordSkippedRun counts a run excluded after a lookup failure.
func (c *Collector) RecordSkippedRun() {
	if !c.config.Enabled {
		return
	}
	c.gateway.skippedRuns.Inc()
}

// RecordDeletion records a deleted run directory.
func (c *Collector) RecordDeletion(sizeBytes int64) {
	if !c.config.Enabled {
		return
	}
	c.deletion.deletedRuns.Inc()
	c.deletion.deletedBytes.Add(float64(sizeBytes))
}

// RecordDeletionFailure counts a deletion halted by a filesystem error.
func (c *Collector) RecordDeletionFailure() {
	if !c.config.Enabled {
		return
	}
	c.deletion.failures.Inc()
}

// RecordRevalidationSkip counts a proposed run left in place because its
// ticket no longer permits deletion.
func (c *Collector) RecordRevalidationSkip() {
	if !c.config.Enabled {
		return
	}
	c.deletion.revalidationSkips.Inc()
}

// RecordNotification records one chat post. Kind is "digest" or "alert".
func (c *Collector) RecordNotification(kind string, err error) {
	if !c.config.Enabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.deletion.notifications.WithLabelValues(kind, status).Inc()
}
