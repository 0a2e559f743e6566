// Package metrics provides Prometheus metrics for runsweep.
//
// # Metrics Categories
//
//   - Cycle metrics: cycles by phase and outcome, duration, dispositions,
//     monitored runs, intent batch size and disk usage
//   - Gateway metrics: calls, latency and errors per external system
//   - Deletion metrics: deleted runs and bytes, halted batches,
//     revalidation skips and chat notifications
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordDisposition(lifecycle.FlagDelete)
//
// Serve mode mounts collector.Handler() at the metrics path. One-shot runs
// call collector.Push to hand the registry to a Pushgateway.
package metrics
