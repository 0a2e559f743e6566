// Package telemetry groups the observability of runsweep.
//
// # Components
//
//   - logging: slog handlers with cycle ids and secret redaction
//   - metrics: Prometheus collectors, scraped in serve mode or pushed after a one-shot run
//   - tracing: OpenTelemetry spans over OTLP gRPC
//   - health: readiness checks and probe handlers for serve mode
//
// # Usage
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
//	slog.SetDefault(logger.Slog())
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
package telemetry
