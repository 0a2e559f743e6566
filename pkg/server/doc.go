// Package server exposes the serve-mode HTTP surface.
//
// Routes:
//
//	GET /healthz          liveness
//	GET /readyz           readiness (directories, last cycle freshness)
//	GET /version          build information
//	GET /metrics          Prometheus metrics (path configurable)
//	GET /v1/intents       pending deletion batch
//	GET /v1/cycles/last   report of the most recent cycle and the next run
//
// The server is read-only; cycles are started by the scheduler.
package server
