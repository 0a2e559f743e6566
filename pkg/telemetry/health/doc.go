// Package health provides liveness and readiness probes for serve mode.
//
// Readiness runs every registered check concurrently with a per-check
// timeout. runsweep registers a directory check for the run and log roots
// and a freshness check on the last successful cycle.
package health
