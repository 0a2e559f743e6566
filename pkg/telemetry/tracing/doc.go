// Package tracing exports reconciliation cycle spans over OTLP.
//
// A cycle produces one root span per phase with child spans for each run
// lookup and deletion:
//
//	ctx, span := tracer.Start(ctx, "reconcile.propose", tracing.AttrCycleID.String(id))
//	defer func() { tracing.End(span, err) }()
//
// When tracing is disabled New returns a tracer whose spans are noops.
package tracing
