package reconcile

import (
	"context"
	"fmt"
	"time"

	"labops/runsweep/pkg/lifecycle"
	"labops/runsweep/pkg/lifecycle/classify"
	"labops/runsweep/pkg/lifecycle/scanner"
	"labops/runsweep/pkg/telemetry/tracing"
)

// Assess scans the monitored runs, looks up their remote and ticket state
// and classifies them. With OnErrorSkip, runs whose lookup failed are
// returned in skipped and left out of the decisions; with OnErrorAbort the
// first failure is returned.
func (e *Engine) Assess(ctx context.Context, now time.Time) ([]classify.Decision, []string, error) {
	ctx, span := e.deps.Tracer.Start(ctx, "reconcile.assess")

	res, err := e.deps.Scanner.Scan(ctx, scanner.Options{
		Sequencers: e.cfg.Sequencers,
		RunRoot:    e.cfg.RunRoot,
		LogRoot:    e.cfg.LogRoot,
	})
	if err != nil {
		tracing.End(span, err)
		return nil, nil, err
	}

	monitored := res.Monitored()
	e.deps.Metrics.SetMonitoredRuns(len(monitored))
	e.logger.InfoContext(ctx, "scan completed", "monitored", len(monitored))

	var (
		runs    []*lifecycle.Run
		skipped []string
	)
	for _, loc := range monitored {
		if err := ctx.Err(); err != nil {
			tracing.End(span, err)
			return nil, nil, err
		}

		run, err := e.inspect(ctx, loc)
		if err != nil {
			if e.cfg.OnLookupError != OnErrorSkip {
				tracing.End(span, err)
				return nil, nil, err
			}
			e.logger.WarnContext(ctx, "skipping run after lookup failure",
				"run", loc.Name,
				"sequencer", loc.Sequencer,
				"error", err,
			)
			e.deps.Metrics.RecordSkippedRun()
			skipped = append(skipped, loc.Name)
			continue
		}
		runs = append(runs, run)
	}

	decisions := classify.ClassifyAll(runs, now, e.cfg.Policy)
	for _, d := range decisions {
		e.deps.Metrics.RecordDisposition(d.Disposition)
		e.logger.DebugContext(ctx, "classified run",
			"run", d.Run.Name,
			"sequencer", d.Run.Sequencer,
			"disposition", d.Disposition,
			"reason", d.Reason,
		)
	}

	span.SetAttributes(tracing.AttrCount.Int(len(decisions)))
	tracing.End(span, nil)
	return decisions, skipped, nil
}

// inspect gathers the local, remote and ticket state of one run.
func (e *Engine) inspect(ctx context.Context, loc scanner.Location) (*lifecycle.Run, error) {
	ctx, span := e.deps.Tracer.Start(ctx, "reconcile.inspect",
		tracing.AttrRun.String(loc.Name),
		tracing.AttrSequencer.String(loc.Sequencer),
	)

	run, err := e.inspectRun(ctx, loc)
	tracing.End(span, err)
	return run, err
}

func (e *Engine) inspectRun(ctx context.Context, loc scanner.Location) (*lifecycle.Run, error) {
	name := loc.Name
	run := &lifecycle.Run{
		Name:      name,
		Sequencer: loc.Sequencer,
		Path:      loc.Path,
	}

	modTime, size, err := e.deps.Stat(run.Path)
	if err != nil {
		return nil, fmt.Errorf("stat run %s: %w", name, err)
	}
	run.ModTime = modTime
	run.SizeBytes = size

	start := time.Now()
	state, err := e.deps.Remote.Lookup(ctx, name)
	e.deps.Metrics.RecordGatewayCall("remote", "lookup", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	run.Uploaded = state.Uploaded
	run.Project = state.Project

	start = time.Now()
	match, err := e.deps.Tickets.GetIssueDetail(ctx, name)
	e.deps.Metrics.RecordGatewayCall("ticket", "search", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	run.Ticket = match

	return run, nil
}

// recordFor converts a decision into the record persisted and rendered in
// digests.
func recordFor(d classify.Decision, now time.Time) lifecycle.IntentRecord {
	run := d.Run
	rec := lifecycle.IntentRecord{
		Run:           run.Name,
		Sequencer:     run.Sequencer,
		Status:        run.Ticket.Status(),
		TicketKey:     run.Ticket.Key(),
		Assay:         run.Ticket.Assay(),
		CreatedDate:   run.ModTime.Format("2006-01-02"),
		DurationWeeks: lifecycle.WeeksBetween(run.ModTime, now),
		SizeBytes:     run.SizeBytes,
		ProposedAt:    now,
	}
	if run.Project != nil {
		rec.RemoteURL = run.Project.URL
	}
	return rec
}
