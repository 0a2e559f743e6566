package reconcile

import (
	"context"
	"time"

	"labops/runsweep/pkg/lifecycle"
	"labops/runsweep/pkg/lifecycle/classify"
	"labops/runsweep/pkg/notify"
	"labops/runsweep/pkg/telemetry/tracing"
)

// Propose replaces the intent store with the FlagDelete set and posts the
// pending-deletion and manual-review digests. An empty FlagDelete set
// clears the store. It returns the number of stored records. Only a store
// failure is returned as an error; digest failures are alerted and added
// to report warnings.
func (e *Engine) Propose(ctx context.Context, decisions []classify.Decision, usage lifecycle.DiskUsage, report *Report) (int, error) {
	ctx, span := e.deps.Tracer.Start(ctx, "reconcile.propose")
	start := time.Now()
	now := e.deps.Now()

	byDisposition := classify.Partition(decisions)
	pending := make([]lifecycle.IntentRecord, 0, len(byDisposition[lifecycle.FlagDelete]))
	for _, d := range byDisposition[lifecycle.FlagDelete] {
		pending = append(pending, recordFor(d, now))
	}

	if err := e.deps.Store.Replace(ctx, pending); err != nil {
		e.deps.Metrics.RecordCycle("propose", "error", time.Since(start))
		tracing.End(span, err)
		return 0, err
	}
	e.deps.Metrics.SetIntentBatch(len(pending))
	e.logger.InfoContext(ctx, "deletion intent stored",
		"runs", len(pending),
		"execute_on", e.nextExecuteDay(now).Format("2006-01-02"),
	)

	opts := notify.RenderOptions{RunRoot: e.cfg.RunRoot, TicketURL: e.cfg.TicketURL, Now: now}

	if len(pending) > 0 {
		pretext := notify.PendingPretext(len(pending), e.nextExecuteDay(now), usage)
		err := e.deps.Notifier.PostDigest(ctx, e.cfg.DigestChannel, pretext, notify.RenderPending(pending, opts), e.cfg.ChunkLimit)
		e.notificationResult(ctx, "pending_digest", err, report)
	}

	var review []lifecycle.IntentRecord
	for _, d := range byDisposition[lifecycle.FlagManualReview] {
		review = append(review, recordFor(d, now))
	}
	if blocks := notify.RenderStale(review, opts); len(blocks) > 0 {
		err := e.deps.Notifier.PostDigest(ctx, e.cfg.DigestChannel, notify.StalePretext(len(blocks), usage), blocks, e.cfg.ChunkLimit)
		e.notificationResult(ctx, "stale_digest", err, report)
	}

	e.deps.Metrics.RecordCycle("propose", "success", time.Since(start))
	span.SetAttributes(tracing.AttrCount.Int(len(pending)))
	tracing.End(span, nil)
	return len(pending), nil
}

// nextExecuteDay returns the first execute weekday strictly after now.
func (e *Engine) nextExecuteDay(now time.Time) time.Time {
	days := (int(e.cfg.ExecuteWeekday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

func (e *Engine) notificationResult(ctx context.Context, kind string, err error, report *Report) {
	e.deps.Metrics.RecordNotification(kind, err)
	if err == nil {
		return
	}
	nerr := &lifecycle.NotificationError{Channel: e.cfg.DigestChannel, Cause: err}
	e.logger.ErrorContext(ctx, "failed to post digest", "kind", kind, "error", nerr)
	if report != nil {
		report.warn(nerr)
	}
	e.alert(ctx, ":warning: failed to post "+kind+"\n```"+err.Error()+"```")
}
