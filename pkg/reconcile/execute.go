package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"labops/runsweep/pkg/audit"
	"labops/runsweep/pkg/lifecycle"
	"labops/runsweep/pkg/telemetry/logging"
	"labops/runsweep/pkg/telemetry/tracing"
	"labops/runsweep/pkg/ticket"
)

// SkippedRecord is a stored run that was not deleted on execute day.
type SkippedRecord struct {
	Run    string `json:"run"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// ExecutionResult summarises an execute step.
type ExecutionResult struct {
	Deleted  []lifecycle.IntentRecord `json:"deleted"`
	Skipped  []SkippedRecord          `json:"skipped,omitempty"`
	AckKey   string                   `json:"ack_key,omitempty"`
	Before   lifecycle.DiskUsage      `json:"before"`
	After    lifecycle.DiskUsage      `json:"after"`
	Warnings []string                 `json:"warnings,omitempty"`
}

// Execute deletes the stored runs whose ticket is still in a terminal
// state. The first filesystem error halts the batch, clears the store,
// alerts and returns a *lifecycle.DeletionError. A ticket re-check failure
// with OnErrorAbort halts the batch and keeps only the runs not yet
// deleted in the store. After one or more deletions an acknowledgement
// ticket is created. The store is cleared once the batch completes.
func (e *Engine) Execute(ctx context.Context, before lifecycle.DiskUsage) (*ExecutionResult, error) {
	ctx, span := e.deps.Tracer.Start(ctx, "reconcile.execute")
	start := time.Now()

	res, err := e.execute(ctx, before)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	e.deps.Metrics.RecordCycle("execute", outcome, time.Since(start))
	if res != nil {
		span.SetAttributes(tracing.AttrCount.Int(len(res.Deleted)))
	}
	tracing.End(span, err)
	return res, err
}

func (e *Engine) execute(ctx context.Context, before lifecycle.DiskUsage) (*ExecutionResult, error) {
	records, err := e.deps.Store.Load(ctx)
	if err != nil {
		e.alert(ctx, fmt.Sprintf(":warning: failed to load deletion intent\n```%v```", err))
		return nil, err
	}

	res := &ExecutionResult{Before: before}
	if len(records) == 0 {
		e.logger.InfoContext(ctx, "no runs proposed for deletion")
		return res, nil
	}
	e.logger.InfoContext(ctx, "executing deletion batch", "runs", len(records))

	var lookupFailures []string
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, e.keepPending(ctx, records[i:], res, err)
		}

		match, err := e.revalidate(ctx, rec)
		if err != nil {
			if e.cfg.OnLookupError != OnErrorSkip {
				e.alert(ctx, fmt.Sprintf(":warning: ticket re-check for `%s` failed, deletion halted\n```%v```", rec.Run, err))
				return res, e.keepPending(ctx, records[i:], res, err)
			}
			e.deps.Metrics.RecordSkippedRun()
			lookupFailures = append(lookupFailures, rec.Run)
			res.Skipped = append(res.Skipped, SkippedRecord{Run: rec.Run, Reason: "ticket lookup failed"})
			continue
		}

		if reason := e.ineligible(match, rec); reason != "" {
			e.deps.Metrics.RecordRevalidationSkip()
			e.logger.InfoContext(ctx, "ticket state no longer allows deletion, skipping",
				"run", rec.Run,
				"status", match.Status(),
				"reason", reason,
			)
			res.Skipped = append(res.Skipped, SkippedRecord{Run: rec.Run, Status: match.Status(), Reason: reason})
			continue
		}

		deleted, err := e.deleteRun(ctx, rec, match)
		if err != nil {
			return res, e.haltBatch(ctx, rec, err)
		}
		if !deleted {
			res.Skipped = append(res.Skipped, SkippedRecord{Run: rec.Run, Status: match.Status(), Reason: "run directory missing"})
			continue
		}
		rec.Status = match.Status()
		res.Deleted = append(res.Deleted, rec)
	}

	if len(lookupFailures) > 0 {
		e.alert(ctx, fmt.Sprintf(":warning: ticket re-check failed for %d runs, not deleted: %s",
			len(lookupFailures), strings.Join(lookupFailures, ", ")))
	}

	if len(res.Deleted) > 0 {
		after, err := e.deps.Usage(e.cfg.RunRoot)
		if err != nil {
			e.logger.WarnContext(ctx, "failed to read disk usage after deletion", "error", err)
		}
		res.After = after
		e.deps.Metrics.SetDiskUsage(after.UsedPercent())
		e.acknowledge(ctx, res)
	}

	if err := e.deps.Store.Clear(ctx); err != nil {
		e.alert(ctx, fmt.Sprintf(":warning: failed to clear deletion intent\n```%v```", err))
		return res, err
	}
	e.deps.Metrics.SetIntentBatch(0)

	e.logger.InfoContext(ctx, "deletion batch completed",
		"deleted", len(res.Deleted),
		"skipped", len(res.Skipped),
		"ack", res.AckKey,
	)
	return res, nil
}

func (e *Engine) revalidate(ctx context.Context, rec lifecycle.IntentRecord) (lifecycle.TicketMatch, error) {
	start := time.Now()
	match, err := e.deps.Tickets.GetIssueDetail(ctx, rec.Run)
	e.deps.Metrics.RecordGatewayCall("ticket", "revalidate", err, time.Since(start))
	return match, err
}

// ineligible returns why match no longer permits deletion of rec, or "" if
// it does.
func (e *Engine) ineligible(match lifecycle.TicketMatch, rec lifecycle.IntentRecord) string {
	switch {
	case match.Kind == lifecycle.MatchNone:
		return "ticket no longer found"
	case match.Kind == lifecycle.MatchAmbiguous:
		return "multiple tickets found"
	case rec.TicketKey != "" && match.Key() != rec.TicketKey:
		return fmt.Sprintf("ticket changed from %s to %s", rec.TicketKey, match.Key())
	case !e.cfg.Policy.IsDeleteState(match.Status()):
		return fmt.Sprintf("status %q is not terminal", match.NormalizedStatus())
	}
	return ""
}

func (e *Engine) runPath(rec lifecycle.IntentRecord) string {
	return filepath.Join(e.cfg.RunRoot, rec.Sequencer, rec.Run)
}

// deleteRun removes the run directory. It reports false without error when
// the directory is already gone.
func (e *Engine) deleteRun(ctx context.Context, rec lifecycle.IntentRecord, match lifecycle.TicketMatch) (bool, error) {
	path := e.runPath(rec)
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.WarnContext(ctx, "run directory already gone, skipping", "run", rec.Run, "path", path)
			return false, nil
		}
		e.deps.Metrics.RecordDeletionFailure()
		return false, &lifecycle.DeletionError{Run: rec.Run, Path: path, Cause: err}
	}
	e.logger.InfoContext(ctx, "deleting run", "run", rec.Run, "path", path)

	if err := e.deps.Remove(path); err != nil {
		e.deps.Metrics.RecordDeletionFailure()
		return false, &lifecycle.DeletionError{Run: rec.Run, Path: path, Cause: err}
	}
	e.deps.Metrics.RecordDeletion(rec.SizeBytes)

	ev := audit.NewEvent(logging.CycleID(ctx), rec.Run, rec.Sequencer, path, e.deps.Now())
	ev.TicketKey = match.Key()
	ev.Status = match.Status()
	ev.SizeBytes = rec.SizeBytes
	if err := e.deps.Audit.Record(ctx, ev); err != nil {
		e.logger.ErrorContext(ctx, "failed to record deletion", "run", rec.Run, "error", err)
		e.alert(ctx, fmt.Sprintf(":warning: `%s` deleted but audit record failed\n```%v```", path, err))
	}
	return true, nil
}

// keepPending rewrites the store with the records of an interrupted batch
// that were not deleted, so a later execute never reports them twice.
func (e *Engine) keepPending(ctx context.Context, pending []lifecycle.IntentRecord, res *ExecutionResult, cause error) error {
	if len(res.Deleted) == 0 {
		return cause
	}
	if err := e.deps.Store.Replace(ctx, pending); err != nil {
		e.logger.ErrorContext(ctx, "failed to drop deleted runs from deletion intent", "error", err)
		return errors.Join(cause, fmt.Errorf("replace intent store: %w", err))
	}
	e.deps.Metrics.SetIntentBatch(len(pending))
	return cause
}

// haltBatch stops the batch after a filesystem error. The store is cleared
// so the same batch is never retried blindly.
func (e *Engine) haltBatch(ctx context.Context, rec lifecycle.IntentRecord, err error) error {
	e.logger.ErrorContext(ctx, "deletion failed, stopping further automatic deletion",
		"run", rec.Run,
		"error", err,
	)

	if clearErr := e.deps.Store.Clear(ctx); clearErr != nil {
		e.logger.ErrorContext(ctx, "failed to clear deletion intent", "error", clearErr)
		err = errors.Join(err, fmt.Errorf("clear intent store: %w", clearErr))
	}
	e.deps.Metrics.SetIntentBatch(0)

	e.alert(ctx, fmt.Sprintf(":warning: error deleting `%s`. Stopping further automatic deletion.\n```%v```", rec.Run, err))
	return err
}

// acknowledge raises the ticket summarising the deleted runs. A failure is
// alerted and recorded as a warning.
func (e *Engine) acknowledge(ctx context.Context, res *ExecutionResult) {
	now := e.deps.Now()
	req := ticket.IssueRequest{
		Summary:     AckSummary(now),
		IssueTypeID: e.cfg.Ack.IssueTypeID,
		ProjectID:   e.cfg.Ack.ProjectID,
		ReporterID:  e.cfg.Ack.ReporterID,
		PriorityID:  e.cfg.Ack.PriorityID,
		Description: AckDescription(now, e.cfg.RunRoot, res.Deleted, res.Before, res.After),
	}

	created, err := e.deps.Tickets.CreateIssue(ctx, req)
	e.deps.Metrics.RecordNotification("ack_ticket", err)
	if err != nil {
		nerr := &lifecycle.NotificationError{Channel: "ticket", Cause: err}
		e.logger.ErrorContext(ctx, "failed to create acknowledgement ticket", "error", nerr)
		res.Warnings = append(res.Warnings, nerr.Error())
		e.alert(ctx, fmt.Sprintf(":warning: error creating acknowledgement ticket!\n`%v`", err))
		return
	}
	res.AckKey = created.Key
	e.logger.InfoContext(ctx, "acknowledgement ticket created", "key", created.Key)
}
