// Package audit records every run directory the engine deletes.
//
// The durable record is an append-only text file with one
// "<path> <timestamp>" line per deletion. Events may additionally be
// published to Kafka for downstream consumers; publishing is best effort
// and never fails a deletion that already happened.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventRunDeleted is the type of a deletion event.
const EventRunDeleted = "run.deleted"

// Event describes one deleted run.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CycleID   string    `json:"cycle_id"`
	Run       string    `json:"run"`
	Sequencer string    `json:"sequencer"`
	Path      string    `json:"path"`
	TicketKey string    `json:"ticket_key"`
	Status    string    `json:"status"`
	SizeBytes int64     `json:"size_bytes"`
	DeletedAt time.Time `json:"deleted_at"`
}

// NewEvent creates a deletion event with a fresh id.
func NewEvent(cycleID, run, sequencer, path string, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      EventRunDeleted,
		CycleID:   cycleID,
		Run:       run,
		Sequencer: sequencer,
		Path:      path,
		DeletedAt: at,
	}
}

// Publisher sends events to a secondary sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Trail writes the durable log and fans events out to publishers.
type Trail struct {
	log        *FileLog
	publishers []Publisher
	logger     *slog.Logger
}

// NewTrail creates a trail. log may be nil in dry runs.
func NewTrail(log *FileLog, publishers ...Publisher) *Trail {
	return &Trail{
		log:        log,
		publishers: publishers,
		logger:     slog.Default().With("component", "audit"),
	}
}

// Record appends the audit line and publishes the event. Only the
// durable log write can fail the call.
func (t *Trail) Record(ctx context.Context, ev Event) error {
	if t.log != nil {
		if err := t.log.Append(ev.Path, ev.DeletedAt); err != nil {
			return err
		}
	}

	for _, p := range t.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			t.logger.Warn("failed to publish audit event",
				"run", ev.Run,
				"event_id", ev.ID,
				"error", err,
			)
		}
	}
	return nil
}

// Close closes the log and all publishers.
func (t *Trail) Close() error {
	var firstErr error
	for _, p := range t.publishers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if t.log != nil {
		if err := t.log.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
