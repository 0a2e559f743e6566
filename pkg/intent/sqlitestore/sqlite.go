// Package sqlitestore keeps the intent batch in a SQLite table.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"labops/runsweep/pkg/intent"
	"labops/runsweep/pkg/lifecycle"
)

const schema = `
CREATE TABLE IF NOT EXISTS deletion_intents (
	run TEXT PRIMARY KEY,
	sequencer TEXT NOT NULL,
	status TEXT NOT NULL,
	ticket_key TEXT NOT NULL,
	assay TEXT NOT NULL,
	created_date TEXT NOT NULL,
	duration_weeks REAL NOT NULL,
	remote_url TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	proposed_at INTEGER NOT NULL
);
`

// Config configures the SQLite store.
type Config struct {
	// Path is the database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// Store is a SQLite-backed intent.Store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the database.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "intent", "backend", "sqlite"),
	}, nil
}

// Load implements intent.Store.
func (s *Store) Load(ctx context.Context) ([]lifecycle.IntentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run, sequencer, status, ticket_key, assay, created_date,
		       duration_weeks, remote_url, size_bytes, proposed_at
		FROM deletion_intents
		ORDER BY run
	`)
	if err != nil {
		return nil, fmt.Errorf("query intents: %w", err)
	}
	defer rows.Close()

	var out []lifecycle.IntentRecord
	for rows.Next() {
		var r lifecycle.IntentRecord
		var proposed int64
		if err := rows.Scan(&r.Run, &r.Sequencer, &r.Status, &r.TicketKey, &r.Assay,
			&r.CreatedDate, &r.DurationWeeks, &r.RemoteURL, &r.SizeBytes, &proposed); err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		r.ProposedAt = time.UnixMilli(proposed).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Replace implements intent.Store. The delete and inserts share one
// transaction.
func (s *Store) Replace(ctx context.Context, records []lifecycle.IntentRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM deletion_intents`); err != nil {
		return fmt.Errorf("clear intents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO deletion_intents (run, sequencer, status, ticket_key, assay,
			created_date, duration_weeks, remote_url, size_bytes, proposed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range intent.NewDocument(records).Records() {
		if _, err := stmt.ExecContext(ctx, r.Run, r.Sequencer, r.Status, r.TicketKey, r.Assay,
			r.CreatedDate, r.DurationWeeks, r.RemoteURL, r.SizeBytes, r.ProposedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert intent %s: %w", r.Run, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit intents: %w", err)
	}
	s.logger.Info("replaced intent batch", "runs", len(records))
	return nil
}

// Clear implements intent.Store.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM deletion_intents`); err != nil {
		return fmt.Errorf("clear intents: %w", err)
	}
	s.logger.Info("cleared intent batch")
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
