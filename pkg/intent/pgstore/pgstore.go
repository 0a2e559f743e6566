// Package pgstore keeps the intent batch in a Postgres table, for sites
// where the engine runs on more than one host.
//
// Replace takes a transaction-scoped advisory lock so two writers cannot
// interleave their delete and insert phases.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"labops/runsweep/pkg/intent"
	"labops/runsweep/pkg/lifecycle"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "deletion_intents"

// Store is a Postgres-backed intent.Store.
type Store struct {
	db      *sql.DB
	table   string
	lockKey int64
	logger  *slog.Logger
}

// Open connects using dsn and ensures the schema exists.
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s, err := OpenDB(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenDB checks an existing pool and migrates the schema once. The caller
// keeps ownership of db on error.
func OpenDB(ctx context.Context, db *sql.DB, table string) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := New(db, table)
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte("runsweep:" + table))
	return &Store{
		db:      db,
		table:   pq.QuoteIdentifier(table),
		lockKey: int64(h.Sum64()),
		logger:  slog.Default().With("component", "intent", "backend", "postgres"),
	}
}

// Migrate creates the intent table if missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run TEXT PRIMARY KEY,
			sequencer TEXT NOT NULL,
			status TEXT NOT NULL,
			ticket_key TEXT NOT NULL,
			assay TEXT NOT NULL,
			created_date TEXT NOT NULL,
			duration_weeks DOUBLE PRECISION NOT NULL,
			remote_url TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			proposed_at TIMESTAMPTZ NOT NULL
		)`, s.table))
	if err != nil {
		return fmt.Errorf("migrate intent table: %w", err)
	}
	return nil
}

// Load implements intent.Store.
func (s *Store) Load(ctx context.Context) ([]lifecycle.IntentRecord, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT run, sequencer, status, ticket_key, assay, created_date,
		       duration_weeks, remote_url, size_bytes, proposed_at
		FROM %s ORDER BY run`, s.table))
	if err != nil {
		return nil, fmt.Errorf("query intents: %w", err)
	}
	defer rows.Close()

	var out []lifecycle.IntentRecord
	for rows.Next() {
		var r lifecycle.IntentRecord
		var proposed time.Time
		if err := rows.Scan(&r.Run, &r.Sequencer, &r.Status, &r.TicketKey, &r.Assay,
			&r.CreatedDate, &r.DurationWeeks, &r.RemoteURL, &r.SizeBytes, &proposed); err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		r.ProposedAt = proposed.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Replace implements intent.Store.
func (s *Store) Replace(ctx context.Context, records []lifecycle.IntentRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, s.lockKey); err != nil {
		return fmt.Errorf("acquire intent lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
		return fmt.Errorf("clear intents: %w", err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (run, sequencer, status, ticket_key, assay, created_date,
			duration_weeks, remote_url, size_bytes, proposed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, s.table)
	for _, r := range intent.NewDocument(records).Records() {
		if _, err := tx.ExecContext(ctx, insert, r.Run, r.Sequencer, r.Status, r.TicketKey, r.Assay,
			r.CreatedDate, r.DurationWeeks, r.RemoteURL, r.SizeBytes, r.ProposedAt.UTC()); err != nil {
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
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
		return fmt.Errorf("clear intents: %w", err)
	}
	s.logger.Info("cleared intent batch")
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
