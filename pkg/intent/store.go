// Package intent persists the batch of runs flagged for deletion between the
// propose day and the execute day.
//
// A store holds exactly one batch. Replace overwrites it wholesale and never
// merges with earlier content; replacing with an empty batch clears it.
//
// Backends:
//   - filestore: a JSON document written with temp file + fsync + rename
//   - sqlitestore: a single SQLite table replaced in one transaction
//   - pgstore: a Postgres table replaced under an advisory lock
//   - Memory: in-process, for tests and dry runs
package intent

import (
	"context"
	"errors"
	"sort"
	"sync"

	"labops/runsweep/pkg/lifecycle"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("intent store closed")

// Store is the durable propose → execute handoff.
type Store interface {
	// Load returns the current batch sorted by run name.
	Load(ctx context.Context) ([]lifecycle.IntentRecord, error)

	// Replace atomically swaps the batch for records.
	Replace(ctx context.Context, records []lifecycle.IntentRecord) error

	// Clear removes the batch.
	Clear(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Document is the logical schema shared by the file backends: a map of run
// name to record.
type Document struct {
	Version int                               `json:"version"`
	Runs    map[string]lifecycle.IntentRecord `json:"runs"`
}

// CurrentVersion is the Document schema version.
const CurrentVersion = 1

// NewDocument builds a document from records. Later duplicates win.
func NewDocument(records []lifecycle.IntentRecord) Document {
	doc := Document{Version: CurrentVersion, Runs: make(map[string]lifecycle.IntentRecord, len(records))}
	for _, r := range records {
		doc.Runs[r.Run] = r
	}
	return doc
}

// Records returns the document's records sorted by run name.
func (d Document) Records() []lifecycle.IntentRecord {
	out := make([]lifecycle.IntentRecord, 0, len(d.Runs))
	for name, r := range d.Runs {
		r.Run = name
		out = append(out, r)
	}
	SortRecords(out)
	return out
}

// SortRecords orders records by run name.
func SortRecords(records []lifecycle.IntentRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Run < records[j].Run })
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.Mutex
	records []lifecycle.IntentRecord
	closed  bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Load implements Store.
func (m *Memory) Load(_ context.Context) ([]lifecycle.IntentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]lifecycle.IntentRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

// Replace implements Store.
func (m *Memory) Replace(_ context.Context, records []lifecycle.IntentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.records = NewDocument(records).Records()
	return nil
}

// Clear implements Store.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.records = nil
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
