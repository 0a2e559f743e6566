// Package filestore keeps the intent batch in a single JSON file.
//
// Writes go to a temp file in the same directory, are fsynced and then
// renamed over the target so a crash leaves either the old or the new
// batch. Open takes an exclusive non-blocking flock on "<path>.lock" that
// is held until Close, so a second process fails fast with ErrLocked.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"labops/runsweep/pkg/intent"
	"labops/runsweep/pkg/lifecycle"
)

// ErrLocked is returned by Open when another process holds the lock.
var ErrLocked = errors.New("intent file is locked by another process")

// Store is a file-backed intent.Store.
type Store struct {
	path   string
	lock   *os.File
	mu     sync.Mutex
	closed bool
	logger *slog.Logger
}

// Open locks and opens the store at path. The file itself need not exist.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("intent path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create intent directory: %w", err)
	}

	lock, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lock.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("lock intent file: %w", err)
	}

	return &Store{
		path:   path,
		lock:   lock,
		logger: slog.Default().With("component", "intent", "backend", "file"),
	}, nil
}

// Path returns the data file path.
func (s *Store) Path() string {
	return s.path
}

// Load implements intent.Store. A missing file is an empty batch.
func (s *Store) Load(_ context.Context) ([]lifecycle.IntentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, intent.ErrClosed
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read intent file: %w", err)
	}

	var doc intent.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode intent file %s: %w", s.path, err)
	}
	if doc.Version > intent.CurrentVersion {
		return nil, fmt.Errorf("intent file version %d is newer than supported %d", doc.Version, intent.CurrentVersion)
	}
	return doc.Records(), nil
}

// Replace implements intent.Store.
func (s *Store) Replace(_ context.Context, records []lifecycle.IntentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return intent.ErrClosed
	}

	data, err := json.MarshalIndent(intent.NewDocument(records), "", "  ")
	if err != nil {
		return fmt.Errorf("encode intent batch: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return err
	}

	s.logger.Info("replaced intent batch", "path", s.path, "runs", len(records))
	return nil
}

// Clear implements intent.Store.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return intent.ErrClosed
	}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove intent file: %w", err)
	}
	if err := syncDir(filepath.Dir(s.path)); err != nil {
		return err
	}
	s.logger.Info("cleared intent batch", "path", s.path)
	return nil
}

// Close releases the lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := unix.Flock(int(s.lock.Fd()), unix.LOCK_UN); err != nil {
		s.lock.Close()
		return fmt.Errorf("unlock intent file: %w", err)
	}
	return s.lock.Close()
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename intent file: %w", err)
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open intent directory: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync intent directory: %w", err)
	}
	return nil
}
