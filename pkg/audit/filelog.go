package audit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultLogPath is the site-wide deletion log.
const DefaultLogPath = "/log/monitoring/ansible_delete.txt"

// TimestampFormat is the layout of the timestamp on each line.
const TimestampFormat = "2006-01-02 15:04:05.000000"

// FileLog is an append-only deletion log.
type FileLog struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// OpenFileLog opens path for appending. When the directory of path does
// not exist, the log falls back to the file's base name in the working
// directory.
func OpenFileLog(path string) (*FileLog, error) {
	if path == "" {
		path = DefaultLogPath
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		fallback := filepath.Base(path)
		slog.Default().With("component", "audit").Warn("audit log directory missing, using working directory",
			"configured", path,
			"fallback", fallback,
		)
		path = fallback
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &FileLog{f: f, path: path}, nil
}

// Path returns the file being written.
func (l *FileLog) Path() string {
	return l.path
}

// Append writes one "<path> <timestamp>" line and syncs it.
func (l *FileLog) Append(runPath string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := fmt.Fprintf(l.f, "%s %s\n", runPath, at.Format(TimestampFormat)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	return nil
}

// Close closes the file.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
