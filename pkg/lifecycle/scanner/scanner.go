// Package scanner discovers run directories on local disk and matches them
// against per-sequencer upload logs.
//
// Layout:
//
//	<run_root>/<sequencer>/<run>/
//	<log_root>/<sequencer>/run.<run>.lane.all.log
//
// A run is monitored only when both exist. Runs without an upload log are
// never returned by Monitored.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"labops/runsweep/pkg/lifecycle"
)

// Options configures a scan.
type Options struct {
	Sequencers []string
	RunRoot    string
	LogRoot    string
}

// Result holds the outcome of one scan.
type Result struct {
	// Runs lists run directory names per sequencer.
	Runs map[string][]string

	// Logged lists run identifiers parsed from upload logs per sequencer.
	Logged map[string][]string

	runRoot string
}

// Location identifies one run directory. A run name may appear under more
// than one sequencer, so the pair is the identity.
type Location struct {
	Sequencer string
	Name      string
	Path      string
}

// Monitored returns the runs that have both a directory and an upload log
// under the same sequencer, sorted by name then sequencer.
func (r *Result) Monitored() []Location {
	var out []Location
	for seq, runs := range r.Runs {
		logged := make(map[string]struct{}, len(r.Logged[seq]))
		for _, id := range r.Logged[seq] {
			logged[id] = struct{}{}
		}
		for _, run := range runs {
			if _, ok := logged[run]; ok {
				out = append(out, Location{
					Sequencer: seq,
					Name:      run,
					Path:      filepath.Join(r.runRoot, seq, run),
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Sequencer < out[j].Sequencer
	})
	return out
}

// Scanner walks the run and log roots.
type Scanner struct {
	logger *slog.Logger
}

// New creates a scanner.
func New() *Scanner {
	return &Scanner{logger: slog.Default().With("component", "scanner")}
}

// Scan lists run directories and upload logs for each sequencer.
// A missing root or sequencer directory is a precondition failure.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Result, error) {
	if err := CheckDirectories(opts.RunRoot, opts.LogRoot); err != nil {
		return nil, err
	}

	res := &Result{
		Runs:    make(map[string][]string),
		Logged:  make(map[string][]string),
		runRoot: opts.RunRoot,
	}

	for _, seq := range opts.Sequencers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		runDir := filepath.Join(opts.RunRoot, seq)
		logDir := filepath.Join(opts.LogRoot, seq)
		if err := CheckDirectories(runDir, logDir); err != nil {
			return nil, err
		}

		runs, err := listDirs(runDir)
		if err != nil {
			return nil, lifecycle.NewPreconditionError("list "+runDir, err)
		}
		logged, err := listLoggedRuns(logDir)
		if err != nil {
			return nil, lifecycle.NewPreconditionError("list "+logDir, err)
		}

		res.Runs[seq] = runs
		res.Logged[seq] = logged

		s.logger.Debug("scanned sequencer",
			"sequencer", seq,
			"runs", len(runs),
			"logs", len(logged),
		)
	}

	return res, nil
}

// CheckDirectories verifies that every path exists and is a directory.
func CheckDirectories(paths ...string) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return lifecycle.NewPreconditionError("directory "+p, err)
		}
		if !info.IsDir() {
			return lifecycle.NewPreconditionError("directory "+p, fmt.Errorf("%s is not a directory", p))
		}
	}
	return nil
}

func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// listLoggedRuns returns the run identifiers embedded in upload log names.
func listLoggedRuns(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := ParseLogName(e.Name()); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// ParseLogName extracts the run identifier from "run.<run>.lane.all.log".
func ParseLogName(name string) (string, bool) {
	parts := strings.Split(name, ".")
	if len(parts) < 3 || parts[0] != "run" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Stat returns the modification time and recursive size of a run directory.
func Stat(path string) (time.Time, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, 0, err
	}
	size, err := DirSize(path)
	if err != nil {
		return time.Time{}, 0, err
	}
	return info.ModTime(), size, nil
}

// DirSize returns the total size of regular files under path.
func DirSize(path string) (int64, error) {
	var total int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// DiskUsage returns capacity figures for the filesystem holding path.
func DiskUsage(path string) (lifecycle.DiskUsage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return lifecycle.DiskUsage{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	bsize := uint64(st.Bsize)
	total := st.Blocks * bsize
	free := st.Bavail * bsize
	used := (st.Blocks - st.Bfree) * bsize
	return lifecycle.DiskUsage{Total: total, Used: used, Free: free}, nil
}
