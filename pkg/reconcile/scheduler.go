package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrCycleRunning is returned by RunOnce while another cycle is in progress.
var ErrCycleRunning = errors.New("a cycle is already running")

// CycleFunc runs one reconciliation cycle. Serve mode builds a fresh
// engine per call so configuration reloads apply between cycles.
type CycleFunc func(ctx context.Context) (*Report, error)

// Scheduler runs cycles on a cron schedule. At most one cycle runs at a
// time: a tick or RunOnce call that finds a cycle in progress is skipped.
type Scheduler struct {
	schedule string
	run      CycleFunc
	cron     *cron.Cron
	logger   *slog.Logger

	// cycle is held for the duration of a cycle.
	cycle sync.Mutex

	mu          sync.Mutex
	running     bool
	last        *Report
	lastErr     error
	lastSuccess time.Time
}

// NewScheduler creates a scheduler for the standard 5-field cron expression.
func NewScheduler(schedule string, run CycleFunc) *Scheduler {
	return &Scheduler{
		schedule: schedule,
		run:      run,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		logger:   slog.Default().With("component", "scheduler"),
	}
}

// Start schedules cycles until ctx is cancelled.
//
// Common expressions:
//   - "0 7 * * *"   - daily at 07:00
//   - "0 7 * * 1,3" - Monday and Wednesday at 07:00
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule cycle: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// RunOnce runs a cycle immediately and records its outcome. It returns
// ErrCycleRunning without running when a cycle is already in progress.
func (s *Scheduler) RunOnce(ctx context.Context) (*Report, error) {
	if !s.cycle.TryLock() {
		s.logger.Warn("cycle already running, skipping")
		return nil, ErrCycleRunning
	}
	defer s.cycle.Unlock()

	report, err := s.run(ctx)

	s.mu.Lock()
	s.last = report
	s.lastErr = err
	if err == nil {
		s.lastSuccess = time.Now()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled cycle failed", "error", err)
	}
	return report, err
}

// Stop stops the scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// IsRunning reports whether the scheduler has been started.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled cycle, or nil before Start.
func (s *Scheduler) NextRun() *time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

// Last returns the most recent report and error.
func (s *Scheduler) Last() (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

// LastSuccess returns when a cycle last completed without error.
func (s *Scheduler) LastSuccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSuccess
}
