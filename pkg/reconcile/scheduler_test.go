package reconcile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_RunOnce(t *testing.T) {
	fail := false
	s := NewScheduler("0 7 * * *", func(context.Context) (*Report, error) {
		if fail {
			return &Report{CycleID: "second"}, errors.New("boom")
		}
		return &Report{CycleID: "first"}, nil
	})

	if _, err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}
	success := s.LastSuccess()
	if success.IsZero() {
		t.Fatal("expected last success time")
	}

	fail = true
	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	last, err := s.Last()
	if last.CycleID != "second" || err == nil {
		t.Errorf("Last() = %v, %v", last, err)
	}
	if !s.LastSuccess().Equal(success) {
		t.Error("failed cycle changed last success time")
	}
}

func TestScheduler_RunOnceSkipsWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	s := NewScheduler("0 7 * * *", func(context.Context) (*Report, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return &Report{CycleID: "cycle"}, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.RunOnce(context.Background())
		done <- err
	}()
	<-started

	report, err := s.RunOnce(context.Background())
	if !errors.Is(err, ErrCycleRunning) || report != nil {
		t.Fatalf("RunOnce() = %v, %v, want ErrCycleRunning", report, err)
	}
	if last, _ := s.Last(); last != nil {
		t.Errorf("skipped call recorded a report: %v", last)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}
	if _, err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() after completion failed: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("cycle ran %d times, want 2", got)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler("*/5 * * * *", func(context.Context) (*Report, error) { return &Report{}, nil })
	if s.NextRun() != nil {
		t.Error("expected no next run before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("expected scheduler running")
	}
	if next := s.NextRun(); next == nil || !next.After(time.Now()) {
		t.Errorf("NextRun() = %v", next)
	}

	cancel()
	deadline := time.Now().Add(time.Second)
	for s.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.IsRunning() {
		t.Error("scheduler still running after context cancellation")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler("whenever", nil)
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error for invalid schedule")
	}
}
