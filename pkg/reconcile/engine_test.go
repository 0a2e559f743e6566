package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"labops/runsweep/pkg/gateway"
	"labops/runsweep/pkg/lifecycle"
	"labops/runsweep/pkg/lifecycle/classify"
)

func TestRunCycle_SevenRunScenario(t *testing.T) {
	h := newHarness(t, monday)

	project := &lifecycle.ProjectInfo{ID: "project-1", URL: "https://platform.example/projects/1"}
	scenario := []struct {
		run      string
		weeks    int
		status   string
		uploaded bool
		project  bool
		want     lifecycle.Disposition
	}{
		{"run_1", 2, "New", true, true, lifecycle.TooYoung},
		{"run_2", 3, "New", false, false, lifecycle.FlagManualReview},
		{"run_3", 4, "New", true, false, lifecycle.FlagManualReview},
		{"run_4", 5, "On Hold", true, true, lifecycle.FlagManualReview},
		{"run_5", 6, "All Samples Released", true, true, lifecycle.FlagDelete},
		{"run_6", 7, "Data Cannot Be Processed", true, false, lifecycle.FlagDelete},
		{"run_7", 8, "Data Cannot Be Released", true, true, lifecycle.FlagDelete},
	}
	for i, s := range scenario {
		h.addRun(s.run, time.Duration(s.weeks)*classify.Week, true)
		state := gateway.State{Uploaded: s.uploaded}
		if s.project {
			state.Project = project
		}
		h.remote.states[s.run] = state
		h.tickets.matches[s.run] = issue("EBH-"+string(rune('1'+i)), s.status, "MYE")
	}

	report, err := h.engine().RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() failed: %v", err)
	}

	got := make(map[string]lifecycle.Disposition)
	for _, d := range report.Decisions {
		got[d.Run.Name] = d.Disposition
	}
	for _, s := range scenario {
		if got[s.run] != s.want {
			t.Errorf("%s disposition = %q, want %q", s.run, got[s.run], s.want)
		}
	}

	records, err := h.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("stored %d records, want 3", len(records))
	}
	for _, r := range records {
		if r.Run != "run_5" && r.Run != "run_6" && r.Run != "run_7" {
			t.Errorf("unexpected stored run %s", r.Run)
		}
		if r.Sequencer != "A01295a" || r.SizeBytes != 1<<30 {
			t.Errorf("unexpected record %+v", r)
		}
	}
	if report.Proposed == nil || *report.Proposed != 3 {
		t.Errorf("report proposed = %v", report.Proposed)
	}

	if len(h.poster.digests) != 2 {
		t.Fatalf("posted %d digests, want pending and stale", len(h.poster.digests))
	}
	pending := h.poster.digests[0]
	if !strings.Contains(pending.pretext, "3 runs that *WILL BE DELETED* on *06 Mar 2024*") {
		t.Errorf("pending pretext = %q", pending.pretext)
	}
	if len(pending.blocks) != 3 || pending.channel != "egg-logs" {
		t.Errorf("pending digest = %+v", pending)
	}
	// Only run_4 is older than 30 days without release.
	stale := h.poster.digests[1]
	if len(stale.blocks) != 1 || !strings.Contains(stale.blocks[0], "run_4") {
		t.Errorf("stale digest blocks = %v", stale.blocks)
	}
	if len(h.alerter.msgs) != 0 {
		t.Errorf("unexpected alerts %v", h.alerter.msgs)
	}
}

func TestRunCycle_FlagDeleteImpliesOldEnough(t *testing.T) {
	h := newHarness(t, monday)
	for _, run := range []string{"young", "old"} {
		h.remote.states[run] = gateway.State{Uploaded: true, Project: &lifecycle.ProjectInfo{ID: "p"}}
		h.tickets.matches[run] = issue("EBH-1", "ALL SAMPLES RELEASED", "MYE")
	}
	h.addRun("young", 13*24*time.Hour, true)
	h.addRun("old", 15*24*time.Hour, true)

	report, err := h.engine().RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() failed: %v", err)
	}
	for _, d := range report.Decisions {
		if d.Disposition == lifecycle.FlagDelete && !d.OldEnough {
			t.Errorf("%s flagged for deletion while too young", d.Run.Name)
		}
	}
	if report.Counts[string(lifecycle.FlagDelete)] != 1 || report.Counts[string(lifecycle.TooYoung)] != 1 {
		t.Errorf("counts = %v", report.Counts)
	}
}

func TestRunCycle_UnloggedRunIsInvisible(t *testing.T) {
	h := newHarness(t, monday)
	h.addRun("logged", 5*classify.Week, true)
	h.addRun("unlogged", 5*classify.Week, false)
	h.tickets.matches["unlogged"] = issue("EBH-2", "ALL SAMPLES RELEASED", "MYE")
	h.remote.states["unlogged"] = gateway.State{Uploaded: true, Project: &lifecycle.ProjectInfo{ID: "p"}}

	report, err := h.engine().RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() failed: %v", err)
	}
	for _, d := range report.Decisions {
		if d.Run.Name == "unlogged" {
			t.Errorf("unlogged run classified as %q", d.Disposition)
		}
	}
	for _, q := range h.tickets.queried {
		if q == "unlogged" {
			t.Error("unlogged run was looked up")
		}
	}
}

func TestRunCycle_SameRunNameOnTwoSequencers(t *testing.T) {
	h := newHarness(t, monday)
	h.addRun("run_x", 5*classify.Week, true)
	other := filepath.Join(h.runRoot, "B00417b", "run_x")
	for _, dir := range []string{other, filepath.Join(h.logRoot, "B00417b")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("MkdirAll() failed: %v", err)
		}
	}

	e := h.engine()
	e.cfg.Sequencers = []string{"A01295a", "B00417b"}
	report, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() failed: %v", err)
	}
	if len(report.Decisions) != 1 {
		t.Fatalf("decisions = %v, want only the logged run", report.Decisions)
	}
	run := report.Decisions[0].Run
	if run.Sequencer != "A01295a" || run.Path != filepath.Join(h.runRoot, "A01295a", "run_x") {
		t.Errorf("run = %s at %s, want the logged A01295a copy", run.Sequencer, run.Path)
	}
}

func TestRunCycle_ProposeClearsWhenNothingFlagged(t *testing.T) {
	h := newHarness(t, monday)
	if err := h.store.Replace(context.Background(), []lifecycle.IntentRecord{{Run: "stale_batch"}}); err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}
	h.addRun("young", classify.Week, true)

	if _, err := h.engine().RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() failed: %v", err)
	}
	records, _ := h.store.Load(context.Background())
	if len(records) != 0 {
		t.Errorf("store = %v, want empty", records)
	}
	if len(h.poster.digests) != 0 {
		t.Errorf("unexpected digests %v", h.poster.digests)
	}
}

func TestRunCycle_LookupFailure(t *testing.T) {
	tests := []struct {
		name        string
		onError     string
		wantErr     bool
		wantSkipped []string
	}{
		{name: "abort", onError: OnErrorAbort, wantErr: true},
		{name: "skip", onError: OnErrorSkip, wantSkipped: []string{"run_b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, monday)
			h.onError = tt.onError
			if err := h.store.Replace(context.Background(), []lifecycle.IntentRecord{{Run: "previous"}}); err != nil {
				t.Fatalf("Replace() failed: %v", err)
			}
			h.addRun("run_a", 5*classify.Week, true)
			h.addRun("run_b", 5*classify.Week, true)
			h.tickets.errs["run_b"] = lifecycle.NewGatewayError("ticket", "search", "run_b", errors.New("503 service unavailable"))

			report, err := h.engine().RunCycle(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("RunCycle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(h.alerter.msgs) != 1 {
				t.Fatalf("alerts = %v, want exactly one", h.alerter.msgs)
			}
			if !strings.Contains(h.alerter.msgs[0], "run_b") && !strings.Contains(h.alerter.msgs[0], "503") {
				t.Errorf("alert does not name the failure: %q", h.alerter.msgs[0])
			}

			records, _ := h.store.Load(context.Background())
			if tt.wantErr {
				var gerr *lifecycle.GatewayError
				if !errors.As(err, &gerr) {
					t.Errorf("error = %T, want *lifecycle.GatewayError", err)
				}
				if len(records) != 1 || records[0].Run != "previous" {
					t.Errorf("store modified after abort: %v", records)
				}
				return
			}

			if strings.Join(report.Skipped, ",") != strings.Join(tt.wantSkipped, ",") {
				t.Errorf("skipped = %v, want %v", report.Skipped, tt.wantSkipped)
			}
			if len(report.Decisions) != 1 || report.Decisions[0].Run.Name != "run_a" {
				t.Errorf("decisions = %v", report.Decisions)
			}
		})
	}
}

func TestRunCycle_Preconditions(t *testing.T) {
	t.Run("missing log root", func(t *testing.T) {
		h := newHarness(t, monday)
		h.logRoot = h.logRoot + "-missing"

		_, err := h.engine().RunCycle(context.Background())
		var perr *lifecycle.PreconditionError
		if !errors.As(err, &perr) {
			t.Fatalf("error = %v, want *lifecycle.PreconditionError", err)
		}
		if len(h.alerter.msgs) != 1 {
			t.Errorf("alerts = %v", h.alerter.msgs)
		}
	})

	t.Run("missing sequencer directory", func(t *testing.T) {
		h := newHarness(t, monday)
		if err := os.RemoveAll(filepath.Join(h.runRoot, "A01295a")); err != nil {
			t.Fatalf("RemoveAll() failed: %v", err)
		}

		_, err := h.engine().RunCycle(context.Background())
		var perr *lifecycle.PreconditionError
		if !errors.As(err, &perr) {
			t.Fatalf("error = %v, want *lifecycle.PreconditionError", err)
		}
		if len(h.alerter.msgs) != 1 {
			t.Fatalf("alerts = %v", h.alerter.msgs)
		}
		if strings.Contains(h.alerter.msgs[0], "lookup failed") || !strings.Contains(h.alerter.msgs[0], "A01295a") {
			t.Errorf("alert = %q", h.alerter.msgs[0])
		}
	})

	t.Run("authentication", func(t *testing.T) {
		h := newHarness(t, monday)
		h.auth = fakeAuth{err: errors.New("invalid token")}
		h.addRun("run_a", 5*classify.Week, true)

		_, err := h.engine().RunCycle(context.Background())
		var perr *lifecycle.PreconditionError
		if !errors.As(err, &perr) || perr.Check != "platform authentication" {
			t.Fatalf("error = %v, want authentication precondition", err)
		}
		if len(h.tickets.queried) != 0 {
			t.Error("lookups ran after failed authentication")
		}
	})
}

func TestRunCycle_DigestFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, monday)
	h.poster.err = errors.New("channel_not_found")
	h.addRun("run_a", 5*classify.Week, true)
	h.remote.states["run_a"] = gateway.State{Uploaded: true, Project: &lifecycle.ProjectInfo{ID: "p"}}
	h.tickets.matches["run_a"] = issue("EBH-1", "ALL SAMPLES RELEASED", "MYE")

	report, err := h.engine().RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() failed: %v", err)
	}
	if len(report.Warnings) != 1 {
		t.Errorf("warnings = %v", report.Warnings)
	}
	records, _ := h.store.Load(context.Background())
	if len(records) != 1 {
		t.Errorf("intent not stored after digest failure: %v", records)
	}
	if len(h.alerter.msgs) != 1 {
		t.Errorf("alerts = %v", h.alerter.msgs)
	}
}

func TestNew_Validation(t *testing.T) {
	h := newHarness(t, monday)
	cfg := h.config()
	cfg.ExecuteWeekday = cfg.ProposeWeekday
	if _, err := New(cfg, Deps{
		Scanner: nil,
	}); err == nil {
		t.Error("expected error for missing scanner")
	}

	e := h.engine()
	e.cfg.ExecuteWeekday = e.cfg.ProposeWeekday
	if _, err := New(e.cfg, e.deps); err == nil {
		t.Error("expected error for identical weekdays")
	}
}

func TestISOWeekday(t *testing.T) {
	tests := map[int]time.Weekday{1: time.Monday, 3: time.Wednesday, 6: time.Saturday, 7: time.Sunday}
	for iso, want := range tests {
		if got := ISOWeekday(iso); got != want {
			t.Errorf("ISOWeekday(%d) = %s, want %s", iso, got, want)
		}
	}
}

func TestNextExecuteDay(t *testing.T) {
	h := newHarness(t, monday)
	e := h.engine()
	if got := e.nextExecuteDay(monday); !got.Equal(wednesday) {
		t.Errorf("nextExecuteDay(monday) = %v", got)
	}
	if got := e.nextExecuteDay(wednesday); !got.Equal(wednesday.AddDate(0, 0, 7)) {
		t.Errorf("nextExecuteDay(wednesday) = %v", got)
	}
}
