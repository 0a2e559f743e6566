package classify

import (
	"testing"
	"time"

	"labops/runsweep/pkg/lifecycle"
)

var testNow = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func testPolicy() Policy {
	p := DefaultPolicy()
	p.AllowedAssays = []string{"MYE", "CEN", "TWE"}
	return p
}

func issue(status, assay string) lifecycle.TicketMatch {
	return lifecycle.Exactly(lifecycle.Issue{Key: "EBH-1", Status: status, Assay: assay})
}

func project() *lifecycle.ProjectInfo {
	return &lifecycle.ProjectInfo{ID: "project-1", Name: "002_run"}
}

func TestClassify(t *testing.T) {
	old := testNow.Add(-5 * Week)

	tests := []struct {
		name string
		run  lifecycle.Run
		want lifecycle.Disposition
	}{
		{
			name: "young run",
			run:  lifecycle.Run{ModTime: testNow.Add(-Week), Uploaded: true, Project: project(), Ticket: issue("ALL SAMPLES RELEASED", "MYE")},
			want: lifecycle.TooYoung,
		},
		{
			name: "exactly at threshold is too young",
			run:  lifecycle.Run{ModTime: testNow.Add(-2 * Week), Uploaded: true, Project: project(), Ticket: issue("ALL SAMPLES RELEASED", "MYE")},
			want: lifecycle.TooYoung,
		},
		{
			name: "released and processed",
			run:  lifecycle.Run{ModTime: old, Uploaded: true, Project: project(), Ticket: issue("All Samples Released", "MYE")},
			want: lifecycle.FlagDelete,
		},
		{
			name: "released without project",
			run:  lifecycle.Run{ModTime: old, Uploaded: true, Ticket: issue("ALL SAMPLES RELEASED", "MYE")},
			want: lifecycle.FlagManualReview,
		},
		{
			name: "released but not uploaded",
			run:  lifecycle.Run{ModTime: old, Project: project(), Ticket: issue("ALL SAMPLES RELEASED", "MYE")},
			want: lifecycle.FlagManualReview,
		},
		{
			name: "cannot be processed without project",
			run:  lifecycle.Run{ModTime: old, Uploaded: true, Ticket: issue("Data Cannot Be Processed", "CEN")},
			want: lifecycle.FlagDelete,
		},
		{
			name: "cannot be released",
			run:  lifecycle.Run{ModTime: old, Uploaded: true, Project: project(), Ticket: issue("DATA CANNOT BE RELEASED", "TWE")},
			want: lifecycle.FlagDelete,
		},
		{
			name: "terminal state with unmonitored assay",
			run:  lifecycle.Run{ModTime: old, Uploaded: true, Project: project(), Ticket: issue("ALL SAMPLES RELEASED", "WES")},
			want: lifecycle.Ignored,
		},
		{
			name: "no ticket",
			run:  lifecycle.Run{ModTime: old, Uploaded: true, Project: project(), Ticket: lifecycle.NoMatch()},
			want: lifecycle.FlagManualReview,
		},
		{
			name: "multiple tickets",
			run:  lifecycle.Run{ModTime: old, Uploaded: true, Project: project(), Ticket: lifecycle.Ambiguous()},
			want: lifecycle.FlagManualReview,
		},
		{
			name: "monitored assay on hold",
			run:  lifecycle.Run{ModTime: old, Uploaded: true, Project: project(), Ticket: issue("On Hold", "MYE")},
			want: lifecycle.FlagManualReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := tt.run
			got := Classify(Input{Run: &run, Now: testNow}, testPolicy())
			if got.Disposition != tt.want {
				t.Errorf("Classify() = %v (%s), want %v", got.Disposition, got.Reason, tt.want)
			}
		})
	}
}

func TestClassify_SevenRunScenario(t *testing.T) {
	states := []string{
		"New", "New", "New", "On Hold",
		"All Samples Released", "Data Cannot Be Processed", "Data Cannot Be Released",
	}
	flags := [][2]bool{
		{true, true}, {false, false}, {true, false}, {true, true},
		{true, true}, {true, false}, {true, true},
	}
	want := []lifecycle.Disposition{
		lifecycle.TooYoung,
		lifecycle.FlagManualReview,
		lifecycle.FlagManualReview,
		lifecycle.FlagManualReview,
		lifecycle.FlagDelete,
		lifecycle.FlagDelete,
		lifecycle.FlagDelete,
	}

	runs := make([]*lifecycle.Run, len(states))
	for i := range states {
		run := &lifecycle.Run{
			Name:     "run" + string(rune('1'+i)),
			ModTime:  testNow.Add(-time.Duration(i+2) * Week),
			Uploaded: flags[i][0],
			Ticket:   issue(states[i], "MYE"),
		}
		if flags[i][1] {
			run.Project = project()
		}
		runs[i] = run
	}

	decisions := ClassifyAll(runs, testNow, testPolicy())
	for i, d := range decisions {
		if d.Disposition != want[i] {
			t.Errorf("%s: got %v, want %v", d.Run.Name, d.Disposition, want[i])
		}
	}

	again := ClassifyAll(runs, testNow, testPolicy())
	for i := range decisions {
		if again[i].Disposition != decisions[i].Disposition {
			t.Errorf("%s: classification not idempotent", decisions[i].Run.Name)
		}
	}
}

func TestClassify_FlagDeleteImpliesOldEnough(t *testing.T) {
	p := testPolicy()
	for weeks := 0; weeks <= 6; weeks++ {
		for _, status := range p.DeleteStates {
			run := &lifecycle.Run{
				ModTime:  testNow.Add(-time.Duration(weeks) * Week),
				Uploaded: true,
				Project:  project(),
				Ticket:   issue(status, "MYE"),
			}
			d := Classify(Input{Run: run, Now: testNow}, p)
			if d.Disposition == lifecycle.FlagDelete && !OldEnough(run.ModTime, testNow, p.Threshold) {
				t.Errorf("FlagDelete for run aged %d weeks", weeks)
			}
		}
	}
}

func TestPartition(t *testing.T) {
	decisions := []Decision{
		{Disposition: lifecycle.FlagDelete},
		{Disposition: lifecycle.TooYoung},
		{Disposition: lifecycle.FlagDelete},
	}
	parts := Partition(decisions)
	if len(parts[lifecycle.FlagDelete]) != 2 {
		t.Errorf("expected 2 FlagDelete, got %d", len(parts[lifecycle.FlagDelete]))
	}
	if len(parts[lifecycle.FlagManualReview]) != 0 {
		t.Errorf("expected no manual review decisions")
	}
}
