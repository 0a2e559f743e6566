package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"labops/runsweep/pkg/lifecycle"
	"labops/runsweep/pkg/lifecycle/classify"
	"labops/runsweep/pkg/reconcile"
)

// decisionRow is one classified run as printed by scan.
type decisionRow struct {
	Run         string                `json:"run"`
	Sequencer   string                `json:"sequencer"`
	Modified    time.Time             `json:"modified"`
	SizeBytes   int64                 `json:"size_bytes"`
	Uploaded    bool                  `json:"uploaded"`
	Project     string                `json:"project,omitempty"`
	Ticket      string                `json:"ticket,omitempty"`
	Status      string                `json:"status,omitempty"`
	Assay       string                `json:"assay,omitempty"`
	Disposition lifecycle.Disposition `json:"disposition"`
	Reason      string                `json:"reason,omitempty"`
}

type decisionTable []decisionRow

func newDecisionTable(decisions []classify.Decision) decisionTable {
	rows := make(decisionTable, 0, len(decisions))
	for _, d := range decisions {
		row := decisionRow{
			Run:         d.Run.Name,
			Sequencer:   d.Run.Sequencer,
			Modified:    d.Run.ModTime,
			SizeBytes:   d.Run.SizeBytes,
			Uploaded:    d.Run.Uploaded,
			Ticket:      d.Run.Ticket.Key(),
			Status:      d.Run.Ticket.Status(),
			Assay:       d.Run.Ticket.Assay(),
			Disposition: d.Disposition,
			Reason:      d.Reason,
		}
		if d.Run.Project != nil {
			row.Project = d.Run.Project.ID
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Run < rows[j].Run })
	return rows
}

func (t decisionTable) Header() []string {
	return []string{"RUN", "SEQUENCER", "MODIFIED", "SIZE", "UPLOADED", "TICKET", "STATUS", "ASSAY", "DISPOSITION", "REASON"}
}

func (t decisionTable) Rows() [][]string {
	out := make([][]string, 0, len(t))
	for _, r := range t {
		out = append(out, []string{
			r.Run,
			r.Sequencer,
			r.Modified.Format(time.DateOnly),
			humanize.IBytes(uint64(r.SizeBytes)),
			strconv.FormatBool(r.Uploaded),
			r.Ticket,
			r.Status,
			r.Assay,
			string(r.Disposition),
			r.Reason,
		})
	}
	return out
}

type intentTable []lifecycle.IntentRecord

func (t intentTable) Header() []string {
	return []string{"RUN", "SEQUENCER", "STATUS", "TICKET", "ASSAY", "CREATED", "WEEKS", "SIZE", "PROPOSED"}
}

func (t intentTable) Rows() [][]string {
	out := make([][]string, 0, len(t))
	for _, r := range t {
		out = append(out, []string{
			r.Run,
			r.Sequencer,
			r.Status,
			r.TicketKey,
			r.Assay,
			r.CreatedDate,
			strconv.FormatFloat(r.DurationWeeks, 'f', 2, 64),
			humanize.IBytes(uint64(r.SizeBytes)),
			humanize.Time(r.ProposedAt),
		})
	}
	return out
}

// summaryTable renders a cycle report as field/value pairs.
type summaryTable struct {
	report *reconcile.Report
}

func (t summaryTable) Header() []string {
	return []string{"FIELD", "VALUE"}
}

func (t summaryTable) Rows() [][]string {
	r := t.report
	rows := [][]string{
		{"cycle", r.CycleID},
		{"date", r.StartedAt.Format(time.DateOnly) + " (" + r.StartedAt.Weekday().String() + ")"},
		{"duration", r.Duration.Round(time.Millisecond).String()},
		{"disk used", fmt.Sprintf("%s / %s (%.2f%%)",
			humanize.IBytes(r.Usage.Used), humanize.IBytes(r.Usage.Total), r.Usage.UsedPercent())},
	}

	dispositions := make([]string, 0, len(r.Counts))
	for d := range r.Counts {
		dispositions = append(dispositions, d)
	}
	sort.Strings(dispositions)
	for _, d := range dispositions {
		rows = append(rows, []string{d, strconv.Itoa(r.Counts[d])})
	}

	for _, run := range r.Skipped {
		rows = append(rows, []string{"skipped", run})
	}
	if r.Proposed != nil {
		rows = append(rows, []string{"proposed", strconv.Itoa(*r.Proposed)})
	}
	if ex := r.Execution; ex != nil {
		for _, d := range ex.Deleted {
			rows = append(rows, []string{"deleted", d.Run})
		}
		for _, s := range ex.Skipped {
			rows = append(rows, []string{"kept", s.Run + ": " + s.Reason})
		}
		if ex.AckKey != "" {
			rows = append(rows, []string{"acknowledgement", ex.AckKey})
		}
	}
	for _, w := range r.Warnings {
		rows = append(rows, []string{"warning", w})
	}
	return rows
}
