// Package classify decides what should happen to a run given its age,
// remote platform state and ticket state.
//
// Rules are evaluated in order and the first match wins:
//
//  1. not old enough → TooYoung
//  2. uploaded, project present, released state, allowed assay → FlagDelete
//  3. uploaded, unprocessable state, allowed assay → FlagDelete
//  4. no ticket, ambiguous ticket, or allowed assay → FlagManualReview
//  5. otherwise → Ignored
//
// Classify is pure: the same Input and Policy always produce the same
// Decision.
package classify

import (
	"fmt"
	"time"

	"labops/runsweep/pkg/lifecycle"
)

// Week is the retention threshold unit.
const Week = 7 * 24 * time.Hour

// Policy holds the injected retention rules.
type Policy struct {
	// Threshold is the minimum age before a run is considered.
	Threshold time.Duration

	// AllowedAssays lists the assay tags eligible for automatic deletion.
	AllowedAssays []string

	// DeleteStates lists the terminal ticket states that permit deletion.
	DeleteStates []string

	// ProjectRequiredStates is the subset of DeleteStates that also requires
	// a processed project to exist on the remote platform.
	ProjectRequiredStates []string
}

// DefaultPolicy returns a policy with a two-week threshold and the standard
// terminal states. AllowedAssays is left empty.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:             2 * Week,
		DeleteStates:          lifecycle.DefaultDeleteStates(),
		ProjectRequiredStates: []string{lifecycle.StatusAllSamplesReleased},
	}
}

// AssayAllowed reports whether assay is in the allowed list.
func (p Policy) AssayAllowed(assay string) bool {
	for _, a := range p.AllowedAssays {
		if a == assay {
			return true
		}
	}
	return false
}

// IsDeleteState reports whether status is a terminal state. Comparison is
// case-insensitive.
func (p Policy) IsDeleteState(status string) bool {
	return containsStatus(p.DeleteStates, status)
}

func (p Policy) requiresProject(status string) bool {
	return containsStatus(p.ProjectRequiredStates, status)
}

func containsStatus(states []string, status string) bool {
	normalized := lifecycle.NormalizeStatus(status)
	for _, s := range states {
		if lifecycle.NormalizeStatus(s) == normalized {
			return true
		}
	}
	return false
}

// Input is everything the classifier needs to know about one run.
type Input struct {
	Run *lifecycle.Run
	Now time.Time
}

// Decision is the outcome of classifying one run.
type Decision struct {
	Run         *lifecycle.Run
	Disposition lifecycle.Disposition
	OldEnough   bool
	Reason      string
}

// OldEnough reports whether modTime plus threshold lies strictly before now.
func OldEnough(modTime, now time.Time, threshold time.Duration) bool {
	return modTime.Add(threshold).Before(now)
}

// Classify applies the retention rules to a single run.
func Classify(in Input, p Policy) Decision {
	run := in.Run
	d := Decision{Run: run}

	if !OldEnough(run.ModTime, in.Now, p.Threshold) {
		d.Disposition = lifecycle.TooYoung
		d.Reason = "not old enough to delete"
		return d
	}
	d.OldEnough = true

	match := run.Ticket
	exact := match.Kind == lifecycle.MatchExactly
	assayOK := exact && p.AssayAllowed(match.Assay())

	if exact && assayOK && run.Uploaded && p.IsDeleteState(match.Status()) {
		status := match.Status()
		if !p.requiresProject(status) {
			d.Disposition = lifecycle.FlagDelete
			d.Reason = fmt.Sprintf("uploaded with terminal state %q", match.NormalizedStatus())
			return d
		}
		if run.Project != nil {
			d.Disposition = lifecycle.FlagDelete
			d.Reason = fmt.Sprintf("processed and %q", match.NormalizedStatus())
			return d
		}
	}

	switch {
	case match.Kind == lifecycle.MatchNone:
		d.Disposition = lifecycle.FlagManualReview
		d.Reason = "no ticket found"
	case match.Kind == lifecycle.MatchAmbiguous:
		d.Disposition = lifecycle.FlagManualReview
		d.Reason = "multiple tickets found"
	case assayOK:
		d.Disposition = lifecycle.FlagManualReview
		d.Reason = "monitored assay not passed checks"
	default:
		d.Disposition = lifecycle.Ignored
		d.Reason = fmt.Sprintf("assay %q not monitored", match.Assay())
	}
	return d
}

// ClassifyAll classifies runs in order.
func ClassifyAll(runs []*lifecycle.Run, now time.Time, p Policy) []Decision {
	decisions := make([]Decision, 0, len(runs))
	for _, run := range runs {
		decisions = append(decisions, Classify(Input{Run: run, Now: now}, p))
	}
	return decisions
}

// Partition splits decisions by disposition.
func Partition(decisions []Decision) map[lifecycle.Disposition][]Decision {
	out := make(map[lifecycle.Disposition][]Decision)
	for _, d := range decisions {
		out[d.Disposition] = append(out[d.Disposition], d)
	}
	return out
}
