package lifecycle

import (
	"strings"
	"time"
)

// Terminal ticket states that permit automatic deletion.
const (
	StatusAllSamplesReleased    = "ALL SAMPLES RELEASED"
	StatusDataCannotBeProcessed = "DATA CANNOT BE PROCESSED"
	StatusDataCannotBeReleased  = "DATA CANNOT BE RELEASED"
)

// Display values used when no single ticket corroborates a run.
const (
	NoTicketFound   = "No ticket found"
	MultipleTickets = "Multiple"
)

// DefaultDeleteStates returns the ticket states that allow deletion.
func DefaultDeleteStates() []string {
	return []string{
		StatusAllSamplesReleased,
		StatusDataCannotBeProcessed,
		StatusDataCannotBeReleased,
	}
}

// Run is one sequencer output directory discovered during a scan.
type Run struct {
	// Identity
	Name      string `json:"name"`
	Sequencer string `json:"sequencer"`

	// Local state
	Path      string    `json:"path"`
	ModTime   time.Time `json:"mod_time"` // creation-date proxy
	SizeBytes int64     `json:"size_bytes"`

	// Remote state
	Uploaded bool         `json:"uploaded"`
	Project  *ProjectInfo `json:"project,omitempty"`

	// Ticket state
	Ticket TicketMatch `json:"ticket"`
}

// Age returns how long ago the run directory was last modified.
func (r *Run) Age(now time.Time) time.Duration {
	return now.Sub(r.ModTime)
}

// ProjectInfo describes the processed-data project derived from a run.
type ProjectInfo struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Created     int64   `json:"created"` // epoch milliseconds
	DataUsage   float64 `json:"data_usage"`
	CreatedBy   string  `json:"created_by"`
	StorageCost float64 `json:"storage_cost"`
	URL         string  `json:"url"`
}

// CreatedAt returns the project creation time.
func (p *ProjectInfo) CreatedAt() time.Time {
	return time.UnixMilli(p.Created)
}

// MatchKind distinguishes the outcomes of a ticket lookup.
type MatchKind int

const (
	// MatchNone means no ticket corroborates the run.
	MatchNone MatchKind = iota
	// MatchExactly means exactly one sequencing-run ticket matched.
	MatchExactly
	// MatchAmbiguous means more than one ticket survived filtering.
	MatchAmbiguous
)

// String returns the kind name.
func (k MatchKind) String() string {
	switch k {
	case MatchExactly:
		return "exactly"
	case MatchAmbiguous:
		return "ambiguous"
	default:
		return "none"
	}
}

// Issue is the subset of a ticket needed for reconciliation.
type Issue struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
	Assay   string `json:"assay"`
	TypeID  string `json:"type_id"`
}

// TicketMatch is the resolved ticket state for a run.
// Issue is set only when Kind is MatchExactly.
type TicketMatch struct {
	Kind  MatchKind `json:"kind"`
	Issue *Issue    `json:"issue,omitempty"`
}

// NoMatch returns a match with no corroborating ticket.
func NoMatch() TicketMatch {
	return TicketMatch{Kind: MatchNone}
}

// Ambiguous returns a match for multiple candidate tickets.
func Ambiguous() TicketMatch {
	return TicketMatch{Kind: MatchAmbiguous}
}

// Exactly returns a match for a single ticket.
func Exactly(issue Issue) TicketMatch {
	return TicketMatch{Kind: MatchExactly, Issue: &issue}
}

// Key returns the ticket key, the "Multiple" sentinel, or "" when none matched.
func (m TicketMatch) Key() string {
	switch m.Kind {
	case MatchExactly:
		return m.Issue.Key
	case MatchAmbiguous:
		return MultipleTickets
	default:
		return ""
	}
}

// Status returns the ticket status as reported by the ticketing system.
func (m TicketMatch) Status() string {
	switch m.Kind {
	case MatchExactly:
		return m.Issue.Status
	case MatchAmbiguous:
		return MultipleTickets
	default:
		return NoTicketFound
	}
}

// NormalizedStatus returns the upper-cased, trimmed status for comparisons.
func (m TicketMatch) NormalizedStatus() string {
	return NormalizeStatus(m.Status())
}

// Assay returns the assay tag of the matched ticket.
func (m TicketMatch) Assay() string {
	switch m.Kind {
	case MatchExactly:
		return m.Issue.Assay
	case MatchAmbiguous:
		return MultipleTickets
	default:
		return NoTicketFound
	}
}

// NormalizeStatus upper-cases a ticket status for comparison.
func NormalizeStatus(status string) string {
	return strings.ToUpper(strings.TrimSpace(status))
}

// Disposition is the classification of a run for one cycle.
type Disposition string

const (
	TooYoung         Disposition = "too_young"
	FlagDelete       Disposition = "flag_delete"
	FlagManualReview Disposition = "manual_review"
	Ignored          Disposition = "ignored"
)

// IntentRecord is one run flagged for deletion on a propose day.
type IntentRecord struct {
	Run           string    `json:"run"`
	Sequencer     string    `json:"sequencer"`
	Status        string    `json:"status"`
	TicketKey     string    `json:"ticket_key"`
	Assay         string    `json:"assay"`
	CreatedDate   string    `json:"created_date"` // YYYY-MM-DD
	DurationWeeks float64   `json:"duration_weeks"`
	RemoteURL     string    `json:"remote_url"`
	SizeBytes     int64     `json:"size_bytes"`
	ProposedAt    time.Time `json:"proposed_at"`
}

// DiskUsage is a filesystem capacity snapshot.
type DiskUsage struct {
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
	Free  uint64 `json:"free"`
}

// UsedPercent returns the used share of the filesystem, rounded to 2 places.
func (d DiskUsage) UsedPercent() float64 {
	if d.Total == 0 {
		return 0
	}
	return roundTo(float64(d.Used)/float64(d.Total)*100, 2)
}

// WeeksBetween returns the duration in weeks rounded to 2 places.
func WeeksBetween(from, to time.Time) float64 {
	days := float64(int(to.Sub(from).Hours() / 24))
	return roundTo(days/7, 2)
}

func roundTo(v float64, places int) float64 {
	pow := 1.0
	for i := 0; i < places; i++ {
		pow *= 10
	}
	if v < 0 {
		return float64(int64(v*pow-0.5)) / pow
	}
	return float64(int64(v*pow+0.5)) / pow
}
