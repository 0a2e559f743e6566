package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"labops/runsweep/pkg/audit"
	"labops/runsweep/pkg/config"
	"labops/runsweep/pkg/gateway"
	"labops/runsweep/pkg/intent"
	"labops/runsweep/pkg/lifecycle"
	"labops/runsweep/pkg/lifecycle/classify"
	"labops/runsweep/pkg/lifecycle/scanner"
	"labops/runsweep/pkg/telemetry/logging"
	"labops/runsweep/pkg/telemetry/metrics"
	"labops/runsweep/pkg/telemetry/tracing"
	"labops/runsweep/pkg/ticket"
)

// Lookup failure policies.
const (
	OnErrorAbort = config.LookupAbort
	OnErrorSkip  = config.LookupSkip
)

// RunScanner discovers monitored runs.
type RunScanner interface {
	Scan(ctx context.Context, opts scanner.Options) (*scanner.Result, error)
}

// RemoteLookup returns the remote platform state of a run.
type RemoteLookup interface {
	Lookup(ctx context.Context, run string) (gateway.State, error)
}

// TicketGateway resolves and creates tickets.
type TicketGateway interface {
	GetIssueDetail(ctx context.Context, run string) (lifecycle.TicketMatch, error)
	CreateIssue(ctx context.Context, req ticket.IssueRequest) (*ticket.CreatedIssue, error)
}

// DigestPoster delivers chunked digests to a chat channel.
type DigestPoster interface {
	PostDigest(ctx context.Context, channel, pretext string, blocks []string, limit int) error
}

// Alerter sends operational alerts.
type Alerter interface {
	Alert(ctx context.Context, msg string) error
}

// AuditRecorder records deleted runs.
type AuditRecorder interface {
	Record(ctx context.Context, ev audit.Event) error
}

// AckConfig describes the acknowledgement ticket raised after deletions.
type AckConfig struct {
	IssueTypeID string
	ProjectID   string
	ReporterID  string
	PriorityID  string
}

// Config holds the engine settings for one cycle.
type Config struct {
	Sequencers []string
	RunRoot    string
	LogRoot    string

	Policy classify.Policy

	ProposeWeekday time.Weekday
	ExecuteWeekday time.Weekday

	// OnLookupError is OnErrorAbort or OnErrorSkip.
	OnLookupError string

	DigestChannel string
	ChunkLimit    int
	TicketURL     string

	Ack AckConfig
}

// FromConfig builds engine settings from the application configuration.
func FromConfig(cfg *config.Config) Config {
	projectID := cfg.Ticket.ProjectID
	if cfg.Debug && cfg.Ticket.DebugProjectID != "" {
		projectID = cfg.Ticket.DebugProjectID
	}
	return Config{
		Sequencers: cfg.Filesystem.Sequencers,
		RunRoot:    cfg.Filesystem.GeneticsDir,
		LogRoot:    cfg.Filesystem.LogsDir,
		Policy: classify.Policy{
			Threshold:             cfg.Retention.Threshold(),
			AllowedAssays:         cfg.Retention.AllowedAssays,
			DeleteStates:          cfg.Retention.DeleteStates,
			ProjectRequiredStates: cfg.Retention.ProjectRequiredStates,
		},
		ProposeWeekday: ISOWeekday(cfg.Retention.ProposeWeekday),
		ExecuteWeekday: ISOWeekday(cfg.Retention.ExecuteWeekday),
		OnLookupError:  cfg.Lookup.OnError,
		DigestChannel:  cfg.Notify.PendingChannel,
		ChunkLimit:     cfg.Notify.ChunkLimit,
		TicketURL:      cfg.Ticket.BrowseURL,
		Ack: AckConfig{
			IssueTypeID: cfg.Ticket.AckIssueType,
			ProjectID:   projectID,
			ReporterID:  cfg.Ticket.ReporterID,
			PriorityID:  cfg.Ticket.PriorityID,
		},
	}
}

// ISOWeekday converts an ISO weekday (Monday=1 .. Sunday=7).
func ISOWeekday(iso int) time.Weekday {
	return time.Weekday(iso % 7)
}

// Deps are the collaborators of an Engine. Scanner, Remote, Tickets,
// Store, Notifier and Alerter are required.
type Deps struct {
	Scanner  RunScanner
	Auth     gateway.Authenticator
	Remote   RemoteLookup
	Tickets  TicketGateway
	Store    intent.Store
	Notifier DigestPoster
	Alerter  Alerter
	Audit    AuditRecorder

	Metrics *metrics.Collector
	Tracer  *tracing.Tracer

	// Remove deletes a run directory. Defaults to os.RemoveAll.
	Remove func(path string) error
	// Stat returns the modification time and size of a run directory.
	Stat func(path string) (time.Time, int64, error)
	// Usage returns the disk usage of the run root.
	Usage func(path string) (lifecycle.DiskUsage, error)
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine executes reconciliation cycles.
type Engine struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
}

// New creates an engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	switch {
	case deps.Scanner == nil:
		return nil, errors.New("reconcile: scanner is required")
	case deps.Remote == nil:
		return nil, errors.New("reconcile: remote gateway is required")
	case deps.Tickets == nil:
		return nil, errors.New("reconcile: ticket gateway is required")
	case deps.Store == nil:
		return nil, errors.New("reconcile: intent store is required")
	case deps.Notifier == nil:
		return nil, errors.New("reconcile: notifier is required")
	case deps.Alerter == nil:
		return nil, errors.New("reconcile: alerter is required")
	}
	if cfg.ProposeWeekday == cfg.ExecuteWeekday {
		return nil, fmt.Errorf("reconcile: propose and execute weekday are both %s", cfg.ProposeWeekday)
	}
	if cfg.OnLookupError == "" {
		cfg.OnLookupError = OnErrorAbort
	}

	if deps.Audit == nil {
		deps.Audit = audit.NewTrail(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector(&config.MetricsConfig{}, nil)
	}
	if deps.Tracer == nil {
		deps.Tracer = tracing.Noop()
	}
	if deps.Remove == nil {
		deps.Remove = os.RemoveAll
	}
	if deps.Stat == nil {
		deps.Stat = scanner.Stat
	}
	if deps.Usage == nil {
		deps.Usage = scanner.DiskUsage
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Engine{
		cfg:    cfg,
		deps:   deps,
		logger: slog.Default().With("component", "reconcile"),
	}, nil
}

// Report summarises one cycle.
type Report struct {
	CycleID   string              `json:"cycle_id"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
	Decisions []classify.Decision `json:"-"`
	Counts    map[string]int      `json:"counts"`
	Skipped   []string            `json:"skipped,omitempty"`
	Proposed  *int                `json:"proposed,omitempty"`
	Execution *ExecutionResult    `json:"execution,omitempty"`
	Usage     lifecycle.DiskUsage `json:"usage"`
	Warnings  []string            `json:"warnings,omitempty"`
}

func (r *Report) warn(err error) {
	r.Warnings = append(r.Warnings, err.Error())
}

// RunCycle runs one full cycle: preconditions, scan and classification,
// then the propose or execute step when today is one of those weekdays.
func (e *Engine) RunCycle(ctx context.Context) (*Report, error) {
	start := time.Now()
	now := e.deps.Now()
	report := &Report{
		CycleID:   uuid.NewString(),
		StartedAt: now,
		Counts:    make(map[string]int),
	}
	ctx = logging.WithCycleID(ctx, report.CycleID)
	ctx, span := e.deps.Tracer.Start(ctx, "reconcile.cycle", tracing.AttrCycleID.String(report.CycleID))

	err := e.runCycle(ctx, now, report)
	report.Duration = time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	e.deps.Metrics.RecordCycle("cycle", outcome, report.Duration)
	tracing.End(span, err)

	if err != nil {
		e.logger.ErrorContext(ctx, "cycle failed", "error", err)
		return report, err
	}
	e.logger.InfoContext(ctx, "cycle completed",
		"duration", report.Duration,
		"counts", report.Counts,
		"skipped", len(report.Skipped),
	)
	return report, nil
}

func (e *Engine) runCycle(ctx context.Context, now time.Time, report *Report) error {
	if err := e.CheckPreconditions(ctx); err != nil {
		e.alert(ctx, fmt.Sprintf(":warning: %v", err))
		return err
	}

	usage, err := e.deps.Usage(e.cfg.RunRoot)
	if err != nil {
		e.logger.WarnContext(ctx, "failed to read disk usage", "path", e.cfg.RunRoot, "error", err)
	}
	report.Usage = usage
	e.deps.Metrics.SetDiskUsage(usage.UsedPercent())

	decisions, skipped, err := e.Assess(ctx, now)
	if err != nil {
		var preErr *lifecycle.PreconditionError
		if errors.As(err, &preErr) {
			e.alert(ctx, fmt.Sprintf(":warning: %v", err))
		} else {
			e.alert(ctx, fmt.Sprintf(":warning: lookup failed, cycle aborted\n```%v```", err))
		}
		return err
	}
	report.Decisions = decisions
	report.Skipped = skipped
	for _, d := range decisions {
		report.Counts[string(d.Disposition)]++
	}
	if len(skipped) > 0 {
		e.alert(ctx, fmt.Sprintf(":warning: lookup failed for %d runs, skipped this cycle: %s",
			len(skipped), strings.Join(skipped, ", ")))
	}

	switch now.Weekday() {
	case e.cfg.ProposeWeekday:
		n, err := e.Propose(ctx, decisions, usage, report)
		if err != nil {
			e.alert(ctx, fmt.Sprintf(":warning: failed to store deletion intent\n```%v```", err))
			return err
		}
		report.Proposed = &n

	case e.cfg.ExecuteWeekday:
		res, err := e.Execute(ctx, usage)
		report.Execution = res
		if res != nil {
			report.Warnings = append(report.Warnings, res.Warnings...)
		}
		if err != nil {
			return err
		}

	default:
		e.logger.InfoContext(ctx, "not a propose or execute day, nothing to persist",
			"weekday", now.Weekday().String())
	}
	return nil
}

// CheckPreconditions verifies the run and log roots exist and that the
// platform credentials are valid.
func (e *Engine) CheckPreconditions(ctx context.Context) error {
	if err := scanner.CheckDirectories(e.cfg.RunRoot, e.cfg.LogRoot); err != nil {
		return err
	}
	if e.deps.Auth == nil {
		return nil
	}
	user, err := e.deps.Auth.WhoAmI(ctx)
	if err != nil {
		return lifecycle.NewPreconditionError("platform authentication", err)
	}
	e.logger.DebugContext(ctx, "platform authenticated", "user", user)
	return nil
}

func (e *Engine) alert(ctx context.Context, msg string) {
	err := e.deps.Alerter.Alert(ctx, msg)
	e.deps.Metrics.RecordNotification("alert", err)
}
