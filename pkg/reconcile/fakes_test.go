package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"labops/runsweep/pkg/gateway"
	"labops/runsweep/pkg/intent"
	"labops/runsweep/pkg/lifecycle"
	"labops/runsweep/pkg/lifecycle/classify"
	"labops/runsweep/pkg/lifecycle/scanner"
	"labops/runsweep/pkg/ticket"
)

var (
	monday    = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	wednesday = time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
)

type fakeRemote struct {
	states map[string]gateway.State
	errs   map[string]error
}

func (f *fakeRemote) Lookup(_ context.Context, run string) (gateway.State, error) {
	if err := f.errs[run]; err != nil {
		return gateway.State{}, err
	}
	return f.states[run], nil
}

type fakeTickets struct {
	mu        sync.Mutex
	matches   map[string]lifecycle.TicketMatch
	errs      map[string]error
	queried   []string
	created   []ticket.IssueRequest
	createErr error
}

func (f *fakeTickets) GetIssueDetail(_ context.Context, run string) (lifecycle.TicketMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried = append(f.queried, run)
	if err := f.errs[run]; err != nil {
		return lifecycle.TicketMatch{}, err
	}
	if m, ok := f.matches[run]; ok {
		return m, nil
	}
	return lifecycle.NoMatch(), nil
}

func (f *fakeTickets) CreateIssue(_ context.Context, req ticket.IssueRequest) (*ticket.CreatedIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &ticket.CreatedIssue{ID: "1001", Key: fmt.Sprintf("EBH-%d", 900+len(f.created))}, nil
}

type digest struct {
	channel string
	pretext string
	blocks  []string
}

type fakePoster struct {
	digests []digest
	err     error
}

func (f *fakePoster) PostDigest(_ context.Context, channel, pretext string, blocks []string, _ int) error {
	f.digests = append(f.digests, digest{channel: channel, pretext: pretext, blocks: blocks})
	return f.err
}

type fakeAlerter struct {
	msgs []string
}

func (f *fakeAlerter) Alert(_ context.Context, msg string) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeAuth struct {
	err error
}

func (f fakeAuth) WhoAmI(context.Context) (string, error) {
	return "user-runsweep", f.err
}

func issue(key, status, assay string) lifecycle.TicketMatch {
	return lifecycle.Exactly(lifecycle.Issue{Key: key, Status: status, Assay: assay, TypeID: ticket.DefaultSequencingIssueType})
}

// harness is a filesystem fixture plus fakes for every collaborator.
type harness struct {
	t        *testing.T
	root     string
	runRoot  string
	logRoot  string
	modTimes map[string]time.Time

	remote  *fakeRemote
	tickets *fakeTickets
	store   *intent.Memory
	poster  *fakePoster
	alerter *fakeAlerter
	auth    fakeAuth
	remove  func(string) error
	now     time.Time
	onError string
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{
		t:        t,
		root:     root,
		runRoot:  filepath.Join(root, "genetics"),
		logRoot:  filepath.Join(root, "logs"),
		modTimes: make(map[string]time.Time),
		remote:   &fakeRemote{states: map[string]gateway.State{}, errs: map[string]error{}},
		tickets:  &fakeTickets{matches: map[string]lifecycle.TicketMatch{}, errs: map[string]error{}},
		store:    intent.NewMemory(),
		poster:   &fakePoster{},
		alerter:  &fakeAlerter{},
		remove:   os.RemoveAll,
		now:      now,
		onError:  OnErrorAbort,
	}
	for _, dir := range []string{
		filepath.Join(h.runRoot, "A01295a"),
		filepath.Join(h.logRoot, "A01295a"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("MkdirAll() failed: %v", err)
		}
	}
	return h
}

// addRun creates a run directory, optionally with its upload log.
func (h *harness) addRun(name string, age time.Duration, logged bool) string {
	h.t.Helper()
	dir := filepath.Join(h.runRoot, "A01295a", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		h.t.Fatalf("MkdirAll() failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "RunInfo.xml"), []byte("<RunInfo/>"), 0o644); err != nil {
		h.t.Fatalf("WriteFile() failed: %v", err)
	}
	if logged {
		logName := filepath.Join(h.logRoot, "A01295a", "run."+name+".lane.all.log")
		if err := os.WriteFile(logName, nil, 0o644); err != nil {
			h.t.Fatalf("WriteFile() failed: %v", err)
		}
	}
	h.modTimes[name] = h.now.Add(-age)
	return dir
}

func (h *harness) config() Config {
	return Config{
		Sequencers: []string{"A01295a"},
		RunRoot:    h.runRoot,
		LogRoot:    h.logRoot,
		Policy: classify.Policy{
			Threshold:             2 * classify.Week,
			AllowedAssays:         []string{"MYE", "TSO500"},
			DeleteStates:          lifecycle.DefaultDeleteStates(),
			ProjectRequiredStates: []string{lifecycle.StatusAllSamplesReleased},
		},
		ProposeWeekday: time.Monday,
		ExecuteWeekday: time.Wednesday,
		OnLookupError:  h.onError,
		DigestChannel:  "egg-logs",
		ChunkLimit:     7700,
		TicketURL:      "https://example.atlassian.net/browse/",
		Ack: AckConfig{
			IssueTypeID: "10124",
			ProjectID:   "10042",
			ReporterID:  "reporter",
			PriorityID:  "3",
		},
	}
}

func (h *harness) engine() *Engine {
	h.t.Helper()
	e, err := New(h.config(), Deps{
		Scanner:  scanner.New(),
		Auth:     h.auth,
		Remote:   h.remote,
		Tickets:  h.tickets,
		Store:    h.store,
		Notifier: h.poster,
		Alerter:  h.alerter,
		Remove:   func(path string) error { return h.remove(path) },
		Stat: func(path string) (time.Time, int64, error) {
			mt, ok := h.modTimes[filepath.Base(path)]
			if !ok {
				return time.Time{}, 0, errors.New("no such run")
			}
			return mt, 1 << 30, nil
		},
		Usage: func(string) (lifecycle.DiskUsage, error) {
			return lifecycle.DiskUsage{Total: 100 << 30, Used: 80 << 30, Free: 20 << 30}, nil
		},
		Now: func() time.Time { return h.now },
	})
	if err != nil {
		h.t.Fatalf("New() failed: %v", err)
	}
	return e
}

func exists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return err == nil
}
