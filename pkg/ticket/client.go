// Package ticket queries and maintains the sequencing-run tickets that
// track sample release.
//
// GetIssueDetail resolves a run name to a lifecycle.TicketMatch. Tickets
// of another issue type and reply tickets (summary starting with "RE")
// are discarded before resolving, so a reply can neither masquerade as a
// second ticket nor hide the real one.
package ticket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira/v2/cloud"

	"labops/runsweep/pkg/httpclient"
	"labops/runsweep/pkg/lifecycle"
)

// Defaults for the ticketing project.
const (
	DefaultSequencingIssueType = "10179"
	DefaultAssayField          = "customfield_10070"
	replyPrefix                = "RE"
	searchLimit                = 50
)

// Config configures a Client.
type Config struct {
	// APIURL is the site base URL; the SDK appends the REST paths.
	APIURL string
	Email  string
	Token  string

	ProjectKey      string
	DebugProjectKey string
	DebugProjectID  string

	SequencingIssueType string
	AssayField          string

	// Debug scopes searches and new issues to the debug project unless
	// ServerTesting is set.
	Debug         bool
	ServerTesting bool

	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client talks to the ticketing REST API.
type Client struct {
	cfg    Config
	api    *jira.Client
	logger *slog.Logger
}

// NewClient creates a ticketing client. Lookups are not retried.
func NewClient(cfg Config) (*Client, error) {
	if cfg.SequencingIssueType == "" {
		cfg.SequencingIssueType = DefaultSequencingIssueType
	}
	if cfg.AssayField == "" {
		cfg.AssayField = DefaultAssayField
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	transport := httpclient.New(httpclient.Config{
		Name:      "ticket",
		Timeout:   cfg.Timeout,
		Transport: cfg.Transport,
	})
	auth := jira.BasicAuthTransport{
		Username:  cfg.Email,
		APIToken:  cfg.Token,
		Transport: transport.HTTPClient().Transport,
	}
	api, err := jira.NewClient(cfg.APIURL, auth.Client())
	if err != nil {
		return nil, fmt.Errorf("invalid ticket api url %q: %w", cfg.APIURL, err)
	}

	return &Client{
		cfg:    cfg,
		api:    api,
		logger: slog.Default().With("component", "ticket"),
	}, nil
}

// SearchProject returns the project key that searches are scoped to.
func (c *Client) SearchProject() string {
	if c.cfg.Debug && !c.cfg.ServerTesting && c.cfg.DebugProjectKey != "" {
		return c.cfg.DebugProjectKey
	}
	return c.cfg.ProjectKey
}

// SearchIssues runs a JQL summary search for run within project.
func (c *Client) SearchIssues(ctx context.Context, run, project string) ([]lifecycle.Issue, error) {
	jql := fmt.Sprintf(`project = %s AND summary ~ "%s"`, project, escapeJQL(run))
	found, resp, err := c.api.Issue.Search(ctx, jql, &jira.SearchOptions{
		MaxResults: searchLimit,
		Fields:     []string{"summary", "status", "issuetype", c.cfg.AssayField},
	})
	if err != nil {
		return nil, apiError(resp, err)
	}

	issues := make([]lifecycle.Issue, 0, len(found))
	for i := range found {
		issues = append(issues, toIssue(&found[i], c.cfg.AssayField))
	}
	return issues, nil
}

// GetIssueDetail finds the single sequencing-run ticket for run.
func (c *Client) GetIssueDetail(ctx context.Context, run string) (lifecycle.TicketMatch, error) {
	issues, err := c.SearchIssues(ctx, run, c.SearchProject())
	if err != nil {
		return lifecycle.NoMatch(), lifecycle.NewGatewayError("ticket", "search", run, err)
	}

	match := Resolve(issues, c.cfg.SequencingIssueType)
	c.logger.Debug("resolved ticket",
		"run", run,
		"candidates", len(issues),
		"match", match.Kind.String(),
		"key", match.Key(),
		"status", match.Status(),
	)
	return match, nil
}

// Resolve filters out other issue types and replies, then maps the
// remaining count to a match.
func Resolve(issues []lifecycle.Issue, sequencingType string) lifecycle.TicketMatch {
	var kept []lifecycle.Issue
	for _, issue := range issues {
		if issue.TypeID != sequencingType {
			continue
		}
		if strings.HasPrefix(issue.Summary, replyPrefix) {
			continue
		}
		kept = append(kept, issue)
	}

	switch len(kept) {
	case 0:
		return lifecycle.NoMatch()
	case 1:
		return lifecycle.Exactly(kept[0])
	default:
		return lifecycle.Ambiguous()
	}
}

// GetIssue fetches one issue by id or key.
func (c *Client) GetIssue(ctx context.Context, idOrKey string) (*lifecycle.Issue, error) {
	raw, resp, err := c.api.Issue.Get(ctx, idOrKey, nil)
	if err != nil {
		return nil, lifecycle.NewGatewayError("ticket", "get", "", apiError(resp, err))
	}
	issue := toIssue(raw, c.cfg.AssayField)
	return &issue, nil
}

// CreateIssue creates an issue. In debug mode the issue lands in the debug
// project.
func (c *Client) CreateIssue(ctx context.Context, req IssueRequest) (*CreatedIssue, error) {
	projectID := req.ProjectID
	if c.cfg.Debug && c.cfg.DebugProjectID != "" {
		projectID = c.cfg.DebugProjectID
	}

	fields := &jira.IssueFields{
		Summary:     req.Summary,
		Type:        jira.IssueType{ID: req.IssueTypeID},
		Project:     jira.Project{ID: projectID},
		Description: req.Description,
	}
	if req.ReporterID != "" {
		fields.Reporter = &jira.User{AccountID: req.ReporterID}
	}
	if req.PriorityID != "" {
		fields.Priority = &jira.Priority{ID: req.PriorityID}
	}
	if req.Assay != "" {
		fields.Unknowns = map[string]any{
			c.cfg.AssayField: []map[string]string{{"value": req.Assay}},
		}
	}

	created, resp, err := c.api.Issue.Create(ctx, &jira.Issue{Fields: fields})
	if err != nil {
		return nil, lifecycle.NewGatewayError("ticket", "create", "", apiError(resp, err))
	}

	c.logger.Info("created issue", "key", created.Key, "summary", req.Summary)
	return &CreatedIssue{ID: created.ID, Key: created.Key, Self: created.Self}, nil
}

// Transition moves an issue through its workflow.
func (c *Client) Transition(ctx context.Context, issueID, transitionID string) error {
	if resp, err := c.api.Issue.DoTransition(ctx, issueID, transitionID); err != nil {
		return lifecycle.NewGatewayError("ticket", "transition", "", apiError(resp, err))
	}
	return nil
}

// AvailableTransitions lists the transitions currently allowed on an issue.
func (c *Client) AvailableTransitions(ctx context.Context, issueID string) ([]Transition, error) {
	found, resp, err := c.api.Issue.GetTransitions(ctx, issueID)
	if err != nil {
		return nil, lifecycle.NewGatewayError("ticket", "transitions", "", apiError(resp, err))
	}
	transitions := make([]Transition, 0, len(found))
	for _, t := range found {
		transitions = append(transitions, Transition{ID: t.ID, Name: t.Name})
	}
	return transitions, nil
}

// DeleteIssue removes an issue.
func (c *Client) DeleteIssue(ctx context.Context, issueID string) error {
	if resp, err := c.api.Issue.Delete(ctx, issueID); err != nil {
		return lifecycle.NewGatewayError("ticket", "delete", "", apiError(resp, err))
	}
	return nil
}

func escapeJQL(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
