// Package platform is a client for the remote project platform API.
//
// All calls are POSTs of a JSON body to <api_url>/system/<method> with a
// bearer token.
package platform

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"labops/runsweep/pkg/httpclient"
	"labops/runsweep/pkg/lifecycle"
)

// Defaults for project lookup.
const (
	DefaultProjectPrefix = "002_"
	DefaultBrowseURL     = "https://platform.dnanexus.com/panx/projects/%s/data"
)

// Config configures a Client.
type Config struct {
	APIURL         string
	Token          string
	StagingProject string
	ProjectPrefix  string

	// BrowseURL is a format string receiving the project id without its
	// "project-" prefix.
	BrowseURL string

	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client implements gateway.StagingChecker, gateway.ProjectFinder and
// gateway.Authenticator.
type Client struct {
	cfg    Config
	http   *httpclient.Client
	logger *slog.Logger
}

// NewClient creates a platform client. Lookups are not retried.
func NewClient(cfg Config) *Client {
	if cfg.ProjectPrefix == "" {
		cfg.ProjectPrefix = DefaultProjectPrefix
	}
	if cfg.BrowseURL == "" {
		cfg.BrowseURL = DefaultBrowseURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	return &Client{
		cfg: cfg,
		http: httpclient.New(httpclient.Config{
			Name:      "platform",
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		}),
		logger: slog.Default().With("component", "platform"),
	}
}

func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.Token}
	return c.http.DoJSON(ctx, http.MethodPost, c.cfg.APIURL+"/system/"+method, req, resp, headers)
}

// WhoAmI returns the authenticated user id.
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, "whoami", map[string]any{}, &resp); err != nil {
		return "", lifecycle.NewGatewayError("platform", "whoami", "", err)
	}
	if resp.ID == "" {
		return "", lifecycle.NewGatewayError("platform", "whoami", "", fmt.Errorf("empty user id"))
	}
	return resp.ID, nil
}

type findDataObjectsRequest struct {
	Scope struct {
		Project string `json:"project"`
		Folder  string `json:"folder"`
		Recurse bool   `json:"recurse"`
	} `json:"scope"`
	Limit int `json:"limit"`
}

type findResponse[T any] struct {
	Results []T `json:"results"`
}

// IsUploaded checks for any data object under /<run>, then under
// /processed/<run>, in the staging project.
func (c *Client) IsUploaded(ctx context.Context, run string) (bool, error) {
	for _, folder := range []string{"/" + run, "/processed/" + run} {
		var req findDataObjectsRequest
		req.Scope.Project = c.cfg.StagingProject
		req.Scope.Folder = folder
		req.Scope.Recurse = true
		req.Limit = 1

		var resp findResponse[struct {
			ID string `json:"id"`
		}]
		if err := c.call(ctx, "findDataObjects", req, &resp); err != nil {
			return false, lifecycle.NewGatewayError("platform", "findDataObjects", run, err)
		}
		if len(resp.Results) > 0 {
			return true, nil
		}
	}
	return false, nil
}

type projectDescribe struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Created   int64   `json:"created"`
	DataUsage float64 `json:"dataUsage"`
	CreatedBy struct {
		User string `json:"user"`
	} `json:"createdBy"`
	StorageCost float64 `json:"storageCost"`
}

type projectResult struct {
	ID       string          `json:"id"`
	Describe projectDescribe `json:"describe"`
}

// DescribeProject finds the first project whose name matches
// ^<prefix><run>.* and returns its description.
func (c *Client) DescribeProject(ctx context.Context, run string) (*lifecycle.ProjectInfo, error) {
	req := map[string]any{
		"name":     map[string]string{"regexp": "^" + regexp.QuoteMeta(c.cfg.ProjectPrefix+run) + ".*"},
		"describe": true,
		"limit":    1,
	}

	var resp findResponse[projectResult]
	if err := c.call(ctx, "findProjects", req, &resp); err != nil {
		return nil, lifecycle.NewGatewayError("platform", "findProjects", run, err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	d := resp.Results[0].Describe
	id := d.ID
	if id == "" {
		id = resp.Results[0].ID
	}
	return &lifecycle.ProjectInfo{
		ID:          id,
		Name:        d.Name,
		Created:     d.Created,
		DataUsage:   d.DataUsage,
		CreatedBy:   d.CreatedBy.User,
		StorageCost: d.StorageCost,
		URL:         c.ProjectURL(id),
	}, nil
}

// ProjectURL returns the browse link for a project id.
func (c *Client) ProjectURL(id string) string {
	return fmt.Sprintf(c.cfg.BrowseURL, strings.TrimPrefix(id, "project-"))
}
