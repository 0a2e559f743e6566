// Package gateway defines the read-only lookups made against the remote
// data platform and composes them per run.
//
// Absence is a valid answer: IsUploaded returns (false, nil) and
// DescribeProject returns (nil, nil) when nothing is found. Transport and
// authentication failures are always returned as errors.
package gateway

import (
	"context"
	"log/slog"

	"labops/runsweep/pkg/lifecycle"
)

// StagingChecker reports whether raw run data reached the staging area.
type StagingChecker interface {
	IsUploaded(ctx context.Context, run string) (bool, error)
}

// ProjectFinder locates the processed-data project derived from a run.
type ProjectFinder interface {
	DescribeProject(ctx context.Context, run string) (*lifecycle.ProjectInfo, error)
}

// Authenticator verifies platform credentials before a cycle starts.
type Authenticator interface {
	WhoAmI(ctx context.Context) (string, error)
}

// Remote composes the staging and project lookups.
type Remote struct {
	Staging  StagingChecker
	Projects ProjectFinder
	logger   *slog.Logger
}

// NewRemote creates a composite remote gateway.
func NewRemote(staging StagingChecker, projects ProjectFinder) *Remote {
	return &Remote{
		Staging:  staging,
		Projects: projects,
		logger:   slog.Default().With("component", "gateway"),
	}
}

// State is the remote view of one run.
type State struct {
	Uploaded bool
	Project  *lifecycle.ProjectInfo
}

// Lookup runs both remote queries for run.
func (r *Remote) Lookup(ctx context.Context, run string) (State, error) {
	uploaded, err := r.Staging.IsUploaded(ctx, run)
	if err != nil {
		return State{}, err
	}

	project, err := r.Projects.DescribeProject(ctx, run)
	if err != nil {
		return State{}, err
	}

	r.logger.Debug("remote state",
		"run", run,
		"uploaded", uploaded,
		"project", project != nil,
	)
	return State{Uploaded: uploaded, Project: project}, nil
}
