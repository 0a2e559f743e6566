package cli

import (
	"errors"
	"fmt"
	"testing"

	"labops/runsweep/pkg/config"
	"labops/runsweep/pkg/lifecycle"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("intent.backend", "unknown backend")

	expected := "config error in intent.backend: unknown backend"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestCommandError(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("run", underlyingErr)

	expected := "command run failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("CommandError should unwrap to the underlying error")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"config", NewConfigError("f", "m"), ExitConfig},
		{"validation", config.ValidationError{Errors: []config.FieldError{{Field: "f", Message: "m"}}}, ExitConfig},
		{"precondition", lifecycle.NewPreconditionError("directories", errors.New("missing")), ExitPrecondition},
		{"gateway", NewCommandError("run", lifecycle.NewGatewayError("ticket", "search", "run_a", errors.New("503"))), ExitLookup},
		{"deletion", fmt.Errorf("execute: %w", &lifecycle.DeletionError{Run: "r", Path: "/p", Cause: errors.New("EPERM")}), ExitDeletion},
		{"notification", &lifecycle.NotificationError{Channel: "egg-logs", Cause: errors.New("rate limited")}, ExitOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
