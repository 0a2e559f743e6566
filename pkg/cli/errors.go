package cli

import (
	"errors"
	"fmt"

	"labops/runsweep/pkg/config"
	"labops/runsweep/pkg/lifecycle"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitConfig       = 2
	ExitPrecondition = 3
	ExitLookup       = 4
	ExitDeletion     = 5
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to the process exit code.
// Notification failures alone never fail the process.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		cfgErr   *ConfigError
		valErr   config.ValidationError
		preErr   *lifecycle.PreconditionError
		gwErr    *lifecycle.GatewayError
		delErr   *lifecycle.DeletionError
		notifErr *lifecycle.NotificationError
	)
	switch {
	case errors.As(err, &delErr):
		return ExitDeletion
	case errors.As(err, &preErr):
		return ExitPrecondition
	case errors.As(err, &gwErr):
		return ExitLookup
	case errors.As(err, &cfgErr), errors.As(err, &valErr):
		return ExitConfig
	case errors.As(err, &notifErr):
		return ExitOK
	default:
		return ExitFailure
	}
}
