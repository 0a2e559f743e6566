package lifecycle

import (
	"errors"
	"fmt"
)

// PreconditionError is returned when the cycle cannot start safely:
// missing directories or failed platform authentication.
type PreconditionError struct {
	Check string
	Cause error
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition %q failed: %v", e.Check, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PreconditionError) Unwrap() error {
	return e.Cause
}

// NewPreconditionError creates a new PreconditionError.
func NewPreconditionError(check string, cause error) *PreconditionError {
	return &PreconditionError{Check: check, Cause: cause}
}

// GatewayError is a lookup failure against an external system of record.
// It is never equivalent to "not found".
type GatewayError struct {
	Gateway string // "ticket", "platform", "staging"
	Op      string
	Run     string
	Cause   error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Run != "" {
		return fmt.Sprintf("%s gateway %s for run %s failed: %v", e.Gateway, e.Op, e.Run, e.Cause)
	}
	return fmt.Sprintf("%s gateway %s failed: %v", e.Gateway, e.Op, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// NewGatewayError creates a new GatewayError.
func NewGatewayError(gateway, op, run string, cause error) *GatewayError {
	return &GatewayError{Gateway: gateway, Op: op, Run: run, Cause: cause}
}

// DeletionError is a filesystem failure while removing a run directory.
// It halts the batch.
type DeletionError struct {
	Run   string
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *DeletionError) Error() string {
	return fmt.Sprintf("deleting run %s at %s failed: %v", e.Run, e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *DeletionError) Unwrap() error {
	return e.Cause
}

// NotificationError is a chat or ticket-creation failure. It never undoes
// work that already completed.
type NotificationError struct {
	Channel string
	Cause   error
}

// Error implements the error interface.
func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification to %s failed: %v", e.Channel, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *NotificationError) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether err must stop the process with a failure exit.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var notif *NotificationError
	return !errors.As(err, &notif)
}
