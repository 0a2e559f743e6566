package httpclient

import (
	"fmt"
	"time"
)

// APIError is a non-2xx response from a remote service.
type APIError struct {
	// Service is the name of the remote service
	Service string

	// StatusCode is the HTTP status code
	StatusCode int

	// Message is the response body
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

// Retryable reports whether the status is worth retrying.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// AuthError is an HTTP 401 or 403 response.
type AuthError struct {
	Service string
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Service, e.Message)
}

// TimeoutError is a request that exceeded its deadline.
type TimeoutError struct {
	Service string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request timeout after %s", e.Service, e.Timeout)
}

// ParseError is a response body that could not be decoded.
type ParseError struct {
	Service     string
	RawResponse string
	Cause       error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s response parse error: %v", e.Service, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}
