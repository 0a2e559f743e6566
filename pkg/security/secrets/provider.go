// Package secrets resolves credentials referenced from configuration as
// ${secret:name}. Providers are tried in order; resolved values are cached
// for a configurable TTL.
package secrets

import "context"

// Provider retrieves secrets from a backend.
type Provider interface {
	// GetSecret retrieves a secret by name.
	GetSecret(ctx context.Context, name string) (string, error)

	// Name returns the provider name (env, file).
	Name() string

	// Supports reports whether the provider may hold the named secret.
	Supports(name string) bool
}
