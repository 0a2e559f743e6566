package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"labops/runsweep/pkg/config"
)

// secretRefRegex matches ${secret:name}.
var secretRefRegex = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager resolves secrets through an ordered list of providers.
type Manager struct {
	providers []Provider
	cache     *Cache
	logger    *slog.Logger
}

// NewManager creates a manager over providers with the given cache.
func NewManager(providers []Provider, cache *Cache) *Manager {
	if cache == nil {
		cache = NewCache(0)
	}
	return &Manager{
		providers: providers,
		cache:     cache,
		logger:    slog.Default().With("component", "secrets"),
	}
}

// FromConfig builds a manager from the secrets configuration section.
func FromConfig(cfg config.SecretsConfig) (*Manager, error) {
	providers := make([]Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		switch pc.Type {
		case "env":
			providers = append(providers, NewEnvProvider(pc.Prefix))
		case "file":
			providers = append(providers, NewFileProvider(pc.Path))
		default:
			return nil, fmt.Errorf("unsupported secret provider %q", pc.Type)
		}
	}
	return NewManager(providers, NewCache(cfg.CacheTTL)), nil
}

// GetSecret returns the value from the first supporting provider that
// succeeds.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := m.cache.Get(name); ok {
		return value, nil
	}

	var lastErr error
	for _, p := range m.providers {
		if !p.Supports(name) {
			continue
		}
		value, err := p.GetSecret(ctx, name)
		if err != nil {
			lastErr = err
			m.logger.Debug("provider failed to get secret", "provider", p.Name(), "name", redactName(name), "error", err)
			continue
		}
		m.cache.Set(name, value)
		m.logger.Debug("secret resolved", "provider", p.Name(), "name", redactName(name))
		return value, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", name, lastErr)
	}
	return "", fmt.Errorf("secret not found: %q (no provider supports this secret)", name)
}

// ResolveReferences replaces every ${secret:name} in input. Unresolved
// references are kept and reported together in the returned error.
func (m *Manager) ResolveReferences(ctx context.Context, input string) (string, error) {
	var failures []string

	output := secretRefRegex.ReplaceAllStringFunc(input, func(match string) string {
		name := secretRefRegex.FindStringSubmatch(match)[1]
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			failures = append(failures, err.Error())
			return match
		}
		return value
	})

	if len(failures) > 0 {
		return output, fmt.Errorf("failed to resolve secret references: %s", strings.Join(failures, "; "))
	}
	return output, nil
}

// Refresh drops cached values so the next lookup reads the providers again.
func (m *Manager) Refresh() {
	m.cache.Clear()
}

func redactName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
