package secrets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"labops/runsweep/pkg/config"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("RUNSWEEP_SECRET_JIRA_TOKEN", "env-value")

	p := NewEnvProvider("RUNSWEEP_SECRET_")
	value, err := p.GetSecret(context.Background(), "jira-token")
	if err != nil {
		t.Fatalf("GetSecret() failed: %v", err)
	}
	if value != "env-value" {
		t.Errorf("value = %q, want env-value", value)
	}

	if _, err := p.GetSecret(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing variable")
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "slack-token"), []byte("xoxb-1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "loose"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	p := NewFileProvider(dir)
	tests := []struct {
		name    string
		secret  string
		want    string
		wantErr bool
	}{
		{name: "trimmed value", secret: "slack-token", want: "xoxb-1"},
		{name: "insecure permissions", secret: "loose", wantErr: true},
		{name: "missing", secret: "nope", wantErr: true},
		{name: "traversal", secret: "../etc/passwd", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.GetSecret(context.Background(), tt.secret)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetSecret() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("GetSecret() = %q, want %q", got, tt.want)
			}
		})
	}

	if !p.Supports("slack-token") || p.Supports("nope") {
		t.Error("unexpected Supports() result")
	}
}

func TestManager_ResolveReferences(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dx-token"), []byte("file-dx"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RS_TEST_JIRA_TOKEN", "env-jira")

	m, err := FromConfig(config.SecretsConfig{
		Providers: []config.SecretProviderConfig{
			{Type: "file", Path: dir},
			{Type: "env", Prefix: "RS_TEST_"},
		},
		CacheTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("FromConfig() failed: %v", err)
	}

	got, err := m.ResolveReferences(context.Background(), "a=${secret:dx-token} b=${secret:jira-token}")
	if err != nil {
		t.Fatalf("ResolveReferences() failed: %v", err)
	}
	if got != "a=file-dx b=env-jira" {
		t.Errorf("ResolveReferences() = %q", got)
	}

	got, err = m.ResolveReferences(context.Background(), "${secret:absent}")
	if err == nil {
		t.Fatal("expected error for unresolved reference")
	}
	if !strings.Contains(got, "${secret:absent}") {
		t.Errorf("unresolved reference should be kept, got %q", got)
	}
}

func TestManager_CacheAndRefresh(t *testing.T) {
	t.Setenv("RS_CACHE_KEY", "v1")
	m := NewManager([]Provider{NewEnvProvider("RS_CACHE_")}, NewCache(time.Hour))

	if v, _ := m.GetSecret(context.Background(), "key"); v != "v1" {
		t.Fatalf("GetSecret() = %q, want v1", v)
	}
	t.Setenv("RS_CACHE_KEY", "v2")
	if v, _ := m.GetSecret(context.Background(), "key"); v != "v1" {
		t.Errorf("expected cached v1, got %q", v)
	}
	m.Refresh()
	if v, _ := m.GetSecret(context.Background(), "key"); v != "v2" {
		t.Errorf("expected v2 after refresh, got %q", v)
	}
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected cache hit")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry")
	}

	if _, ok := NewCache(0).Get("k"); ok {
		t.Error("zero TTL cache should never hit")
	}
}

func TestFromConfig_UnknownProvider(t *testing.T) {
	if _, err := FromConfig(config.SecretsConfig{Providers: []config.SecretProviderConfig{{Type: "vault"}}}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
