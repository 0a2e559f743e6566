package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"labops/runsweep/pkg/cli"
	"labops/runsweep/pkg/config"
	"labops/runsweep/pkg/intent/filestore"
	"labops/runsweep/pkg/lifecycle"
)

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		cfg     config.IntentConfig
		wantErr bool
	}{
		{name: "memory", cfg: config.IntentConfig{Backend: config.IntentBackendMemory}},
		{name: "file", cfg: config.IntentConfig{Backend: config.IntentBackendFile, Path: filepath.Join(dir, "file", "intent.json")}},
		{name: "sqlite", cfg: config.IntentConfig{Backend: config.IntentBackendSQLite, SQLitePath: filepath.Join(dir, "intent.db")}},
		{name: "unknown", cfg: config.IntentConfig{Backend: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, err := openStore(ctx, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("openStore() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer store.Close()

			records := []lifecycle.IntentRecord{{Run: "run_1", Sequencer: "A01295a", Status: "ALL SAMPLES RELEASED"}}
			if err := store.Replace(ctx, records); err != nil {
				t.Fatalf("Replace() failed: %v", err)
			}
			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if len(got) != 1 || got[0].Run != "run_1" {
				t.Errorf("Load() = %+v", got)
			}
		})
	}
}

func TestOpenStore_FileLocked(t *testing.T) {
	cfg := config.IntentConfig{Backend: config.IntentBackendFile, Path: filepath.Join(t.TempDir(), "intent.json")}
	first, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openStore() failed: %v", err)
	}
	defer first.Close()

	if _, err := openStore(context.Background(), cfg); !errors.Is(err, filestore.ErrLocked) {
		t.Errorf("second openStore() error = %v, want ErrLocked", err)
	}
}

func TestParseDate(t *testing.T) {
	now, err := parseDate("")
	if err != nil || now != nil {
		t.Fatalf("parseDate(\"\") = %v, %v, want nil clock", now != nil, err)
	}

	now, err = parseDate("2024-03-06")
	if err != nil {
		t.Fatalf("parseDate() failed: %v", err)
	}
	got := now()
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 6 || got.Weekday() != time.Wednesday {
		t.Errorf("now() = %v", got)
	}

	if _, err := parseDate("06/03/2024"); err == nil {
		t.Error("expected error for non ISO date")
	}
}

func TestConfigError(t *testing.T) {
	verr := config.ValidationError{Errors: []config.FieldError{{Field: "retention.weeks", Message: "must be positive"}}}
	if code := cli.ExitCode(configError(verr)); code != cli.ExitConfig {
		t.Errorf("validation error exit code = %d, want %d", code, cli.ExitConfig)
	}
	if code := cli.ExitCode(configError(errors.New("open runsweep.yaml: no such file"))); code != cli.ExitConfig {
		t.Errorf("load error exit code = %d, want %d", code, cli.ExitConfig)
	}
}

func TestComponentsClose(t *testing.T) {
	var order []string
	c := &components{closers: []func() error{
		func() error { order = append(order, "store"); return nil },
		func() error { order = append(order, "audit"); return errors.New("flush failed") },
	}}
	if err := c.Close(); err == nil {
		t.Error("expected close error")
	}
	if len(order) != 2 || order[0] != "audit" || order[1] != "store" {
		t.Errorf("close order = %v", order)
	}
}

func TestStartEngine_AlertsOnSetupFailure(t *testing.T) {
	var (
		mu    sync.Mutex
		posts []string
	)
	slackAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		posts = append(posts, r.FormValue("channel")+" "+r.FormValue("text"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok": true, "channel": "C0001", "ts": "1"}`))
	}))
	defer slackAPI.Close()

	cfg := &config.Config{
		Intent: config.IntentConfig{Backend: config.IntentBackendFile, Path: filepath.Join(t.TempDir(), "intent.json")},
		Notify: config.NotifyConfig{APIURL: slackAPI.URL, SlackToken: "xoxb-test", AlertsChannel: "egg-alerts"},
	}
	held, err := openStore(context.Background(), cfg.Intent)
	if err != nil {
		t.Fatalf("openStore() failed: %v", err)
	}
	defer held.Close()

	comps, err := startEngine(context.Background(), cfg, &telemetry{}, nil)
	if !errors.Is(err, filestore.ErrLocked) || comps != nil {
		t.Fatalf("startEngine() = %v, %v, want ErrLocked", comps, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(posts) != 1 {
		t.Fatalf("posted %d alerts, want 1: %q", len(posts), posts)
	}
	if !strings.HasPrefix(posts[0], "#egg-alerts ") || !strings.Contains(posts[0], "cycle could not start") {
		t.Errorf("alert = %q", posts[0])
	}
}
