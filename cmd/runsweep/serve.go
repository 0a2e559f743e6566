package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"labops/runsweep/pkg/cli"
	"labops/runsweep/pkg/config"
	"labops/runsweep/pkg/lifecycle"
	"labops/runsweep/pkg/reconcile"
	"labops/runsweep/pkg/server"
	"labops/runsweep/pkg/telemetry/health"
)

var serveFlags struct {
	runNow      bool
	maxCycleAge time.Duration
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run cycles on a schedule and serve health and metrics",
	Long: `Run reconciliation cycles on the cron schedule in server.schedule and
serve health probes, Prometheus metrics and the cycle status API on
server.listen_address.

Endpoints:
  /healthz          liveness
  /readyz           readiness (directories present, recent successful cycle)
  /version          build information
  /metrics          Prometheus metrics
  /v1/intents       pending deletion batch
  /v1/cycles/last   report of the last cycle

With server.watch_config the configuration file is reloaded on change and
the next cycle uses it.`,
	PreRunE: checkServeBackend,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveFlags.runNow, "run-now", false, "run a cycle immediately on start")
	serveCmd.Flags().DurationVar(&serveFlags.maxCycleAge, "max-cycle-age", 36*time.Hour, "readiness fails when the last successful cycle is older")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	tel, err := setupTelemetry(cfg)
	if err != nil {
		return err
	}
	defer tel.Close(context.Background())

	// Each cycle reads the current configuration so reloads apply.
	cycle := func(ctx context.Context) (*reconcile.Report, error) {
		comps, err := startEngine(ctx, config.GetConfig(), tel, nil)
		if err != nil {
			return nil, err
		}
		defer comps.Close()
		return comps.engine.RunCycle(ctx)
	}
	sched := reconcile.NewScheduler(cfg.Server.Schedule, cycle)

	checker := health.New(5 * time.Second)
	checker.RegisterCheck("directories", func(ctx context.Context) error {
		current := config.GetConfig()
		return health.DirectoriesCheck(current.Filesystem.GeneticsDir, current.Filesystem.LogsDir)(ctx)
	})
	checker.RegisterCheck("last_cycle", health.FreshnessCheck(sched.LastSuccess, serveFlags.maxCycleAge))

	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		metricsHandler = tel.metrics.Handler()
	}

	srv := server.New(server.Config{
		ListenAddress:   cfg.Server.ListenAddress,
		MetricsPath:     cfg.Telemetry.Metrics.Path,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Version:         Version,
		Commit:          GitCommit,
		BuildTime:       BuildDate,
	}, server.Deps{
		Health:  checker,
		Metrics: metricsHandler,
		Cycles:  sched,
		Intents: loadIntents,
	})

	if cfg.Server.WatchConfig {
		watcher, err := config.NewWatcher(cfgFile, config.DefaultDebounceInterval)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		go func() {
			if err := watcher.Watch(ctx, func() error { return reloadConfig(ctx) }); err != nil {
				slog.Error("configuration watcher stopped", "error", err)
			}
		}()
	}

	if err := sched.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer sched.Stop()

	if serveFlags.runNow {
		go func() {
			_, err := sched.RunOnce(ctx)
			switch {
			case errors.Is(err, reconcile.ErrCycleRunning):
				slog.Info("initial cycle skipped, a scheduled cycle is running")
			case err != nil:
				slog.Error("initial cycle failed", "error", err)
			}
		}()
	}

	slog.Info("runsweep serving",
		"version", Version,
		"address", cfg.Server.ListenAddress,
		"schedule", cfg.Server.Schedule,
		"next_run", nextRunString(sched.NextRun()),
	)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	slog.Info("runsweep stopped")
	return nil
}

// loadIntents opens the store for one read. A file store held by a running
// cycle returns filestore.ErrLocked.
func loadIntents(ctx context.Context) ([]lifecycle.IntentRecord, error) {
	store, err := openStore(ctx, config.GetConfig().Intent)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load(ctx)
}

func nextRunString(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return t.Format(time.RFC3339)
}

// checkServeBackend rejects the memory backend, which does not survive
// from the propose day to the execute day.
func checkServeBackend(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return configError(err)
	}
	if config.GetConfig().Intent.Backend == config.IntentBackendMemory {
		return cli.NewConfigError("intent.backend", fmt.Sprintf("%q cannot be used with serve", config.IntentBackendMemory))
	}
	return nil
}
