package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"labops/runsweep/pkg/audit"
	"labops/runsweep/pkg/cli"
	"labops/runsweep/pkg/config"
	"labops/runsweep/pkg/gateway"
	"labops/runsweep/pkg/gateway/platform"
	"labops/runsweep/pkg/gateway/staging"
	"labops/runsweep/pkg/intent"
	"labops/runsweep/pkg/intent/filestore"
	"labops/runsweep/pkg/intent/pgstore"
	"labops/runsweep/pkg/intent/sqlitestore"
	"labops/runsweep/pkg/lifecycle/scanner"
	"labops/runsweep/pkg/notify"
	"labops/runsweep/pkg/reconcile"
	"labops/runsweep/pkg/security/secrets"
	"labops/runsweep/pkg/telemetry/logging"
	"labops/runsweep/pkg/telemetry/metrics"
	"labops/runsweep/pkg/telemetry/tracing"
	"labops/runsweep/pkg/ticket"
)

// loadConfig initializes the configuration singleton and resolves secret
// references in place.
func loadConfig(ctx context.Context) (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, configError(err)
	}
	cfg := config.GetConfig()
	if err := resolveSecrets(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reloadConfig loads a fresh copy of the configuration file and swaps it
// in. The previous configuration stays active on failure.
func reloadConfig(ctx context.Context) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}
	if err := resolveSecrets(ctx, cfg); err != nil {
		return err
	}
	config.SetConfig(cfg)
	return nil
}

func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	manager, err := secrets.FromConfig(cfg.Secrets)
	if err != nil {
		return cli.NewConfigError("secrets", err.Error())
	}
	if err := config.ResolveSecrets(ctx, cfg, manager); err != nil {
		return cli.NewConfigError("secrets", err.Error())
	}
	return nil
}

func configError(err error) error {
	var verr config.ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
}

// telemetry holds the process-wide observability stack. It outlives the
// per-cycle components so serve mode keeps one registry and tracer.
type telemetry struct {
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

func setupTelemetry(cfg *config.Config) (*telemetry, error) {
	logCfg := logging.FromConfig(cfg.Telemetry.Logging)
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger.Slog())

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	return &telemetry{
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry()),
		tracer:  tracer,
	}, nil
}

// Close flushes spans and closes the log file.
func (t *telemetry) Close(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return errors.Join(t.tracer.Shutdown(shutdownCtx), t.logger.Close())
}

// openStore opens the configured intent store backend.
func openStore(ctx context.Context, cfg config.IntentConfig) (intent.Store, error) {
	switch cfg.Backend {
	case config.IntentBackendFile:
		return filestore.Open(cfg.Path)
	case config.IntentBackendSQLite:
		return sqlitestore.Open(sqlitestore.Config{Path: cfg.SQLitePath})
	case config.IntentBackendPostgres:
		return pgstore.Open(ctx, cfg.PostgresDSN, cfg.PostgresTable)
	case config.IntentBackendMemory:
		return intent.NewMemory(), nil
	default:
		return nil, cli.NewConfigError("intent.backend", fmt.Sprintf("unknown backend %q", cfg.Backend))
	}
}

func newPlatformClient(cfg *config.Config) *platform.Client {
	return platform.NewClient(platform.Config{
		APIURL:         cfg.Remote.APIURL,
		Token:          cfg.Remote.Token,
		StagingProject: cfg.Remote.StagingProject,
		ProjectPrefix:  cfg.Remote.ProjectPrefix,
		BrowseURL:      cfg.Remote.BrowseURL,
		Timeout:        cfg.Remote.Timeout,
	})
}

func newStagingChecker(ctx context.Context, cfg *config.Config, fallback gateway.StagingChecker) (gateway.StagingChecker, error) {
	if cfg.Remote.Staging.Backend != config.StagingBackendS3 {
		return fallback, nil
	}
	s3cfg := cfg.Remote.Staging.S3
	return staging.NewS3Checker(ctx, staging.Config{
		Bucket:          s3cfg.Bucket,
		Prefix:          s3cfg.Prefix,
		Region:          s3cfg.Region,
		Endpoint:        s3cfg.Endpoint,
		PathStyle:       s3cfg.PathStyle,
		AccessKeyID:     s3cfg.AccessKeyID,
		SecretAccessKey: s3cfg.SecretAccessKey,
	})
}

func newTicketClient(cfg *config.Config) (*ticket.Client, error) {
	return ticket.NewClient(ticket.Config{
		APIURL:              cfg.Ticket.APIURL,
		Email:               cfg.Ticket.Email,
		Token:               cfg.Ticket.Token,
		ProjectKey:          cfg.Ticket.ProjectKey,
		DebugProjectKey:     cfg.Ticket.DebugProjectKey,
		DebugProjectID:      cfg.Ticket.DebugProjectID,
		SequencingIssueType: cfg.Ticket.SequencingIssueType,
		AssayField:          cfg.Ticket.AssayField,
		Debug:               cfg.Debug,
		ServerTesting:       cfg.ServerTesting,
		Timeout:             cfg.Ticket.Timeout,
	})
}

func newSlack(cfg *config.Config) *notify.Slack {
	return notify.NewSlack(notify.SlackConfig{
		Token:        cfg.Notify.SlackToken,
		APIURL:       cfg.Notify.APIURL,
		Debug:        cfg.Debug,
		DebugChannel: cfg.Notify.DebugChannel,
		MaxRetries:   cfg.Notify.MaxRetries,
		Timeout:      cfg.Notify.Timeout,
	})
}

func newAuditTrail(cfg config.AuditConfig) (*audit.Trail, error) {
	var log *audit.FileLog
	if cfg.LogPath != "" {
		l, err := audit.OpenFileLog(cfg.LogPath)
		if err != nil {
			return nil, err
		}
		log = l
	}

	var publishers []audit.Publisher
	if cfg.Kafka.Enabled {
		p, err := audit.NewKafkaPublisher(audit.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		if err != nil {
			if log != nil {
				_ = log.Close()
			}
			return nil, err
		}
		publishers = append(publishers, p)
	}
	return audit.NewTrail(log, publishers...), nil
}

// alertSetupFailure posts err to the alerts channel. It covers failures
// before an engine exists, such as a held store lock or an unreachable
// database, which would otherwise only reach the log.
func alertSetupFailure(ctx context.Context, cfg *config.Config, err error) {
	alerter := notify.NewAlerter(newSlack(cfg), cfg.Notify.AlertsChannel)
	_ = alerter.Alert(ctx, fmt.Sprintf(":warning: cycle could not start\n```%v```", err))
}

// startEngine builds an engine from cfg and alerts when that fails.
func startEngine(ctx context.Context, cfg *config.Config, tel *telemetry, now func() time.Time) (*components, error) {
	comps, err := buildEngine(ctx, cfg, tel, now)
	if err != nil {
		alertSetupFailure(ctx, cfg, err)
		return nil, err
	}
	return comps, nil
}

// components is one engine and the resources it holds open.
type components struct {
	engine  *reconcile.Engine
	tickets *ticket.Client
	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (c *components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}

// buildEngine wires an engine from cfg. now overrides the engine clock
// when non-nil.
func buildEngine(ctx context.Context, cfg *config.Config, tel *telemetry, now func() time.Time) (*components, error) {
	c := &components{}

	store, err := openStore(ctx, cfg.Intent)
	if err != nil {
		return nil, fmt.Errorf("failed to open intent store: %w", err)
	}
	c.closers = append(c.closers, store.Close)

	client := newPlatformClient(cfg)
	stagingChecker, err := newStagingChecker(ctx, cfg, client)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to create staging checker: %w", err)
	}

	trail, err := newAuditTrail(cfg.Audit)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to open audit trail: %w", err)
	}
	c.closers = append(c.closers, trail.Close)

	tickets, err := newTicketClient(cfg)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.tickets = tickets
	slack := newSlack(cfg)

	engine, err := reconcile.New(reconcile.FromConfig(cfg), reconcile.Deps{
		Scanner:  scanner.New(),
		Auth:     client,
		Remote:   gateway.NewRemote(stagingChecker, client),
		Tickets:  c.tickets,
		Store:    store,
		Notifier: slack,
		Alerter:  notify.NewAlerter(slack, cfg.Notify.AlertsChannel),
		Audit:    trail,
		Metrics:  tel.metrics,
		Tracer:   tel.tracer,
		Now:      now,
	})
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.engine = engine
	return c, nil
}
