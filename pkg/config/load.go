package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "RUNSWEEP_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention RUNSWEEP_SECTION_FIELD (e.g., RUNSWEEP_RETENTION_WEEKS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// SecretResolver replaces ${secret:name} references with secret values.
type SecretResolver interface {
	ResolveReferences(ctx context.Context, input string) (string, error)
}

// ResolveSecrets resolves secret references in every credential field.
// Fields without a reference are left as they are.
func ResolveSecrets(ctx context.Context, cfg *Config, resolver SecretResolver) error {
	fields := map[string]*string{
		"remote.token":                        &cfg.Remote.Token,
		"remote.staging.s3.access_key_id":     &cfg.Remote.Staging.S3.AccessKeyID,
		"remote.staging.s3.secret_access_key": &cfg.Remote.Staging.S3.SecretAccessKey,
		"ticket.email":                        &cfg.Ticket.Email,
		"ticket.token":                        &cfg.Ticket.Token,
		"notify.slack_token":                  &cfg.Notify.SlackToken,
		"intent.postgres_dsn":                 &cfg.Intent.PostgresDSN,
	}

	for name, field := range fields {
		if !strings.Contains(*field, "${secret:") {
			continue
		}
		resolved, err := resolver.ResolveReferences(ctx, *field)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", name, err)
		}
		*field = resolved
	}
	return nil
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envList(key string, dst *[]string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		var list []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
		*dst = list
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format RUNSWEEP_SECTION_FIELD; list values are
// comma separated.
func applyEnvOverrides(cfg *Config) {
	envString("FILESYSTEM_GENETICS_DIR", &cfg.Filesystem.GeneticsDir)
	envString("FILESYSTEM_LOGS_DIR", &cfg.Filesystem.LogsDir)
	envList("FILESYSTEM_SEQUENCERS", &cfg.Filesystem.Sequencers)

	envInt("RETENTION_WEEKS", &cfg.Retention.Weeks)
	envList("RETENTION_ALLOWED_ASSAYS", &cfg.Retention.AllowedAssays)
	envInt("RETENTION_PROPOSE_WEEKDAY", &cfg.Retention.ProposeWeekday)
	envInt("RETENTION_EXECUTE_WEEKDAY", &cfg.Retention.ExecuteWeekday)

	envString("LOOKUP_ON_ERROR", &cfg.Lookup.OnError)

	envString("REMOTE_API_URL", &cfg.Remote.APIURL)
	envString("REMOTE_TOKEN", &cfg.Remote.Token)
	envString("REMOTE_STAGING_PROJECT", &cfg.Remote.StagingProject)
	envDuration("REMOTE_TIMEOUT", &cfg.Remote.Timeout)
	envString("REMOTE_STAGING_BACKEND", &cfg.Remote.Staging.Backend)
	envString("REMOTE_STAGING_S3_BUCKET", &cfg.Remote.Staging.S3.Bucket)
	envString("REMOTE_STAGING_S3_ENDPOINT", &cfg.Remote.Staging.S3.Endpoint)

	envString("TICKET_API_URL", &cfg.Ticket.APIURL)
	envString("TICKET_EMAIL", &cfg.Ticket.Email)
	envString("TICKET_TOKEN", &cfg.Ticket.Token)
	envString("TICKET_PROJECT_ID", &cfg.Ticket.ProjectID)
	envString("TICKET_REPORTER_ID", &cfg.Ticket.ReporterID)
	envString("TICKET_BROWSE_URL", &cfg.Ticket.BrowseURL)

	envString("NOTIFY_SLACK_TOKEN", &cfg.Notify.SlackToken)
	envString("NOTIFY_PENDING_CHANNEL", &cfg.Notify.PendingChannel)
	envString("NOTIFY_ALERTS_CHANNEL", &cfg.Notify.AlertsChannel)

	envString("INTENT_BACKEND", &cfg.Intent.Backend)
	envString("INTENT_PATH", &cfg.Intent.Path)
	envString("INTENT_SQLITE_PATH", &cfg.Intent.SQLitePath)
	envString("INTENT_POSTGRES_DSN", &cfg.Intent.PostgresDSN)

	envString("AUDIT_LOG_PATH", &cfg.Audit.LogPath)
	envBool("AUDIT_KAFKA_ENABLED", &cfg.Audit.Kafka.Enabled)
	envList("AUDIT_KAFKA_BROKERS", &cfg.Audit.Kafka.Brokers)
	envString("AUDIT_KAFKA_TOPIC", &cfg.Audit.Kafka.Topic)

	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PUSHGATEWAY_URL", &cfg.Telemetry.Metrics.PushgatewayURL)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)

	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envString("SERVER_SCHEDULE", &cfg.Server.Schedule)

	envBool("DEBUG", &cfg.Debug)
	envBool("SERVER_TESTING", &cfg.ServerTesting)
}
