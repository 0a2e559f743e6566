package config

import "time"

// Config is the root configuration structure for runsweep.
// It contains every section needed to scan run directories, consult the
// remote platform and ticketing system, persist deletion intent, notify
// operators and expose telemetry.
type Config struct {
	// Filesystem locates run directories and upload logs.
	Filesystem FilesystemConfig `yaml:"filesystem"`

	// Retention holds the deletion policy thresholds and the weekly
	// propose/execute schedule.
	Retention RetentionConfig `yaml:"retention"`

	// Lookup controls how per-run gateway failures are handled.
	Lookup LookupConfig `yaml:"lookup"`

	// Remote configures the project platform and the staging area check.
	Remote RemoteConfig `yaml:"remote"`

	// Ticket configures the ticketing system client.
	Ticket TicketConfig `yaml:"ticket"`

	// Notify configures chat digests and alerts.
	Notify NotifyConfig `yaml:"notify"`

	// Intent selects the intent store backend.
	Intent IntentConfig `yaml:"intent"`

	// Audit configures the deletion audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Server configures serve mode (status endpoints and cron schedule).
	Server ServerConfig `yaml:"server"`

	// Secrets configures the providers used to resolve ${secret:name}
	// references in credential fields.
	Secrets SecretsConfig `yaml:"secrets"`

	// Debug routes chat posts to the debug channel and ticket operations
	// to the debug project.
	Debug bool `yaml:"debug"`

	// ServerTesting keeps ticket searches on the production project even
	// in debug mode, for simulated end-to-end runs.
	ServerTesting bool `yaml:"server_testing"`
}

// FilesystemConfig locates run data on local disk.
type FilesystemConfig struct {
	// GeneticsDir is the root holding one directory per sequencer.
	// Default: "/genetics"
	GeneticsDir string `yaml:"genetics_dir"`

	// LogsDir is the root holding upload logs, one directory per sequencer.
	// Default: "/var/log/dx-streaming-upload"
	LogsDir string `yaml:"logs_dir"`

	// Sequencers lists the sequencer directories to monitor. Required.
	Sequencers []string `yaml:"sequencers"`
}

// RetentionConfig contains the deletion policy.
type RetentionConfig struct {
	// Weeks is the minimum run age before any action is taken.
	// Default: 2
	Weeks int `yaml:"weeks"`

	// AllowedAssays lists the assays eligible for automated deletion.
	// Required.
	AllowedAssays []string `yaml:"allowed_assays"`

	// DeleteStates lists the terminal ticket statuses that permit deletion.
	// Default: ["ALL SAMPLES RELEASED", "DATA CANNOT BE PROCESSED", "DATA CANNOT BE RELEASED"]
	DeleteStates []string `yaml:"delete_states"`

	// ProjectRequiredStates lists the delete states that additionally
	// require a remote project to exist.
	// Default: ["ALL SAMPLES RELEASED"]
	ProjectRequiredStates []string `yaml:"project_required_states"`

	// ProposeWeekday is the ISO weekday (1=Monday) on which the deletion
	// batch is proposed. Default: 1
	ProposeWeekday int `yaml:"propose_weekday"`

	// ExecuteWeekday is the ISO weekday on which the batch is executed.
	// Default: 3
	ExecuteWeekday int `yaml:"execute_weekday"`
}

// Threshold returns the retention threshold as a duration.
func (r RetentionConfig) Threshold() time.Duration {
	return time.Duration(r.Weeks) * 7 * 24 * time.Hour
}

// LookupConfig controls per-run gateway failure handling.
type LookupConfig struct {
	// OnError is "abort" (fail the cycle) or "skip" (exclude the run and alert).
	// Default: "abort"
	OnError string `yaml:"on_error"`
}

// RemoteConfig configures the project platform.
type RemoteConfig struct {
	// APIURL is the platform API base URL.
	// Default: "https://api.dnanexus.com"
	APIURL string `yaml:"api_url"`

	// Token is the platform API token. Required.
	Token string `yaml:"token"`

	// StagingProject is the project holding uploaded run data.
	// Default: "project-FpVG0G84X7kzq58g19vF1YJQ"
	StagingProject string `yaml:"staging_project"`

	// ProjectPrefix is prepended to run names when searching projects.
	// Default: "002_"
	ProjectPrefix string `yaml:"project_prefix"`

	// BrowseURL is the project browse URL format (one %s for the project id).
	BrowseURL string `yaml:"browse_url"`

	// Timeout bounds each platform request.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Staging selects how upload state is checked.
	Staging StagingConfig `yaml:"staging"`
}

// StagingConfig selects the staging area backend.
type StagingConfig struct {
	// Backend is "platform" (query the staging project) or "s3".
	// Default: "platform"
	Backend string `yaml:"backend"`

	// S3 configures the S3 backend.
	S3 S3Config `yaml:"s3"`
}

// S3Config contains S3 staging bucket configuration.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// TicketConfig configures the ticketing system.
type TicketConfig struct {
	// APIURL is the site base URL, e.g. "https://example.atlassian.net".
	APIURL string `yaml:"api_url"`

	// Email and Token authenticate with basic auth.
	Email string `yaml:"email"`
	Token string `yaml:"token"`

	// ProjectKey is the project searched for run tickets.
	// Default: "EBH"
	ProjectKey string `yaml:"project_key"`

	// DebugProjectKey is searched instead in debug mode.
	// Default: "EBHD"
	DebugProjectKey string `yaml:"debug_project_key"`

	// ProjectID is the project in which acknowledgement tickets are created.
	ProjectID string `yaml:"project_id"`

	// DebugProjectID is used for acknowledgement tickets in debug mode.
	DebugProjectID string `yaml:"debug_project_id"`

	// ReporterID is the account reporting acknowledgement tickets.
	ReporterID string `yaml:"reporter_id"`

	// SequencingIssueType is the issue type id of sequencing run tickets.
	// Default: "10179"
	SequencingIssueType string `yaml:"sequencing_issue_type"`

	// AckIssueType is the issue type id of acknowledgement tickets.
	// Default: "10124"
	AckIssueType string `yaml:"ack_issue_type"`

	// PriorityID of acknowledgement tickets.
	// Default: "3"
	PriorityID string `yaml:"priority_id"`

	// AssayField is the custom field holding the assay.
	// Default: "customfield_10070"
	AssayField string `yaml:"assay_field"`

	// BrowseURL prefixes ticket keys in digests.
	BrowseURL string `yaml:"browse_url"`

	// Timeout bounds each ticketing request.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// NotifyConfig configures chat notifications.
type NotifyConfig struct {
	// SlackToken is the bot token. Required.
	SlackToken string `yaml:"slack_token"`

	// APIURL is the Slack Web API base URL.
	// Default: "https://slack.com/api"
	APIURL string `yaml:"api_url"`

	// PendingChannel receives the pending-deletion and manual-review digests.
	// Default: "egg-logs"
	PendingChannel string `yaml:"pending_channel"`

	// AlertsChannel receives operational alerts and deletion reports.
	// Default: "egg-alerts"
	AlertsChannel string `yaml:"alerts_channel"`

	// DebugChannel receives every post in debug mode.
	// Default: "egg-test"
	DebugChannel string `yaml:"debug_channel"`

	// MaxRetries for a failed post.
	// Default: 5
	MaxRetries int `yaml:"max_retries"`

	// ChunkLimit is the largest message body posted at once.
	// Default: 7700
	ChunkLimit int `yaml:"chunk_limit"`

	// Timeout bounds each post.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// IntentConfig selects the intent store backend.
type IntentConfig struct {
	// Backend is "file", "sqlite", "postgres" or "memory".
	// Default: "file"
	Backend string `yaml:"backend"`

	// Path is the JSON file used by the file backend.
	// Default: "/var/lib/runsweep/intent.json"
	Path string `yaml:"path"`

	// SQLitePath is the database used by the sqlite backend.
	// Default: "/var/lib/runsweep/intent.db"
	SQLitePath string `yaml:"sqlite_path"`

	// PostgresDSN is the connection string used by the postgres backend.
	PostgresDSN string `yaml:"postgres_dsn"`

	// PostgresTable is the table used by the postgres backend.
	// Default: "deletion_intents"
	PostgresTable string `yaml:"postgres_table"`
}

// AuditConfig configures the deletion audit trail.
type AuditConfig struct {
	// LogPath is the text audit log. Falls back to the working directory
	// when its parent directory does not exist.
	// Default: "/log/monitoring/ansible_delete.txt"
	LogPath string `yaml:"log_path"`

	// Kafka optionally publishes one event per deletion.
	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig configures the audit event publisher.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`

	// WriteTimeout bounds each publish.
	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// File additionally writes logs to this path.
	File string `yaml:"file"`

	// RedactSecrets masks tokens and credentials in log attributes.
	// Default: true
	RedactSecrets *bool `yaml:"redact_secrets"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint in serve mode.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "runsweep"
	Namespace string `yaml:"namespace"`

	// PushgatewayURL, when set, receives the metrics of each one-shot cycle.
	PushgatewayURL string `yaml:"pushgateway_url"`

	// Job is the pushgateway job name.
	// Default: "runsweep"
	Job string `yaml:"job"`

	// CycleDurationBuckets defines histogram buckets for cycle duration (seconds).
	CycleDurationBuckets []float64 `yaml:"cycle_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the collector connection.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of cycles traced (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the service name in traces.
	// Default: "runsweep"
	ServiceName string `yaml:"service_name"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig configures serve mode.
type ServerConfig struct {
	// ListenAddress for the status endpoints.
	// Default: "127.0.0.1:9180"
	ListenAddress string `yaml:"listen_address"`

	// Schedule is the cron expression for reconciliation cycles.
	// Default: "0 7 * * *"
	Schedule string `yaml:"schedule"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// WatchConfig reloads the configuration file when it changes.
	WatchConfig bool `yaml:"watch_config"`
}

// SecretsConfig contains secret resolution configuration.
type SecretsConfig struct {
	// Providers are tried in order until one returns a value.
	Providers []SecretProviderConfig `yaml:"providers"`

	// CacheTTL is how long resolved secrets are cached.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// SecretProviderConfig configures one secret provider.
type SecretProviderConfig struct {
	// Type is "env" or "file".
	Type string `yaml:"type"`

	// Prefix is the environment variable prefix (env provider).
	// Example: "RUNSWEEP_SECRET_"
	Prefix string `yaml:"prefix,omitempty"`

	// Path is the directory of secret files (file provider).
	Path string `yaml:"path,omitempty"`
}
