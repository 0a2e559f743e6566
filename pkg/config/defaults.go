package config

import "time"

// Default values for configuration fields.
const (
	// Filesystem defaults
	DefaultGeneticsDir = "/genetics"
	DefaultLogsDir     = "/var/log/dx-streaming-upload"

	// Retention defaults
	DefaultRetentionWeeks = 2
	DefaultProposeWeekday = 1 // Monday
	DefaultExecuteWeekday = 3 // Wednesday

	// Lookup defaults
	LookupAbort    = "abort"
	LookupSkip     = "skip"
	DefaultOnError = LookupAbort

	// Remote defaults
	DefaultRemoteAPIURL    = "https://api.dnanexus.com"
	DefaultStagingProject  = "project-FpVG0G84X7kzq58g19vF1YJQ"
	DefaultProjectPrefix   = "002_"
	DefaultRemoteBrowseURL = "https://platform.dnanexus.com/panx/projects/%s/data"
	DefaultRemoteTimeout   = 30 * time.Second
	StagingBackendPlatform = "platform"
	StagingBackendS3       = "s3"
	DefaultStagingBackend  = StagingBackendPlatform
	DefaultStagingS3Region = "eu-west-2"
	DefaultStagingS3Prefix = "staging"

	// Ticket defaults
	DefaultTicketProjectKey          = "EBH"
	DefaultTicketDebugProjectKey     = "EBHD"
	DefaultTicketSequencingIssueType = "10179"
	DefaultTicketAckIssueType        = "10124"
	DefaultTicketPriorityID          = "3"
	DefaultTicketAssayField          = "customfield_10070"
	DefaultTicketTimeout             = 30 * time.Second

	// Notify defaults
	DefaultSlackAPIURL    = "https://slack.com/api"
	DefaultPendingChannel = "egg-logs"
	DefaultAlertsChannel  = "egg-alerts"
	DefaultDebugChannel   = "egg-test"
	DefaultNotifyRetries  = 5
	DefaultChunkLimit     = 7700
	DefaultNotifyTimeout  = 30 * time.Second

	// Intent defaults
	IntentBackendFile     = "file"
	IntentBackendSQLite   = "sqlite"
	IntentBackendPostgres = "postgres"
	IntentBackendMemory   = "memory"
	DefaultIntentBackend  = IntentBackendFile
	DefaultIntentPath     = "/var/lib/runsweep/intent.json"
	DefaultIntentSQLite   = "/var/lib/runsweep/intent.db"
	DefaultIntentTable    = "deletion_intents"

	// Audit defaults
	DefaultAuditLogPath      = "/log/monitoring/ansible_delete.txt"
	DefaultKafkaWriteTimeout = 10 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel      = "info"
	DefaultLoggingFormat     = "json"
	DefaultMetricsPath       = "/metrics"
	DefaultMetricsNamespace  = "runsweep"
	DefaultMetricsJob        = "runsweep"
	DefaultTracingSampling   = 1.0
	DefaultTracingService    = "runsweep"
	DefaultTracingTimeout    = 10 * time.Second
	DefaultServerListen      = "127.0.0.1:9180"
	DefaultServerSchedule    = "0 7 * * *"
	DefaultServerShutdown    = 30 * time.Second
	DefaultSecretsCacheTTL   = 5 * time.Minute
	DefaultSecretsEnvPrefix  = "RUNSWEEP_SECRET_"
	DefaultSecretsFileSource = "/run/secrets"
)

// Default list values. Functions return fresh slices so callers may modify them.

// DefaultDeleteStates returns the terminal ticket statuses permitting deletion.
func DefaultDeleteStates() []string {
	return []string{"ALL SAMPLES RELEASED", "DATA CANNOT BE PROCESSED", "DATA CANNOT BE RELEASED"}
}

// DefaultProjectRequiredStates returns the delete states that need a remote project.
func DefaultProjectRequiredStates() []string {
	return []string{"ALL SAMPLES RELEASED"}
}

// DefaultCycleDurationBuckets returns histogram buckets for cycle duration.
func DefaultCycleDurationBuckets() []float64 {
	return []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800}
}

// ApplyDefaults fills unset fields with their default values.
// Fields already set (non-zero) are left untouched.
func ApplyDefaults(cfg *Config) {
	fs := &cfg.Filesystem
	if fs.GeneticsDir == "" {
		fs.GeneticsDir = DefaultGeneticsDir
	}
	if fs.LogsDir == "" {
		fs.LogsDir = DefaultLogsDir
	}

	r := &cfg.Retention
	if r.Weeks == 0 {
		r.Weeks = DefaultRetentionWeeks
	}
	if len(r.DeleteStates) == 0 {
		r.DeleteStates = DefaultDeleteStates()
	}
	if r.ProjectRequiredStates == nil {
		r.ProjectRequiredStates = DefaultProjectRequiredStates()
	}
	if r.ProposeWeekday == 0 {
		r.ProposeWeekday = DefaultProposeWeekday
	}
	if r.ExecuteWeekday == 0 {
		r.ExecuteWeekday = DefaultExecuteWeekday
	}

	if cfg.Lookup.OnError == "" {
		cfg.Lookup.OnError = DefaultOnError
	}

	applyRemoteDefaults(&cfg.Remote)
	applyTicketDefaults(&cfg.Ticket)

	n := &cfg.Notify
	if n.APIURL == "" {
		n.APIURL = DefaultSlackAPIURL
	}
	if n.PendingChannel == "" {
		n.PendingChannel = DefaultPendingChannel
	}
	if n.AlertsChannel == "" {
		n.AlertsChannel = DefaultAlertsChannel
	}
	if n.DebugChannel == "" {
		n.DebugChannel = DefaultDebugChannel
	}
	if n.MaxRetries == 0 {
		n.MaxRetries = DefaultNotifyRetries
	}
	if n.ChunkLimit == 0 {
		n.ChunkLimit = DefaultChunkLimit
	}
	if n.Timeout == 0 {
		n.Timeout = DefaultNotifyTimeout
	}

	in := &cfg.Intent
	if in.Backend == "" {
		in.Backend = DefaultIntentBackend
	}
	if in.Path == "" {
		in.Path = DefaultIntentPath
	}
	if in.SQLitePath == "" {
		in.SQLitePath = DefaultIntentSQLite
	}
	if in.PostgresTable == "" {
		in.PostgresTable = DefaultIntentTable
	}

	if cfg.Audit.LogPath == "" {
		cfg.Audit.LogPath = DefaultAuditLogPath
	}
	if cfg.Audit.Kafka.WriteTimeout == 0 {
		cfg.Audit.Kafka.WriteTimeout = DefaultKafkaWriteTimeout
	}

	applyTelemetryDefaults(&cfg.Telemetry)

	s := &cfg.Server
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultServerListen
	}
	if s.Schedule == "" {
		s.Schedule = DefaultServerSchedule
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultServerShutdown
	}

	if cfg.Secrets.CacheTTL == 0 {
		cfg.Secrets.CacheTTL = DefaultSecretsCacheTTL
	}
	if len(cfg.Secrets.Providers) == 0 {
		cfg.Secrets.Providers = []SecretProviderConfig{
			{Type: "env", Prefix: DefaultSecretsEnvPrefix},
			{Type: "file", Path: DefaultSecretsFileSource},
		}
	}
}

func applyRemoteDefaults(rc *RemoteConfig) {
	if rc.APIURL == "" {
		rc.APIURL = DefaultRemoteAPIURL
	}
	if rc.StagingProject == "" {
		rc.StagingProject = DefaultStagingProject
	}
	if rc.ProjectPrefix == "" {
		rc.ProjectPrefix = DefaultProjectPrefix
	}
	if rc.BrowseURL == "" {
		rc.BrowseURL = DefaultRemoteBrowseURL
	}
	if rc.Timeout == 0 {
		rc.Timeout = DefaultRemoteTimeout
	}
	if rc.Staging.Backend == "" {
		rc.Staging.Backend = DefaultStagingBackend
	}
	if rc.Staging.S3.Region == "" {
		rc.Staging.S3.Region = DefaultStagingS3Region
	}
	if rc.Staging.S3.Prefix == "" {
		rc.Staging.S3.Prefix = DefaultStagingS3Prefix
	}
}

func applyTicketDefaults(tc *TicketConfig) {
	if tc.ProjectKey == "" {
		tc.ProjectKey = DefaultTicketProjectKey
	}
	if tc.DebugProjectKey == "" {
		tc.DebugProjectKey = DefaultTicketDebugProjectKey
	}
	if tc.SequencingIssueType == "" {
		tc.SequencingIssueType = DefaultTicketSequencingIssueType
	}
	if tc.AckIssueType == "" {
		tc.AckIssueType = DefaultTicketAckIssueType
	}
	if tc.PriorityID == "" {
		tc.PriorityID = DefaultTicketPriorityID
	}
	if tc.AssayField == "" {
		tc.AssayField = DefaultTicketAssayField
	}
	if tc.Timeout == 0 {
		tc.Timeout = DefaultTicketTimeout
	}
}

func applyTelemetryDefaults(tc *TelemetryConfig) {
	if tc.Logging.Level == "" {
		tc.Logging.Level = DefaultLoggingLevel
	}
	if tc.Logging.Format == "" {
		tc.Logging.Format = DefaultLoggingFormat
	}
	if tc.Logging.RedactSecrets == nil {
		redact := true
		tc.Logging.RedactSecrets = &redact
	}

	if tc.Metrics.Path == "" {
		tc.Metrics.Path = DefaultMetricsPath
	}
	if tc.Metrics.Namespace == "" {
		tc.Metrics.Namespace = DefaultMetricsNamespace
	}
	if tc.Metrics.Job == "" {
		tc.Metrics.Job = DefaultMetricsJob
	}
	if len(tc.Metrics.CycleDurationBuckets) == 0 {
		tc.Metrics.CycleDurationBuckets = DefaultCycleDurationBuckets()
	}

	if tc.Tracing.SampleRatio == 0 {
		tc.Tracing.SampleRatio = DefaultTracingSampling
	}
	if tc.Tracing.ServiceName == "" {
		tc.Tracing.ServiceName = DefaultTracingService
	}
	if tc.Tracing.Timeout == 0 {
		tc.Tracing.Timeout = DefaultTracingTimeout
	}
}
