package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "retention.weeks").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateFilesystem(&cfg.Filesystem)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateLookup(&cfg.Lookup)...)
	errs = append(errs, validateRemote(&cfg.Remote)...)
	errs = append(errs, validateTicket(&cfg.Ticket)...)
	errs = append(errs, validateNotify(&cfg.Notify)...)
	errs = append(errs, validateIntent(&cfg.Intent)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateSecrets(&cfg.Secrets)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func required(field, value string) []FieldError {
	if strings.TrimSpace(value) == "" {
		return []FieldError{{Field: field, Message: "field is required"}}
	}
	return nil
}

func validURL(field, value string) []FieldError {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return []FieldError{{Field: field, Message: fmt.Sprintf("invalid URL %q", value)}}
	}
	return nil
}

func validateFilesystem(cfg *FilesystemConfig) []FieldError {
	var errs []FieldError
	errs = append(errs, required("filesystem.genetics_dir", cfg.GeneticsDir)...)
	errs = append(errs, required("filesystem.logs_dir", cfg.LogsDir)...)
	if len(cfg.Sequencers) == 0 {
		errs = append(errs, FieldError{Field: "filesystem.sequencers", Message: "at least one sequencer is required"})
	}
	for i, seq := range cfg.Sequencers {
		if seq == "" || strings.ContainsAny(seq, "/\\") {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("filesystem.sequencers[%d]", i),
				Message: fmt.Sprintf("invalid sequencer directory name %q", seq),
			})
		}
	}
	return errs
}

func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	if cfg.Weeks < 1 {
		errs = append(errs, FieldError{Field: "retention.weeks", Message: "must be at least 1"})
	}
	if len(cfg.AllowedAssays) == 0 {
		errs = append(errs, FieldError{Field: "retention.allowed_assays", Message: "at least one assay is required"})
	}

	deleteStates := make(map[string]bool, len(cfg.DeleteStates))
	for _, s := range cfg.DeleteStates {
		deleteStates[strings.ToUpper(strings.TrimSpace(s))] = true
	}
	for _, s := range cfg.ProjectRequiredStates {
		if !deleteStates[strings.ToUpper(strings.TrimSpace(s))] {
			errs = append(errs, FieldError{
				Field:   "retention.project_required_states",
				Message: fmt.Sprintf("%q is not a delete state", s),
			})
		}
	}

	for field, day := range map[string]int{
		"retention.propose_weekday": cfg.ProposeWeekday,
		"retention.execute_weekday": cfg.ExecuteWeekday,
	} {
		if day < 1 || day > 7 {
			errs = append(errs, FieldError{Field: field, Message: "must be an ISO weekday between 1 (Monday) and 7 (Sunday)"})
		}
	}
	if cfg.ProposeWeekday == cfg.ExecuteWeekday {
		errs = append(errs, FieldError{Field: "retention.execute_weekday", Message: "must differ from propose_weekday"})
	}

	return errs
}

func validateLookup(cfg *LookupConfig) []FieldError {
	switch cfg.OnError {
	case LookupAbort, LookupSkip:
		return nil
	default:
		return []FieldError{{Field: "lookup.on_error", Message: fmt.Sprintf("must be %q or %q", LookupAbort, LookupSkip)}}
	}
}

func validateRemote(cfg *RemoteConfig) []FieldError {
	var errs []FieldError
	errs = append(errs, required("remote.token", cfg.Token)...)
	errs = append(errs, validURL("remote.api_url", cfg.APIURL)...)
	if !strings.Contains(cfg.BrowseURL, "%s") {
		errs = append(errs, FieldError{Field: "remote.browse_url", Message: "must contain %s for the project id"})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "remote.timeout", Message: "must not be negative"})
	}

	switch cfg.Staging.Backend {
	case StagingBackendPlatform:
		errs = append(errs, required("remote.staging_project", cfg.StagingProject)...)
	case StagingBackendS3:
		errs = append(errs, required("remote.staging.s3.bucket", cfg.Staging.S3.Bucket)...)
		errs = append(errs, validURL("remote.staging.s3.endpoint", cfg.Staging.S3.Endpoint)...)
	default:
		errs = append(errs, FieldError{
			Field:   "remote.staging.backend",
			Message: fmt.Sprintf("must be %q or %q", StagingBackendPlatform, StagingBackendS3),
		})
	}
	return errs
}

func validateTicket(cfg *TicketConfig) []FieldError {
	var errs []FieldError
	errs = append(errs, required("ticket.api_url", cfg.APIURL)...)
	errs = append(errs, validURL("ticket.api_url", cfg.APIURL)...)
	errs = append(errs, required("ticket.email", cfg.Email)...)
	errs = append(errs, required("ticket.token", cfg.Token)...)
	errs = append(errs, required("ticket.project_key", cfg.ProjectKey)...)
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "ticket.timeout", Message: "must not be negative"})
	}
	return errs
}

func validateNotify(cfg *NotifyConfig) []FieldError {
	var errs []FieldError
	errs = append(errs, required("notify.slack_token", cfg.SlackToken)...)
	errs = append(errs, validURL("notify.api_url", cfg.APIURL)...)
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{Field: "notify.max_retries", Message: "must not be negative"})
	}
	if cfg.ChunkLimit < 100 {
		errs = append(errs, FieldError{Field: "notify.chunk_limit", Message: "must be at least 100"})
	}
	return errs
}

func validateIntent(cfg *IntentConfig) []FieldError {
	switch cfg.Backend {
	case IntentBackendFile:
		return required("intent.path", cfg.Path)
	case IntentBackendSQLite:
		return required("intent.sqlite_path", cfg.SQLitePath)
	case IntentBackendPostgres:
		return required("intent.postgres_dsn", cfg.PostgresDSN)
	case IntentBackendMemory:
		return nil
	default:
		return []FieldError{{
			Field:   "intent.backend",
			Message: fmt.Sprintf("unsupported backend %q (file, sqlite, postgres, memory)", cfg.Backend),
		}}
	}
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError
	errs = append(errs, required("audit.log_path", cfg.LogPath)...)
	if cfg.Kafka.Enabled {
		if len(cfg.Kafka.Brokers) == 0 {
			errs = append(errs, FieldError{Field: "audit.kafka.brokers", Message: "at least one broker is required"})
		}
		errs = append(errs, required("audit.kafka.topic", cfg.Kafka.Topic)...)
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.level", Message: fmt.Sprintf("invalid level %q", cfg.Logging.Level)})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{Field: "telemetry.logging.format", Message: fmt.Sprintf("invalid format %q (json, text)", cfg.Logging.Format)})
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "must start with /"})
	}
	errs = append(errs, validURL("telemetry.metrics.pushgateway_url", cfg.Metrics.PushgatewayURL)...)

	if cfg.Tracing.Enabled {
		errs = append(errs, required("telemetry.tracing.endpoint", cfg.Tracing.Endpoint)...)
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0.0 and 1.0"})
	}
	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError
	errs = append(errs, required("server.listen_address", cfg.ListenAddress)...)
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		errs = append(errs, FieldError{Field: "server.schedule", Message: fmt.Sprintf("invalid cron expression: %v", err)})
	}
	return errs
}

func validateSecrets(cfg *SecretsConfig) []FieldError {
	var errs []FieldError
	for i, p := range cfg.Providers {
		field := fmt.Sprintf("secrets.providers[%d]", i)
		switch p.Type {
		case "env":
		case "file":
			errs = append(errs, required(field+".path", p.Path)...)
		default:
			errs = append(errs, FieldError{Field: field + ".type", Message: fmt.Sprintf("unsupported provider %q (env, file)", p.Type)})
		}
	}
	return errs
}
