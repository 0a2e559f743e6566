// Package config provides configuration management for runsweep.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides("runsweep.yaml")
//
// Values are applied in order: defaults, YAML file, RUNSWEEP_* environment
// overrides, then validation. For example:
//
//   - RUNSWEEP_RETENTION_WEEKS overrides retention.weeks
//   - RUNSWEEP_FILESYSTEM_SEQUENCERS overrides filesystem.sequencers (comma separated)
//   - RUNSWEEP_TICKET_TOKEN overrides ticket.token
//
// # Secret References
//
// Credential fields may hold ${secret:name} references. They are resolved
// after loading with ResolveSecrets, usually backed by a secrets.Manager
// built from the secrets section.
//
// # Singleton Pattern
//
//	if err := config.Initialize("runsweep.yaml"); err != nil {
//	    return err
//	}
//	cfg := config.GetConfig()
//
// Serve mode watches the file with a Watcher and swaps in the reloaded
// configuration between cycles.
//
// # Example Configuration
//
//	filesystem:
//	  genetics_dir: /genetics
//	  logs_dir: /var/log/dx-streaming-upload
//	  sequencers: [A01295a, A01303b]
//
//	retention:
//	  weeks: 2
//	  allowed_assays: [MYE, TSO500, CEN]
//
//	remote:
//	  token: ${secret:dnanexus-token}
//
//	ticket:
//	  api_url: https://example.atlassian.net
//	  email: ops@example.org
//	  token: ${secret:jira-token}
//
//	notify:
//	  slack_token: ${secret:slack-token}
package config
