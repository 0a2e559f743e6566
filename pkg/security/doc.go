/*
Package security groups the credential handling used by runsweep.

# Secret Management

The secrets subpackage resolves ${secret:name} references in the
configuration from environment variables or mounted files:

	manager, err := secrets.FromConfig(cfg.Secrets)
	if err != nil {
		return err
	}
	if err := config.ResolveSecrets(ctx, cfg, manager); err != nil {
		return err
	}

Resolved values are cached for secrets.cache_ttl and never logged.
*/
package security
