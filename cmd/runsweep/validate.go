package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"labops/runsweep/pkg/cli"
	"labops/runsweep/pkg/config"
	"labops/runsweep/pkg/lifecycle/scanner"
	"labops/runsweep/pkg/reconcile"
)

var validateFlags struct {
	secrets bool
	dirs    bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration file, including RUNSWEEP_*
environment overrides.

Examples:
  runsweep validate --config /etc/runsweep/runsweep.yaml
  runsweep validate --secrets --dirs`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.secrets, "secrets", false, "also resolve secret references")
	validateCmd.Flags().BoolVar(&validateFlags.dirs, "dirs", false, "also check the run and log roots exist")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return configError(err)
	}
	if validateFlags.secrets {
		if err := resolveSecrets(cmd.Context(), cfg); err != nil {
			return err
		}
	}
	if validateFlags.dirs {
		if err := scanner.CheckDirectories(cfg.Filesystem.GeneticsDir, cfg.Filesystem.LogsDir); err != nil {
			return cli.NewCommandError("validate", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration %s is valid\n", cfgFile)
	fmt.Fprintf(out, "  sequencers:  %d\n", len(cfg.Filesystem.Sequencers))
	fmt.Fprintf(out, "  retention:   %d weeks, propose on %s, execute on %s\n",
		cfg.Retention.Weeks,
		isoWeekdayName(cfg.Retention.ProposeWeekday),
		isoWeekdayName(cfg.Retention.ExecuteWeekday))
	fmt.Fprintf(out, "  intent:      %s\n", cfg.Intent.Backend)
	fmt.Fprintf(out, "  staging:     %s\n", cfg.Remote.Staging.Backend)
	return nil
}

func isoWeekdayName(iso int) string {
	return reconcile.ISOWeekday(iso).String()
}
