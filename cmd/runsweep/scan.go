package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"labops/runsweep/pkg/cli"
	"labops/runsweep/pkg/config"
)

var scanFlags struct {
	output string
	date   string
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Classify monitored runs without persisting or deleting anything",
	Long: `Scan the monitored runs, look up their remote and ticket state and print
the disposition of each run. Nothing is stored, posted or deleted.

Examples:
  runsweep scan
  runsweep scan --output csv > runs.csv`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanFlags.output, "output", "o", "text", "output format: text, json, csv")
	scanCmd.Flags().StringVar(&scanFlags.date, "date", "", "treat this date (YYYY-MM-DD) as today")
}

func runScan(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(scanFlags.output)
	if err != nil {
		return err
	}
	now, err := parseDate(scanFlags.date)
	if err != nil {
		return err
	}
	if now == nil {
		now = time.Now
	}

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

	// A scan must not contend with a running cycle for the intent file.
	scanCfg := *cfg
	scanCfg.Intent = config.IntentConfig{Backend: config.IntentBackendMemory}
	scanCfg.Audit = config.AuditConfig{}

	comps, err := buildEngine(ctx, &scanCfg, tel, now)
	if err != nil {
		return cli.NewCommandError("scan", err)
	}
	defer comps.Close()

	if err := comps.engine.CheckPreconditions(ctx); err != nil {
		return cli.NewCommandError("scan", err)
	}
	decisions, skipped, err := comps.engine.Assess(ctx, now())
	if err != nil {
		return cli.NewCommandError("scan", err)
	}
	for _, run := range skipped {
		cmd.PrintErrf("skipped %s: lookup failed\n", run)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), newDecisionTable(decisions))
}
