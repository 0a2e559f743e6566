package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"labops/runsweep/pkg/cli"
	"labops/runsweep/pkg/reconcile"
)

var runFlags struct {
	output string
	date   string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation cycle",
	Long: `Run one reconciliation cycle and exit.

Every day the monitored runs are scanned and classified. On the propose
weekday the runs eligible for deletion are stored and announced; on the
execute weekday the stored runs are checked again and deleted.

Exit codes:
  0  success (notification failures are reported as warnings)
  1  unexpected failure
  2  invalid configuration
  3  precondition failed (missing directories, platform authentication)
  4  remote or ticket lookup failed
  5  deletion halted on a filesystem error

Examples:
  # Run today's cycle
  runsweep run

  # Run as if it were the execute day
  runsweep run --date 2024-03-06 --output json`,
	RunE: runCycle,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.output, "output", "o", "text", "output format: text, json, csv")
	runCmd.Flags().StringVar(&runFlags.date, "date", "", "treat this date (YYYY-MM-DD) as today")
}

// parseDate returns a clock fixed on date at the current time of day, or
// nil when date is empty.
func parseDate(date string) (func() time.Time, error) {
	if date == "" {
		return nil, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, date, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --date %q: %w", date, err)
	}
	return func() time.Time {
		now := time.Now()
		return time.Date(day.Year(), day.Month(), day.Day(),
			now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.Local)
	}, nil
}

func runCycle(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(runFlags.output)
	if err != nil {
		return err
	}
	now, err := parseDate(runFlags.date)
	if err != nil {
		return err
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

	comps, err := startEngine(ctx, cfg, tel, now)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	report, cycleErr := comps.engine.RunCycle(ctx)
	if err := comps.Close(); err != nil {
		slog.Warn("failed to release cycle resources", "error", err)
	}

	// Nothing scrapes a one-shot process.
	if err := tel.metrics.Push(context.Background()); err != nil {
		slog.Warn("failed to push metrics", "error", err)
	}

	if report != nil {
		if err := printReport(cmd, format, report); err != nil {
			return err
		}
	}
	if cycleErr != nil {
		return cli.NewCommandError("run", cycleErr)
	}
	return nil
}

func printReport(cmd *cobra.Command, format cli.OutputFormat, report *reconcile.Report) error {
	var data any = report
	if format != cli.FormatJSON {
		data = summaryTable{report: report}
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}
