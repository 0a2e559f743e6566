package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"labops/runsweep/pkg/cli"
)

var intentsFlags struct {
	output string
	yes    bool
}

var intentsCmd = &cobra.Command{
	Use:   "intents",
	Short: "Inspect or clear the pending deletion batch",
}

var intentsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the runs proposed for deletion",
	RunE:  runIntentsShow,
}

var intentsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the pending deletion batch",
	Long: `Discard the pending deletion batch so that nothing is deleted on the
next execute day. The batch is rebuilt on the next propose day.`,
	RunE: runIntentsClear,
}

func init() {
	rootCmd.AddCommand(intentsCmd)
	intentsCmd.AddCommand(intentsShowCmd, intentsClearCmd)

	intentsShowCmd.Flags().StringVarP(&intentsFlags.output, "output", "o", "text", "output format: text, json, csv")
	intentsClearCmd.Flags().BoolVar(&intentsFlags.yes, "yes", false, "confirm clearing the batch")
}

func runIntentsShow(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(intentsFlags.output)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg.Intent)
	if err != nil {
		return cli.NewCommandError("intents show", err)
	}
	defer store.Close()

	records, err := store.Load(ctx)
	if err != nil {
		return cli.NewCommandError("intents show", err)
	}
	if len(records) == 0 && format == cli.FormatText {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs pending deletion")
		return nil
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), intentTable(records))
}

func runIntentsClear(cmd *cobra.Command, args []string) error {
	if !intentsFlags.yes {
		return cli.NewCommandError("intents clear", errors.New("refusing to clear without --yes"))
	}
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg.Intent)
	if err != nil {
		return cli.NewCommandError("intents clear", err)
	}
	defer store.Close()

	records, err := store.Load(ctx)
	if err != nil {
		return cli.NewCommandError("intents clear", err)
	}
	if err := store.Clear(ctx); err != nil {
		return cli.NewCommandError("intents clear", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d pending runs\n", len(records))
	return nil
}
