package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"labops/runsweep/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "runsweep",
	Short: "Run lifecycle reconciliation and deletion for sequencer output",
	Long: `Runsweep finds sequencer run directories that have been uploaded,
processed and released, and removes them from local storage.

Each day it scans the configured sequencer directories and classifies
every run. On the propose day runs eligible for deletion are stored and
announced to the lab; on the execute day each stored run is checked again
against its ticket and deleted, and an acknowledgement ticket is raised.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code for its error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "runsweep.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
