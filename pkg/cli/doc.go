/*
Package cli provides command-line helpers used by the runsweep command.

Output Formatting:

Commands print results as text, JSON or CSV. Types implementing Table are
rendered as aligned columns or CSV rows:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

Exit Codes:

ExitCode maps the error classes of a cycle to distinct process exit codes
so that an external scheduler can tell a failed deletion (5) from a lookup
failure (4), a precondition failure (3) or a configuration error (2).

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
