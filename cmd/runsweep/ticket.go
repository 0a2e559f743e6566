package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"labops/runsweep/pkg/cli"
	"labops/runsweep/pkg/config"
	"labops/runsweep/pkg/ticket"
)

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Query and maintain tickets in the ticketing system",
	Long: `Helpers for inspecting how runs resolve to tickets and for tidying up
tickets raised while testing against the debug project.`,
}

var ticketLookupCmd = &cobra.Command{
	Use:   "lookup <run>",
	Short: "Resolve the sequencing ticket for a run",
	Args:  cobra.ExactArgs(1),
	RunE: withTicketClient(func(ctx context.Context, cmd *cobra.Command, c *ticket.Client, args []string) error {
		match, err := c.GetIssueDetail(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Match:  %s\n", match.Kind)
		fmt.Fprintf(out, "Ticket: %s\n", match.Key())
		fmt.Fprintf(out, "Status: %s\n", match.Status())
		fmt.Fprintf(out, "Assay:  %s\n", match.Assay())
		return nil
	}),
}

var ticketCreateFlags struct {
	summary     string
	issueType   string
	assay       string
	description string
}

var ticketCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an issue, for example a sequencing ticket for a test run",
	Args:  cobra.NoArgs,
	RunE: withTicketClient(func(ctx context.Context, cmd *cobra.Command, c *ticket.Client, args []string) error {
		cfg := config.GetConfig()
		projectID := cfg.Ticket.ProjectID
		if cfg.Debug && cfg.Ticket.DebugProjectID != "" {
			projectID = cfg.Ticket.DebugProjectID
		}
		issueType := ticketCreateFlags.issueType
		if issueType == "" {
			issueType = cfg.Ticket.SequencingIssueType
		}

		created, err := c.CreateIssue(ctx, ticket.IssueRequest{
			Summary:     ticketCreateFlags.summary,
			IssueTypeID: issueType,
			ProjectID:   projectID,
			ReporterID:  cfg.Ticket.ReporterID,
			PriorityID:  cfg.Ticket.PriorityID,
			Description: ticketCreateFlags.description,
			Assay:       ticketCreateFlags.assay,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s (id %s)\n", created.Key, created.ID)
		return nil
	}),
}

var ticketTransitionsCmd = &cobra.Command{
	Use:   "transitions <issue>",
	Short: "List workflow transitions available on an issue",
	Args:  cobra.ExactArgs(1),
	RunE: withTicketClient(func(ctx context.Context, cmd *cobra.Command, c *ticket.Client, args []string) error {
		transitions, err := c.AvailableTransitions(ctx, args[0])
		if err != nil {
			return err
		}
		for _, t := range transitions {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.ID, t.Name)
		}
		return nil
	}),
}

var ticketTransitionCmd = &cobra.Command{
	Use:   "transition <issue> <transition-id>",
	Short: "Move an issue through a workflow transition",
	Args:  cobra.ExactArgs(2),
	RunE: withTicketClient(func(ctx context.Context, cmd *cobra.Command, c *ticket.Client, args []string) error {
		if err := c.Transition(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Transitioned %s\n", args[0])
		return nil
	}),
}

var ticketDeleteCmd = &cobra.Command{
	Use:   "delete <issue>",
	Short: "Delete an issue",
	Args:  cobra.ExactArgs(1),
	RunE: withTicketClient(func(ctx context.Context, cmd *cobra.Command, c *ticket.Client, args []string) error {
		if err := c.DeleteIssue(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(ticketCmd)
	ticketCmd.AddCommand(ticketLookupCmd, ticketCreateCmd, ticketTransitionsCmd, ticketTransitionCmd, ticketDeleteCmd)

	ticketCreateCmd.Flags().StringVar(&ticketCreateFlags.summary, "summary", "", "issue summary, usually the run name")
	ticketCreateCmd.Flags().StringVar(&ticketCreateFlags.issueType, "type", "", "issue type id (default ticket.sequencing_issue_type)")
	ticketCreateCmd.Flags().StringVar(&ticketCreateFlags.assay, "assay", "", "assay tag")
	ticketCreateCmd.Flags().StringVar(&ticketCreateFlags.description, "description", "", "issue description")
	_ = ticketCreateCmd.MarkFlagRequired("summary")
}

type ticketAction func(ctx context.Context, cmd *cobra.Command, c *ticket.Client, args []string) error

func withTicketClient(action ticketAction) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := cli.SetupSignalHandler(cmd.Context())
		defer cancel()

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		client, err := newTicketClient(cfg)
		if err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		if err := action(ctx, cmd, client, args); err != nil {
			return cli.NewCommandError(cmd.CommandPath(), err)
		}
		return nil
	}
}
