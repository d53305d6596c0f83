package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"podflow/internal/api"
	"podflow/internal/config"
	"podflow/internal/store"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
	}
	cmd.AddCommand(newRunsListCommand(ctx))
	cmd.AddCommand(newRunsShowCommand(ctx))
	return cmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				runs, err := api.NewRunService(st).Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.RunListResponse{Runs: runs})
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						run.RunID,
						strconv.FormatInt(run.WorkflowID, 10),
						run.TriggeredAt,
						colorStatus(run.Status, colorize),
						strconv.Itoa(len(run.Columns)),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Run", "Workflow", "Triggered", "Status", "Columns"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run's output columns and step log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				detail, err := api.NewRunService(st).Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if detail == nil {
					return fmt.Errorf("run %s not found", args[0])
				}
				if jsonOut {
					return writeJSON(cmd, detail)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintf(out, "Run %s (workflow %d) %s at %s\n",
					detail.Run.RunID, detail.Run.WorkflowID, colorStatus(detail.Run.Status, colorize), detail.Run.TriggeredAt)
				rows := make([][]string, 0, len(detail.Steps))
				for _, step := range detail.Steps {
					rows = append(rows, []string{
						strconv.Itoa(step.Index),
						step.Token,
						colorStatus(step.Status, colorize),
						step.Message,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Token", "Status", "Message"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}
