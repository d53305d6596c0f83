package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"podflow/internal/api"
	"podflow/internal/config"
	"podflow/internal/store"
)

func newWorkflowsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Inspect configured workflows",
	}
	cmd.AddCommand(newWorkflowsListCommand(ctx))
	cmd.AddCommand(newWorkflowsShowCommand(ctx))
	return cmd
}

func newWorkflowsListCommand(ctx *commandContext) *cobra.Command {
	var activeOnly, jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				workflows, err := st.Workflows(cmd.Context(), activeOnly)
				if err != nil {
					return err
				}
				if jsonOut {
					views := make([]api.Workflow, 0, len(workflows))
					for _, wf := range workflows {
						views = append(views, api.FromWorkflow(wf))
					}
					return writeJSON(cmd, api.WorkflowListResponse{Workflows: views})
				}
				if len(workflows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No workflows configured")
					return nil
				}
				rows := make([][]string, 0, len(workflows))
				for _, wf := range workflows {
					rows = append(rows, []string{
						strconv.FormatInt(wf.ID, 10),
						wf.Title,
						strconv.FormatBool(wf.Active),
						wf.Code,
						wf.DefaultModel,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Active", "Code", "Model"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only list active workflows")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

func newWorkflowsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a workflow and its classified steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid workflow id %q", args[0])
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				wf, err := st.Workflow(cmd.Context(), id)
				if err != nil {
					return err
				}
				if wf == nil {
					return fmt.Errorf("workflow %d not found", id)
				}
				return printPlan(cmd, []store.Workflow{*wf})
			})
		},
	}
}
