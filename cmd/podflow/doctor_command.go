package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"podflow/internal/api"
)

var errNotReady = errors.New("one or more collaborators are not ready")

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check store, providers and storage readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			report := api.FromHealth(rt.engine.Health(cmd.Context()))
			if jsonOut {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				colorize := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(report.Checks))
				for _, check := range report.Checks {
					status := "ready"
					if !check.Ready {
						status = "unhealthy"
					}
					rows = append(rows, []string{check.Name, colorStatus(status, colorize), check.Detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Check", "Status", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
			}
			if !report.Ready {
				return errNotReady
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}
