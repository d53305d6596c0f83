package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStepsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Workflow code utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:         "classify <code>",
		Short:       "Classify a workflow code without running it",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), renderSteps(args[0]))
			return nil
		},
	})
	return cmd
}
