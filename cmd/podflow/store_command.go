package main

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"podflow/internal/config"
	"podflow/internal/store"
)

func newStoreCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the configuration store",
	}
	cmd.AddCommand(newStoreImportCommand(ctx))
	cmd.AddCommand(newStoreStatsCommand(ctx))
	return cmd
}

func newStoreImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <seed.yaml>",
		Short: "Upsert workflows, prompts, models, locations and voices from a YAML seed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := store.LoadSeed(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				summary, err := st.Import(cmd.Context(), seed)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Imported %d workflows, %d prompts, %d models, %d locations, %d voice profiles\n",
					summary.Workflows, summary.Prompts, summary.Models, summary.Locations, summary.VoiceProfiles)
				return nil
			})
		},
	}
}

func newStoreStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show row counts per table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				counts, err := st.Counts(cmd.Context())
				if err != nil {
					return err
				}
				tables := make([]string, 0, len(counts))
				for name := range counts {
					tables = append(tables, name)
				}
				slices.Sort(tables)
				rows := make([][]string, 0, len(tables))
				for _, name := range tables {
					rows = append(rows, []string{name, strconv.Itoa(counts[name])})
				}
				version, err := st.SchemaVersion(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Store: %s (schema %d)\n", st.Path(), version)
				fmt.Fprintln(out, renderTable([]string{"Table", "Rows"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}
