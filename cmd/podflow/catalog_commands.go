package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"podflow/internal/catalog"
	"podflow/internal/config"
	"podflow/internal/store"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect and refresh the model catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List catalog models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				models, err := st.Models(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(models))
				for _, m := range models {
					rows = append(rows, []string{
						strconv.FormatInt(m.ID, 10),
						m.Name,
						yesNo(m.IsDefault),
						yesNo(m.SupportsWebSearch),
						yesNo(m.Deprecated),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Default", "Web search", "Deprecated"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Merge live provider listings into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				refresher := catalog.NewModelRefresher(openAILister(cfg), geminiLister(cfg), st, logger)
				message, err := refresher.Refresh(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	})
	return cmd
}

func newFeedCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Inspect and refresh posted episodes",
	}
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent posted episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				episodes, err := st.RecentEpisodes(cmd.Context(), limit)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(episodes))
				for _, ep := range episodes {
					rows = append(rows, []string{strconv.FormatInt(ep.ID, 10), ep.Title, ep.ShortDescription})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Summary"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 10, "Number of episodes to list")
	cmd.AddCommand(list)
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Replace posted episodes with the current feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				refresher := catalog.NewFeedRefresher(cfg.Feed.URL, time.Duration(cfg.Feed.TimeoutSeconds)*time.Second, st, logger)
				message, err := refresher.Refresh(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), message)
				return nil
			})
		},
	})
	return cmd
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
