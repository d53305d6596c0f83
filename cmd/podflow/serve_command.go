package main

import (
	"github.com/spf13/cobra"

	"podflow/internal/api"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for triggering and inspecting runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Paths.APIBind = bind
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

			server := api.NewServer(cfg, api.NewRunService(rt.store), rt.runner, rt.engine, logger)
			return server.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind")
	return cmd
}
