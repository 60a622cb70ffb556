package main

import (
	"github.com/spf13/cobra"

	"arc/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and visualization server",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(cmd.Context())
		if err != nil {
			return err
		}
		srv := server.New(rt.cfg.Server.Port, rt.orch, rt.store, rt.info, logger)
		return srv.Start()
	},
}
