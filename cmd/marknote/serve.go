// ABOUTME: Serve command to start the HTTP JSON API.
// ABOUTME: Runs until interrupted, then shuts down gracefully.

package main

import (
	"github.com/harper/marknote/internal/api"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve the notes API over HTTP. Requests name their user in the X-User-ID header;
issuing and checking credentials is left to a proxy in front of the server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		server := api.NewServer(svc, logger)
		return server.ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, 127.0.0.1:8080)")
	rootCmd.AddCommand(serveCmd)
}
