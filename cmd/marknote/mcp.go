// ABOUTME: MCP command to start the MCP server.
// ABOUTME: Runs on stdio for integration with AI agents.

package main

import (
	"github.com/harper/marknote/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long:  `Start the Model Context Protocol server for AI agent integration. All calls act as the configured user.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := mcp.NewServer(svc, userID, logger)
		return server.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
