// ABOUTME: Fetch command for previewing URL metadata.
// ABOUTME: Shows the title and description a URL note would be saved with.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Preview a URL's title and description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := svc.FetchMetadata(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to fetch metadata: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Title: %s\n", meta.Title)
		if meta.Description != "" {
			fmt.Fprintf(out, "Description: %s\n", meta.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
