// ABOUTME: Remove command for deleting notes.
// ABOUTME: Includes confirmation prompt before deletion.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/harper/marknote/internal/ui"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <id-prefix>",
	Short: "Remove a note",
	Long:  `Delete a note. Its tags are kept.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		force, _ := cmd.Flags().GetBool("force")

		note, err := svc.GetNote(ctx, userID, args[0])
		if err != nil {
			return fmt.Errorf("failed to get note: %w", err)
		}

		if !force && !confirm(cmd, fmt.Sprintf("Delete note %q (%s)?", note.Title, note.ID.String()[:6])) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}

		if _, err := svc.DeleteNote(ctx, userID, note.ID.String()); err != nil {
			return fmt.Errorf("failed to delete note: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Deleted note %s", note.ID.String()[:6])))
		return nil
	},
}

// confirm asks a yes/no question on the command's input. Anything but y/yes is no.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	response, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func init() {
	rmCmd.Flags().BoolP("force", "f", false, "skip confirmation")
	rootCmd.AddCommand(rmCmd)
}
