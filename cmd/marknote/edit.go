// ABOUTME: Edit command for modifying existing notes.
// ABOUTME: Opens note content in $EDITOR, or updates title and URL from flags.

package main

import (
	"fmt"

	"github.com/harper/marknote/internal/notes"
	"github.com/harper/marknote/internal/ui"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit <id-prefix>",
	Short: "Edit a note",
	Long: `Open a note in $EDITOR for editing.

With --title, --content, or --url the note is updated directly. Changing the URL
refetches the page title and description.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		var in notes.UpdateNoteInput
		if flags.Changed("title") {
			title, _ := flags.GetString("title")
			in.Title = &title
		}
		if flags.Changed("content") {
			content, _ := flags.GetString("content")
			in.Content = &content
		}
		if flags.Changed("url") {
			url, _ := flags.GetString("url")
			isURL := url != ""
			in.URL = &url
			in.IsURL = &isURL
		}

		if in.Title == nil && in.Content == nil && in.URL == nil {
			note, err := svc.GetNote(ctx, userID, args[0])
			if err != nil {
				return fmt.Errorf("failed to get note: %w", err)
			}

			newContent, err := openEditor(note.Content)
			if err != nil {
				return fmt.Errorf("failed to open editor: %w", err)
			}
			if newContent == note.Content {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes made.")
				return nil
			}
			in.Content = &newContent
		}

		note, err := svc.UpdateNote(ctx, userID, args[0], in)
		if err != nil {
			return fmt.Errorf("failed to update note: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Updated note %s", note.ID.String()[:6])))
		return nil
	},
}

func init() {
	editCmd.Flags().String("title", "", "set the title")
	editCmd.Flags().String("content", "", "replace the content")
	editCmd.Flags().String("url", "", "set the URL (empty turns the note back into a plain note)")
	rootCmd.AddCommand(editCmd)
}
