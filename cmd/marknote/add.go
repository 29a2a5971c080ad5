// ABOUTME: Add command for creating new notes and saving URLs.
// ABOUTME: Supports inline content, file input, or $EDITOR.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/harper/marknote/internal/notes"
	"github.com/harper/marknote/internal/ui"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a new note",
	Long: `Create a new note with the given title. Content can be provided via --content, --file, or $EDITOR.

With --url the note is saved as a link; the page title and description are
fetched, and the page title replaces a title of "Untitled".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := args[0]

		tagsFlag, _ := cmd.Flags().GetString("tags")
		contentFlag, _ := cmd.Flags().GetString("content")
		fileFlag, _ := cmd.Flags().GetString("file")
		urlFlag, _ := cmd.Flags().GetString("url")

		var content string
		var err error

		switch {
		case contentFlag != "":
			content = contentFlag
		case fileFlag != "":
			data, err := os.ReadFile(fileFlag) //nolint:gosec // User-specified file path is expected CLI behavior
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			content = string(data)
		case urlFlag != "":
			// links may be saved without a comment
		default:
			content, err = openEditor("")
			if err != nil {
				return fmt.Errorf("failed to open editor: %w", err)
			}
		}

		if urlFlag == "" && strings.TrimSpace(content) == "" {
			return fmt.Errorf("note content cannot be empty")
		}

		note, err := svc.CreateNote(cmd.Context(), userID, notes.CreateNoteInput{
			Title:   title,
			Content: content,
			IsURL:   urlFlag != "",
			URL:     urlFlag,
			Tags:    splitTags(tagsFlag),
		})
		if err != nil {
			return fmt.Errorf("failed to create note: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Created note %s", note.ID.String()[:6])))
		return nil
	},
}

// splitTags parses a comma-separated --tags value.
func splitTags(tagsFlag string) []string {
	var tags []string
	for _, tag := range strings.Split(tagsFlag, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func init() {
	addCmd.Flags().String("tags", "", "comma-separated tags (use / to nest, e.g. work/projects)")
	addCmd.Flags().String("content", "", "note content (inline)")
	addCmd.Flags().String("file", "", "read content from file")
	addCmd.Flags().String("url", "", "save a URL and fetch its title and description")
	rootCmd.AddCommand(addCmd)
}
