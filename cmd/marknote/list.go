// ABOUTME: List and search commands for displaying notes.
// ABOUTME: Supports tag, kind, and text filters with sorting and paging.

package main

import (
	"fmt"

	"github.com/harper/marknote/internal/models"
	"github.com/harper/marknote/internal/notes"
	"github.com/harper/marknote/internal/ui"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	Long:  `List notes, optionally filtered by tag, kind, or a substring of the title or content.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tagFlag, _ := cmd.Flags().GetString("tag")
		searchFlag, _ := cmd.Flags().GetString("search")
		kindFlag, _ := cmd.Flags().GetString("kind")
		sortFlag, _ := cmd.Flags().GetString("sort")
		orderFlag, _ := cmd.Flags().GetString("order")
		limitFlag, _ := cmd.Flags().GetInt("limit")
		offsetFlag, _ := cmd.Flags().GetInt("offset")

		list, err := svc.ListNotes(cmd.Context(), userID, notes.ListNotesInput{
			Tag:       tagFlag,
			Search:    searchFlag,
			Kind:      kindFlag,
			SortBy:    sortFlag,
			SortOrder: orderFlag,
			Limit:     limitFlag,
			Offset:    offsetFlag,
		})
		if err != nil {
			return fmt.Errorf("failed to list notes: %w", err)
		}

		printNotes(cmd, list)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search notes",
	Long:  `Search titles, content, and saved page titles and descriptions, best matches first.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limitFlag, _ := cmd.Flags().GetInt("limit")

		results, err := svc.SearchNotes(cmd.Context(), userID, args[0], limitFlag)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		list := make([]*models.NoteWithTags, len(results))
		for i, r := range results {
			list[i] = &models.NoteWithTags{Note: r.Note}
		}
		printNotes(cmd, list)
		return nil
	},
}

func printNotes(cmd *cobra.Command, list []*models.NoteWithTags) {
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No notes found.")
		return
	}
	for _, note := range list {
		fmt.Fprint(out, ui.FormatNoteListItem(note))
	}
}

func init() {
	listCmd.Flags().StringP("tag", "t", "", "filter by tag")
	listCmd.Flags().StringP("search", "s", "", "filter by title or content substring")
	listCmd.Flags().StringP("kind", "k", "all", "note kind (all|notes|urls)")
	listCmd.Flags().String("sort", "updated_at", "sort field (updated_at|created_at|title)")
	listCmd.Flags().String("order", "desc", "sort order (asc|desc)")
	listCmd.Flags().IntP("limit", "n", 20, "number of results")
	listCmd.Flags().Int("offset", 0, "skip this many results")
	rootCmd.AddCommand(listCmd)

	searchCmd.Flags().IntP("limit", "n", 20, "number of results")
	rootCmd.AddCommand(searchCmd)
}
