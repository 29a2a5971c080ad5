// ABOUTME: Tag command for managing hierarchical tags.
// ABOUTME: Provides tree, list, create, rename, rm, suggest, add, and remove subcommands.

package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/harper/marknote/internal/models"
	"github.com/harper/marknote/internal/notes"
	"github.com/harper/marknote/internal/tagtree"
	"github.com/harper/marknote/internal/ui"
	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags",
	Long: `Create, rename, and delete tags, and tag notes.

Tags nest with slashes: "work/projects" sits below "work". Renaming or deleting
a tag applies to everything below it.`,
}

var tagTreeCmd = &cobra.Command{
	Use:   "tree [tag]",
	Short: "Show tags as a tree",
	Long:  `Show the tag hierarchy with note counts. With a tag argument only that branch is shown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		selectedFlag, _ := cmd.Flags().GetString("selected")
		totals, _ := cmd.Flags().GetBool("totals")

		tree, err := svc.TagTree(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load tags: %w", err)
		}

		if len(args) == 1 {
			root, err := svc.ResolveTag(ctx, userID, args[0])
			if err != nil {
				return fmt.Errorf("failed to get tag: %w", err)
			}
			node := tagtree.Find(tree, root.ID)
			if node == nil {
				return fmt.Errorf("tag %q is not in the tree", root.Name)
			}
			tree = []*models.TagNode{node}
		}

		opts := ui.TreeOptions{Totals: totals}
		if selectedFlag != "" {
			tag, err := svc.ResolveTag(ctx, userID, selectedFlag)
			if err != nil {
				return fmt.Errorf("failed to get tag: %w", err)
			}
			opts.Selected = &tag.ID
		}

		fmt.Fprint(cmd.OutOrStdout(), ui.FormatTagTree(tree, opts))
		return nil
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := svc.TagTree(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("failed to list tags: %w", err)
		}

		if len(tree) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tags found.")
			return nil
		}

		tagCounts := make([]ui.TagCount, 0, tagtree.Size(tree))
		tagtree.Walk(tree, func(n *models.TagNode, _ int) bool {
			tagCounts = append(tagCounts, ui.TagCount{Name: n.Name, Count: n.NoteCount})
			return true
		})
		fmt.Fprint(cmd.OutOrStdout(), ui.FormatTagList(tagCounts))
		return nil
	},
}

var tagCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		parentFlag, _ := cmd.Flags().GetString("parent")

		in := notes.CreateTagInput{Name: args[0]}
		if parentFlag != "" {
			parent, err := svc.ResolveTag(ctx, userID, parentFlag)
			if err != nil {
				return fmt.Errorf("failed to get parent tag: %w", err)
			}
			in.ParentID = parent.ID.String()
		}

		tag, err := svc.CreateTag(ctx, userID, in)
		if err != nil {
			return fmt.Errorf("failed to create tag: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Created tag %q", tag.Name)))
		return nil
	},
}

var tagRenameCmd = &cobra.Command{
	Use:   "rename <tag> <new-name>",
	Short: "Rename a tag and everything below it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := svc.RenameTag(cmd.Context(), userID, args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to rename tag: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Renamed tag to %q", tag.Name)))
		return nil
	},
}

var tagDeleteCmd = &cobra.Command{
	Use:   "rm <tag>",
	Short: "Delete a tag and everything below it",
	Long:  `Delete a tag and all tags nested below it. Notes are kept; only their tags are removed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		force, _ := cmd.Flags().GetBool("force")

		tag, err := svc.ResolveTag(ctx, userID, args[0])
		if err != nil {
			return fmt.Errorf("failed to get tag: %w", err)
		}

		if !force && !confirm(cmd, fmt.Sprintf("Delete tag %q and all tags below it?", tag.Name)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}

		removed, err := svc.DeleteTag(ctx, userID, tag.ID.String())
		if err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Deleted %d tag(s)", removed)))
		return nil
	},
}

var tagSuggestCmd = &cobra.Command{
	Use:   "suggest <query>",
	Short: "Suggest existing tags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		tags, err := svc.SuggestTags(cmd.Context(), userID, args[0], limit)
		if err != nil {
			return fmt.Errorf("failed to suggest tags: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(tags) == 0 {
			fmt.Fprintln(out, "No matching tags.")
			return nil
		}
		for _, t := range tags {
			fmt.Fprintf(out, "  %s\n", t.Name)
		}
		return nil
	},
}

var tagAddCmd = &cobra.Command{
	Use:   "add <id-prefix> <tag>",
	Short: "Add a tag to a note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, err := svc.TagNote(cmd.Context(), userID, args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to add tag: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Added tag %q to note %s", tag.Name, shortRef(args[0]))))
		return nil
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove <id-prefix> <tag>",
	Short: "Remove a tag from a note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.UntagNote(cmd.Context(), userID, args[0], args[1]); err != nil {
			return fmt.Errorf("failed to remove tag: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Removed tag %q from note %s", args[1], shortRef(args[0]))))
		return nil
	},
}

// shortRef trims a full note ID to the 6 characters shown elsewhere.
func shortRef(ref string) string {
	if _, err := uuid.Parse(ref); err == nil {
		return ref[:6]
	}
	return ref
}

func init() {
	tagTreeCmd.Flags().String("selected", "", "highlight this tag")
	tagTreeCmd.Flags().Bool("totals", false, "show direct/total note counts")
	tagCreateCmd.Flags().String("parent", "", "parent tag name or ID")
	tagDeleteCmd.Flags().BoolP("force", "f", false, "skip confirmation")
	tagSuggestCmd.Flags().IntP("limit", "n", 10, "number of suggestions")

	tagCmd.AddCommand(tagTreeCmd)
	tagCmd.AddCommand(tagListCmd)
	tagCmd.AddCommand(tagCreateCmd)
	tagCmd.AddCommand(tagRenameCmd)
	tagCmd.AddCommand(tagDeleteCmd)
	tagCmd.AddCommand(tagSuggestCmd)
	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagRemoveCmd)
	rootCmd.AddCommand(tagCmd)
}
