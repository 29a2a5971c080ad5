// ABOUTME: Renders the tag forest as an indented tree for the terminal.
// ABOUTME: Nested tags show their last path segment; roots show the full name.

package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/harper/marknote/internal/models"
	"github.com/harper/marknote/internal/tagtree"
)

var selected = color.New(color.FgGreen, color.Bold).SprintFunc()

// TreeOptions controls FormatTagTree.
type TreeOptions struct {
	// Selected is highlighted and marked with "*".
	Selected *uuid.UUID
	// Totals shows "(direct/total)" counts, where total covers the subtree.
	Totals bool
}

// DisplayName is the last segment of a tag path.
func DisplayName(name string) string {
	if i := strings.LastIndex(name, models.PathSeparator); i >= 0 {
		return name[i+1:]
	}
	return name
}

func FormatTagTree(nodes []*models.TagNode, opts TreeOptions) string {
	if len(nodes) == 0 {
		return faint("  (no tags)") + "\n"
	}

	var sb strings.Builder
	tagtree.Walk(nodes, func(n *models.TagNode, depth int) bool {
		// a root may be an orphan like "a/b" whose parent does not exist
		name := n.Name
		if depth > 0 {
			name = DisplayName(n.Name)
		}

		label := cyan(name)
		marker := "  "
		if opts.Selected != nil && n.ID == *opts.Selected {
			label = selected(name)
			marker = "* "
		}

		count := ""
		if opts.Totals {
			if total := tagtree.SubtreeCount(n); total > 0 {
				count = faint(fmt.Sprintf(" (%d/%d)", n.NoteCount, total))
			}
		} else if n.NoteCount > 0 {
			count = faint(fmt.Sprintf(" (%d)", n.NoteCount))
		}

		fmt.Fprintf(&sb, "%s%s%s%s\n", marker, strings.Repeat("  ", depth), label, count)
		return true
	})
	return sb.String()
}
