// ABOUTME: Terminal UI formatting for marknote output.
// ABOUTME: Uses glamour for markdown and fatih/color for styling.

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/harper/marknote/internal/models"
)

var (
	faint = color.New(color.Faint).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	blue  = color.New(color.FgBlue, color.Underline).SprintFunc()
)

const timeLayout = "2006-01-02 15:04"

type TagCount struct {
	Name  string
	Count int
}

func tagNames(tags []*models.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

func FormatNoteListItem(note *models.NoteWithTags) string {
	var sb strings.Builder

	// ID prefix and title
	idPrefix := note.ID.String()[:6]
	marker := ""
	if note.IsURL {
		marker = faint(" [url]")
	}
	fmt.Fprintf(&sb, "  %s  %s%s\n", faint(idPrefix), bold(note.Title), marker)

	if note.IsURL && note.URL != "" {
		fmt.Fprintf(&sb, "         %s\n", blue(note.URL))
	}

	if len(note.Tags) > 0 {
		fmt.Fprintf(&sb, "         %s %s\n", faint("Tags:"), cyan(tagNames(note.Tags)))
	}

	fmt.Fprintf(&sb, "         %s %s\n", faint("Updated:"), faint(note.UpdatedAt.Format(timeLayout)))

	return sb.String()
}

func FormatNoteContent(content string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fallback to raw content if renderer fails
		return content, nil //nolint:nilerr // Intentional fallback
	}

	out, err := renderer.Render(content)
	if err != nil {
		return content, nil //nolint:nilerr // Intentional fallback
	}
	return out, nil
}

func FormatNoteHeader(note *models.NoteWithTags) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n", bold(note.Title))
	fmt.Fprintf(&sb, "%s %s\n", faint("ID:"), faint(note.ID.String()))
	if note.IsURL {
		fmt.Fprintf(&sb, "%s %s\n", faint("URL:"), blue(note.URL))
		if note.URLTitle != "" {
			fmt.Fprintf(&sb, "%s %s\n", faint("Page:"), note.URLTitle)
		}
		if note.URLDescription != "" {
			fmt.Fprintf(&sb, "%s %s\n", faint("About:"), note.URLDescription)
		}
	}
	fmt.Fprintf(&sb, "%s %s\n", faint("Created:"), faint(note.CreatedAt.Format(timeLayout)))
	fmt.Fprintf(&sb, "%s %s\n", faint("Updated:"), faint(note.UpdatedAt.Format(timeLayout)))

	if len(note.Tags) > 0 {
		fmt.Fprintf(&sb, "%s %s\n", faint("Tags:"), cyan(tagNames(note.Tags)))
	}

	sb.WriteString(Separator())
	return sb.String()
}

func FormatTagList(tags []TagCount) string {
	var sb strings.Builder

	for _, t := range tags {
		fmt.Fprintf(&sb, "  %s %s\n", cyan(t.Name), faint(fmt.Sprintf("(%d)", t.Count)))
	}

	return sb.String()
}

func Separator() string {
	return faint(strings.Repeat("─", 50)) + "\n"
}

func Success(msg string) string {
	return color.New(color.FgGreen).Sprint("✓ ") + msg
}

func Error(msg string) string {
	return color.New(color.FgRed).Sprint("✗ ") + msg
}
