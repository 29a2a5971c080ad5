// ABOUTME: Export command for backing up notes.
// ABOUTME: Supports JSON and markdown export formats.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harper/marknote/internal/models"
	"github.com/harper/marknote/internal/notes"
	"github.com/harper/marknote/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const exportVersion = "1.0"

// exportPageSize is the largest page the notes service accepts.
const exportPageSize = 200

type ExportNote struct {
	ID             string    `json:"id" yaml:"id"`
	Title          string    `json:"title" yaml:"title"`
	Content        string    `json:"content" yaml:"-"`
	URL            string    `json:"url,omitempty" yaml:"url,omitempty"`
	URLTitle       string    `json:"url_title,omitempty" yaml:"url_title,omitempty"`
	URLDescription string    `json:"url_description,omitempty" yaml:"url_description,omitempty"`
	Tags           []string  `json:"tags" yaml:"tags"`
	CreatedAt      time.Time `json:"created_at" yaml:"created"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"updated"`
}

type ExportData struct {
	ExportedAt time.Time    `json:"exported_at"`
	Version    string       `json:"version"`
	Notes      []ExportNote `json:"notes"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export notes",
	Long:  `Export notes to JSON or a directory of markdown files with YAML front matter.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")
		outputPath, _ := cmd.Flags().GetString("output")
		notePrefix, _ := cmd.Flags().GetString("note")

		var list []*models.NoteWithTags
		if notePrefix != "" {
			note, err := svc.GetNote(ctx, userID, notePrefix)
			if err != nil {
				return fmt.Errorf("failed to get note: %w", err)
			}
			list = append(list, note)
		} else {
			var err error
			if list, err = allNotes(ctx); err != nil {
				return fmt.Errorf("failed to list notes: %w", err)
			}
		}

		switch format {
		case "json":
			return exportJSON(cmd, list, outputPath)
		case "md":
			return exportMarkdown(cmd, list, outputPath)
		default:
			return fmt.Errorf("unknown format: %s", format)
		}
	},
}

// allNotes pages through every note of the current user, oldest first.
func allNotes(ctx context.Context) ([]*models.NoteWithTags, error) {
	var all []*models.NoteWithTags
	for offset := 0; ; offset += exportPageSize {
		page, err := svc.ListNotes(ctx, userID, notes.ListNotesInput{
			SortBy:    "created_at",
			SortOrder: "asc",
			Limit:     exportPageSize,
			Offset:    offset,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < exportPageSize {
			return all, nil
		}
	}
}

func toExportNote(n *models.NoteWithTags) ExportNote {
	en := ExportNote{
		ID:             n.ID.String(),
		Title:          n.Title,
		Content:        n.Content,
		URL:            n.URL,
		URLTitle:       n.URLTitle,
		URLDescription: n.URLDescription,
		Tags:           []string{},
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
	}
	for _, t := range n.Tags {
		en.Tags = append(en.Tags, t.Name)
	}
	return en
}

func exportJSON(cmd *cobra.Command, list []*models.NoteWithTags, outputPath string) error {
	export := ExportData{
		ExportedAt: time.Now().UTC(),
		Version:    exportVersion,
		Notes:      make([]ExportNote, 0, len(list)),
	}
	for _, n := range list {
		export.Notes = append(export.Notes, toExportNote(n))
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return err
	}

	if outputPath == "" || outputPath == "-" {
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	if err := os.WriteFile(outputPath, data, 0600); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Exported %d notes to %s", len(list), outputPath)))
	return nil
}

// markdownNote renders a note as YAML front matter followed by its content.
func markdownNote(n *models.NoteWithTags) (string, error) {
	frontmatter, err := yaml.Marshal(toExportNote(n))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(frontmatter)
	sb.WriteString("---\n\n")
	sb.WriteString(n.Content)
	return sb.String(), nil
}

func exportMarkdown(cmd *cobra.Command, list []*models.NoteWithTags, outputDir string) error {
	if outputDir == "" {
		outputDir = "export"
	}

	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return err
	}

	for _, n := range list {
		doc, err := markdownNote(n)
		if err != nil {
			return fmt.Errorf("failed to render %q: %w", n.Title, err)
		}

		filename := fmt.Sprintf("%s-%s.md", sanitizeFilename(n.Title), n.ID.String()[:6])
		if err := os.WriteFile(filepath.Join(outputDir, filename), []byte(doc), 0600); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Exported %d notes to %s", len(list), outputDir)))
	return nil
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-", "|", "-",
	)
	name = replacer.Replace(name)
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}

func init() {
	exportCmd.Flags().StringP("format", "f", "json", "export format (json|md)")
	exportCmd.Flags().StringP("output", "o", "", "output path (file for json, directory for md)")
	exportCmd.Flags().StringP("note", "n", "", "single note ID to export")
	rootCmd.AddCommand(exportCmd)
}
