// ABOUTME: Import command for restoring notes from backup.
// ABOUTME: Supports JSON and markdown directory import, keeping IDs and timestamps.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/harper/marknote/internal/db"
	"github.com/harper/marknote/internal/models"
	"github.com/harper/marknote/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import notes",
	Long:  `Import notes from a JSON export or from markdown files with optional YAML front matter.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat path: %w", err)
		}

		var count int
		switch {
		case info.IsDir():
			count, err = importMarkdownDir(cmd, path)
		case strings.HasSuffix(path, ".json"):
			count, err = importJSON(cmd, path)
		default:
			err = importMarkdownFile(cmd.Context(), path)
			if err == nil {
				count = 1
			}
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Imported %d notes", count)))
		return nil
	},
}

// restoreNote stores an exported note under the current user.
func restoreNote(ctx context.Context, en ExportNote) error {
	note := models.NewNote(userID, en.Title, en.Content)
	if id, err := uuid.Parse(en.ID); err == nil {
		note.ID = id
	}
	if !en.CreatedAt.IsZero() {
		note.CreatedAt = en.CreatedAt
	}
	if !en.UpdatedAt.IsZero() {
		note.UpdatedAt = en.UpdatedAt
	}
	if en.URL != "" {
		note.IsURL = true
		note.URL = en.URL
		note.URLTitle = en.URLTitle
		note.URLDescription = en.URLDescription
	}

	if err := db.CreateNote(ctx, dbConn, note); err != nil {
		return err
	}
	if len(en.Tags) > 0 {
		if _, err := db.SetNoteTags(ctx, dbConn, userID, note.ID, en.Tags); err != nil {
			return fmt.Errorf("failed to tag note: %w", err)
		}
	}
	return nil
}

func importJSON(cmd *cobra.Command, path string) (int, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified file path is expected CLI behavior
	if err != nil {
		return 0, err
	}

	var export ExportData
	if err := json.Unmarshal(data, &export); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	count := 0
	for _, en := range export.Notes {
		if err := restoreNote(cmd.Context(), en); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to import %q: %v\n", en.Title, err)
			continue
		}
		count++
	}
	return count, nil
}

func importMarkdownDir(cmd *cobra.Command, dir string) (int, error) {
	count := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}

		if err := importMarkdownFile(cmd.Context(), path); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to import %s: %v\n", path, err)
			return nil
		}
		count++
		return nil
	})
	return count, err
}

// parseMarkdownNote splits optional YAML front matter from the body. The
// title defaults to the file name.
func parseMarkdownNote(name, doc string) (ExportNote, error) {
	var en ExportNote
	content := doc

	if strings.HasPrefix(doc, "---\n") {
		parts := strings.SplitN(doc, "---\n", 3)
		if len(parts) == 3 {
			if err := yaml.Unmarshal([]byte(parts[1]), &en); err != nil {
				return en, fmt.Errorf("invalid front matter: %w", err)
			}
			content = parts[2]
		}
	}

	if en.Title == "" {
		en.Title = strings.TrimSuffix(filepath.Base(name), ".md")
	}
	en.Content = strings.TrimSpace(content)
	if en.Content == "" && en.URL == "" {
		return en, fmt.Errorf("note content cannot be empty")
	}
	return en, nil
}

func importMarkdownFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified file path is expected CLI behavior
	if err != nil {
		return err
	}

	en, err := parseMarkdownNote(path, string(data))
	if err != nil {
		return err
	}
	if err := restoreNote(ctx, en); err != nil {
		return err
	}
	logger.Debug("imported note", zap.String("path", path), zap.String("title", en.Title))
	return nil
}

func init() {
	rootCmd.AddCommand(importCmd)
}
