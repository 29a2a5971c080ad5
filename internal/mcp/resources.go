// ABOUTME: MCP resources for exposing notes as readable resources.
// ABOUTME: Allows AI agents to access note content via the marknote:// URI scheme.

package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/marknote/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const noteURIPrefix = "marknote://note/"

func (s *Server) registerResources() {
	s.server.AddResourceTemplate(
		&mcp.ResourceTemplate{
			URITemplate: noteURIPrefix + "{id}",
			Name:        "Note",
			Description: "Access individual notes by ID or ID prefix",
			MIMEType:    "text/markdown",
		},
		s.handleReadResource,
	)
}

func (s *Server) handleReadResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return s.readNote(ctx, req.Params.URI)
}

func (s *Server) readNote(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	ref, err := noteRefFromURI(uri)
	if err != nil {
		return nil, err
	}

	note, err := s.svc.GetNote(ctx, s.userID, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "text/markdown",
				Text:     noteMarkdown(note),
			},
		},
	}, nil
}

// noteRefFromURI extracts the note ID from marknote://note/{id}.
func noteRefFromURI(uri string) (string, error) {
	ref, ok := strings.CutPrefix(uri, noteURIPrefix)
	if !ok || ref == "" || strings.Contains(ref, "/") {
		return "", fmt.Errorf("invalid resource URI: %s", uri)
	}
	return ref, nil
}

func noteMarkdown(note *models.NoteWithTags) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", note.Title)

	if note.IsURL {
		fmt.Fprintf(&b, "**URL:** %s\n\n", note.URL)
		if note.URLTitle != "" {
			fmt.Fprintf(&b, "**Page:** %s\n\n", note.URLTitle)
		}
		if note.URLDescription != "" {
			fmt.Fprintf(&b, "**About:** %s\n\n", note.URLDescription)
		}
	}

	if len(note.Tags) > 0 {
		names := make([]string, len(note.Tags))
		for i, tag := range note.Tags {
			names[i] = tag.Name
		}
		fmt.Fprintf(&b, "**Tags:** %s\n\n", strings.Join(names, ", "))
	}

	b.WriteString(note.Content)
	return b.String()
}
