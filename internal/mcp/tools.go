// ABOUTME: MCP tools for note and tag operations.
// ABOUTME: Maps CLI functionality to the MCP tool interface.

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harper/marknote/internal/notes"
	"github.com/harper/marknote/internal/ui"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// handle decodes tool arguments into P before calling fn.
func handle[P any](fn func(context.Context, P) (*mcp.CallToolResult, error)) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params P
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
				return toolError("invalid arguments: %v", err), nil
			}
		}
		return fn(ctx, params)
	}
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
		IsError: true,
	}
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func toolJSON(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("failed to encode result: %v", err)
	}
	return toolText(string(data))
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "add_note",
		Description: "Create a note or save a URL. URL notes get their page title and description fetched automatically.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {"type": "string", "description": "Note title (defaults to the page title for URLs, else Untitled)"},
				"content": {"type": "string", "description": "Note content (markdown)"},
				"url": {"type": "string", "description": "URL to save; marks the note as a URL note"},
				"tags": {"type": "array", "items": {"type": "string"}, "description": "Tags; use / for hierarchy, e.g. work/projects"}
			}
		}`),
	}, handle(s.addNote))

	s.server.AddTool(&mcp.Tool{
		Name:        "list_notes",
		Description: "List notes with optional tag, text, and kind filters",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"tag": {"type": "string", "description": "Filter by exact tag name"},
				"search": {"type": "string", "description": "Substring match on title or content"},
				"kind": {"type": "string", "enum": ["all", "notes", "urls"]},
				"sort_by": {"type": "string", "enum": ["updated_at", "created_at", "title"]},
				"sort_order": {"type": "string", "enum": ["asc", "desc"]},
				"limit": {"type": "integer", "description": "Max results", "default": 20},
				"offset": {"type": "integer", "default": 0}
			}
		}`),
	}, handle(s.listNotes))

	s.server.AddTool(&mcp.Tool{
		Name:        "get_note",
		Description: "Get a note by ID prefix",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Note ID or prefix (6+ chars)"}
			},
			"required": ["id"]
		}`),
	}, handle(s.getNote))

	s.server.AddTool(&mcp.Tool{
		Name:        "update_note",
		Description: "Update a note. Omitted fields are left alone; tags, when given, replace all tags.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Note ID or prefix"},
				"title": {"type": "string"},
				"content": {"type": "string"},
				"url": {"type": "string"},
				"tags": {"type": "array", "items": {"type": "string"}}
			},
			"required": ["id"]
		}`),
	}, handle(s.updateNote))

	s.server.AddTool(&mcp.Tool{
		Name:        "delete_note",
		Description: "Delete a note",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Note ID or prefix"}
			},
			"required": ["id"]
		}`),
	}, handle(s.deleteNote))

	s.server.AddTool(&mcp.Tool{
		Name:        "search_notes",
		Description: "Full-text search over titles, content, and saved page metadata",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search query (2+ characters)"},
				"limit": {"type": "integer", "description": "Max results", "default": 10}
			},
			"required": ["query"]
		}`),
	}, handle(s.searchNotes))

	s.server.AddTool(&mcp.Tool{
		Name:        "tag_tree",
		Description: "Show all tags as a hierarchy with per-tag note counts",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"format": {"type": "string", "enum": ["text", "json"], "default": "text"}
			}
		}`),
	}, handle(s.tagTree))

	s.server.AddTool(&mcp.Tool{
		Name:        "create_tag",
		Description: "Create a tag; its parent is linked when the parent path exists",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {"type": "string", "description": "Tag path, e.g. work/projects"}
			},
			"required": ["name"]
		}`),
	}, handle(s.createTag))

	s.server.AddTool(&mcp.Tool{
		Name:        "rename_tag",
		Description: "Rename a tag; tags below it move with it",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"tag": {"type": "string", "description": "Current tag name or ID"},
				"new_name": {"type": "string"}
			},
			"required": ["tag", "new_name"]
		}`),
	}, handle(s.renameTag))

	s.server.AddTool(&mcp.Tool{
		Name:        "delete_tag",
		Description: "Delete a tag and every tag below it. Notes are kept.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"tag": {"type": "string", "description": "Tag name or ID"}
			},
			"required": ["tag"]
		}`),
	}, handle(s.deleteTag))

	s.server.AddTool(&mcp.Tool{
		Name:        "suggest_tags",
		Description: "Suggest existing tags containing the query",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string"},
				"limit": {"type": "integer", "default": 10}
			}
		}`),
	}, handle(s.suggestTags))

	s.server.AddTool(&mcp.Tool{
		Name:        "add_tag",
		Description: "Add a tag to a note",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Note ID or prefix"},
				"tag": {"type": "string", "description": "Tag name"}
			},
			"required": ["id", "tag"]
		}`),
	}, handle(s.addTag))

	s.server.AddTool(&mcp.Tool{
		Name:        "remove_tag",
		Description: "Remove a tag from a note",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Note ID or prefix"},
				"tag": {"type": "string", "description": "Tag name"}
			},
			"required": ["id", "tag"]
		}`),
	}, handle(s.removeTag))

	s.server.AddTool(&mcp.Tool{
		Name:        "fetch_url",
		Description: "Preview the title and description a URL note would get",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"url": {"type": "string"}
			},
			"required": ["url"]
		}`),
	}, handle(s.fetchURL))
}

// Tool handlers.

type addNoteParams struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	URL     string   `json:"url"`
	Tags    []string `json:"tags"`
}

func (s *Server) addNote(ctx context.Context, p addNoteParams) (*mcp.CallToolResult, error) {
	url := strings.TrimSpace(p.URL)
	if url == "" && strings.TrimSpace(p.Content) == "" {
		return toolError("note content cannot be empty"), nil
	}

	note, err := s.svc.CreateNote(ctx, s.userID, notes.CreateNoteInput{
		Title:   p.Title,
		Content: p.Content,
		IsURL:   url != "",
		URL:     url,
		Tags:    p.Tags,
	})
	if err != nil {
		return toolError("failed to create note: %v", err), nil
	}
	return toolText(fmt.Sprintf("Created note %s (%s)", note.ID.String(), note.Title)), nil
}

type listNotesParams struct {
	Tag       string `json:"tag"`
	Search    string `json:"search"`
	Kind      string `json:"kind"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

func (s *Server) listNotes(ctx context.Context, p listNotesParams) (*mcp.CallToolResult, error) {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	list, err := s.svc.ListNotes(ctx, s.userID, notes.ListNotesInput{
		Tag:       p.Tag,
		Search:    p.Search,
		Kind:      p.Kind,
		SortBy:    p.SortBy,
		SortOrder: p.SortOrder,
		Limit:     p.Limit,
		Offset:    p.Offset,
	})
	if err != nil {
		return toolError("failed to list notes: %v", err), nil
	}
	return toolJSON(list), nil
}

type noteRefParams struct {
	ID string `json:"id"`
}

func (s *Server) getNote(ctx context.Context, p noteRefParams) (*mcp.CallToolResult, error) {
	note, err := s.svc.GetNote(ctx, s.userID, p.ID)
	if err != nil {
		return toolError("failed to get note: %v", err), nil
	}
	return toolJSON(note), nil
}

type updateNoteParams struct {
	ID      string   `json:"id"`
	Title   *string  `json:"title"`
	Content *string  `json:"content"`
	URL     *string  `json:"url"`
	Tags    []string `json:"tags"`
}

func (s *Server) updateNote(ctx context.Context, p updateNoteParams) (*mcp.CallToolResult, error) {
	in := notes.UpdateNoteInput{
		Title:   p.Title,
		Content: p.Content,
		URL:     p.URL,
		Tags:    p.Tags,
	}
	if p.URL != nil {
		isURL := strings.TrimSpace(*p.URL) != ""
		in.IsURL = &isURL
	}

	note, err := s.svc.UpdateNote(ctx, s.userID, p.ID, in)
	if err != nil {
		return toolError("failed to update note: %v", err), nil
	}
	return toolText(fmt.Sprintf("Updated note %s", note.ID.String())), nil
}

func (s *Server) deleteNote(ctx context.Context, p noteRefParams) (*mcp.CallToolResult, error) {
	note, err := s.svc.DeleteNote(ctx, s.userID, p.ID)
	if err != nil {
		return toolError("failed to delete note: %v", err), nil
	}
	return toolText(fmt.Sprintf("Deleted note %s", note.ID.String())), nil
}

type searchParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) searchNotes(ctx context.Context, p searchParams) (*mcp.CallToolResult, error) {
	if p.Limit <= 0 {
		p.Limit = 10
	}
	results, err := s.svc.SearchNotes(ctx, s.userID, p.Query, p.Limit)
	if err != nil {
		return toolError("failed to search notes: %v", err), nil
	}
	return toolJSON(results), nil
}

type tagTreeParams struct {
	Format string `json:"format"`
}

func (s *Server) tagTree(ctx context.Context, p tagTreeParams) (*mcp.CallToolResult, error) {
	tree, err := s.svc.TagTree(ctx, s.userID)
	if err != nil {
		return toolError("failed to load tags: %v", err), nil
	}
	if p.Format == "json" {
		return toolJSON(tree), nil
	}
	return toolText(ui.FormatTagTree(tree, ui.TreeOptions{Totals: true})), nil
}

type createTagParams struct {
	Name string `json:"name"`
}

func (s *Server) createTag(ctx context.Context, p createTagParams) (*mcp.CallToolResult, error) {
	tag, err := s.svc.CreateTag(ctx, s.userID, notes.CreateTagInput{Name: p.Name})
	if err != nil {
		return toolError("failed to create tag: %v", err), nil
	}
	return toolText(fmt.Sprintf("Created tag '%s'", tag.Name)), nil
}

type renameTagParams struct {
	Tag     string `json:"tag"`
	NewName string `json:"new_name"`
}

func (s *Server) renameTag(ctx context.Context, p renameTagParams) (*mcp.CallToolResult, error) {
	tag, err := s.svc.RenameTag(ctx, s.userID, p.Tag, p.NewName)
	if err != nil {
		return toolError("failed to rename tag: %v", err), nil
	}
	return toolText(fmt.Sprintf("Renamed tag to '%s'", tag.Name)), nil
}

type tagRefParams struct {
	Tag string `json:"tag"`
}

func (s *Server) deleteTag(ctx context.Context, p tagRefParams) (*mcp.CallToolResult, error) {
	removed, err := s.svc.DeleteTag(ctx, s.userID, p.Tag)
	if err != nil {
		return toolError("failed to delete tag: %v", err), nil
	}
	return toolText(fmt.Sprintf("Deleted %d tag(s)", removed)), nil
}

func (s *Server) suggestTags(ctx context.Context, p searchParams) (*mcp.CallToolResult, error) {
	tags, err := s.svc.SuggestTags(ctx, s.userID, p.Query, p.Limit)
	if err != nil {
		return toolError("failed to suggest tags: %v", err), nil
	}
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return toolJSON(names), nil
}

type noteTagParams struct {
	ID  string `json:"id"`
	Tag string `json:"tag"`
}

func (s *Server) addTag(ctx context.Context, p noteTagParams) (*mcp.CallToolResult, error) {
	tag, err := s.svc.TagNote(ctx, s.userID, p.ID, p.Tag)
	if err != nil {
		return toolError("failed to add tag: %v", err), nil
	}
	return toolText(fmt.Sprintf("Added tag '%s' to note %s", tag.Name, p.ID)), nil
}

func (s *Server) removeTag(ctx context.Context, p noteTagParams) (*mcp.CallToolResult, error) {
	if err := s.svc.UntagNote(ctx, s.userID, p.ID, p.Tag); err != nil {
		return toolError("failed to remove tag: %v", err), nil
	}
	return toolText(fmt.Sprintf("Removed tag '%s' from note %s", p.Tag, p.ID)), nil
}

type fetchURLParams struct {
	URL string `json:"url"`
}

func (s *Server) fetchURL(ctx context.Context, p fetchURLParams) (*mcp.CallToolResult, error) {
	meta, err := s.svc.FetchMetadata(ctx, p.URL)
	if err != nil {
		s.logger.Debug("fetch_url failed", zap.String("url", p.URL), zap.Error(err))
		return toolError("failed to fetch metadata: %v", err), nil
	}
	return toolJSON(meta), nil
}
