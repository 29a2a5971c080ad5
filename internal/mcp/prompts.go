// ABOUTME: MCP prompts for common note-taking workflows.
// ABOUTME: Provides pre-configured prompts for AI agent interactions.

package mcp

import (
	"context"
	"fmt"

	"github.com/harper/marknote/internal/ui"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerPrompts() {
	s.server.AddPrompt(&mcp.Prompt{
		Name:        "summarize-note",
		Description: "Generate a summary of an existing note",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "note_id",
				Description: "ID of the note to summarize",
				Required:    true,
			},
		},
	}, s.getSummarizeNotePrompt)

	s.server.AddPrompt(&mcp.Prompt{
		Name:        "organize-tags",
		Description: "Get suggestions for restructuring the tag hierarchy",
	}, s.getOrganizeTagsPrompt)

	s.server.AddPrompt(&mcp.Prompt{
		Name:        "save-link",
		Description: "Save a URL as a note with fitting tags",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "url",
				Description: "URL to save",
				Required:    true,
			},
		},
	}, s.getSaveLinkPrompt)
}

func userPrompt(text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Messages: []*mcp.PromptMessage{
			{
				Role: "user",
				Content: &mcp.TextContent{
					Text: text,
				},
			},
		},
	}
}

func (s *Server) getSummarizeNotePrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return summarizeNotePrompt(req.Params.Arguments["note_id"])
}

func summarizeNotePrompt(noteID string) (*mcp.GetPromptResult, error) {
	if noteID == "" {
		return nil, fmt.Errorf("note_id argument is required")
	}

	return userPrompt(fmt.Sprintf(`Please summarize the note with ID: %s

1. Use the get_note tool to retrieve the note content
2. If it is a URL note, take the saved page title and description into account
3. Create a concise summary highlighting:
   - Main topic or theme
   - Key points or takeaways
   - Important details or action items
4. Use the update_note tool to add a "Summary" section at the top of the note`, noteID)), nil
}

func (s *Server) getOrganizeTagsPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return s.organizeTagsPrompt(ctx)
}

func (s *Server) organizeTagsPrompt(ctx context.Context) (*mcp.GetPromptResult, error) {
	tree, err := s.svc.TagTree(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}

	return userPrompt(fmt.Sprintf(`Help me organize my tags. This is my current hierarchy, with direct/total note counts:

%s
1. Identify tags that overlap or duplicate each other
2. Suggest a cleaner hierarchy using / to nest tags (e.g. work/projects)
3. Point out tags with no notes that could be deleted
4. Use list_notes with the tag filter to check notes before moving them

Apply changes with rename_tag (descendants move along), delete_tag, add_tag and remove_tag.
Ask me before deleting anything.`, ui.FormatTagTree(tree, ui.TreeOptions{Totals: true}))), nil
}

func (s *Server) getSaveLinkPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return saveLinkPrompt(req.Params.Arguments["url"])
}

func saveLinkPrompt(url string) (*mcp.GetPromptResult, error) {
	if url == "" {
		return nil, fmt.Errorf("url argument is required")
	}

	return userPrompt(fmt.Sprintf(`Save this link as a note: %s

1. Use the fetch_url tool to preview the page title and description
2. Use suggest_tags to find existing tags that fit, preferring them over new ones
3. Use the add_note tool with the url, a short summary as content, and 1-3 tags`, url)), nil
}
