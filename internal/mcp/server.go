// ABOUTME: MCP server for marknote integration with AI agents.
// ABOUTME: Provides tools, resources, and prompts for notes and hierarchical tags.

package mcp

import (
	"context"

	"github.com/harper/marknote/internal/notes"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

type Server struct {
	server *mcp.Server
	svc    *notes.Service
	userID string
	logger *zap.Logger
}

// NewServer exposes svc to MCP clients. Every call acts as userID.
func NewServer(svc *notes.Service, userID string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, userID: userID, logger: logger}

	s.server = mcp.NewServer(
		&mcp.Implementation{
			Name:    "marknote",
			Version: Version,
		},
		&mcp.ServerOptions{
			HasTools:     true,
			HasResources: true,
			HasPrompts:   true,
		},
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp server starting", zap.String("user_id", s.userID))
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
