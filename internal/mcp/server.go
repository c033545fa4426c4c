package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vesperhq/vesper/internal/knowledge"
)

// Server exposes the knowledge engine over the Model Context Protocol.
type Server struct {
	mcpServer *mcp.Server
	engine    *knowledge.Engine
	logger    *slog.Logger
	name      string
	version   string
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	Engine  *knowledge.Engine
	Logger  *slog.Logger
}

// NewServer creates an MCP server with the knowledge tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, errors.New("server name is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("server version is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("knowledge engine is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		engine:  cfg.Engine,
		logger:  cfg.Logger,
		name:    cfg.Name,
		version: cfg.Version,
	}

	if err := s.registerKnowledgeTools(); err != nil {
		return nil, fmt.Errorf("registering knowledge tools: %w", err)
	}

	return s, nil
}

// Run serves the MCP protocol on the given transport. It blocks until the
// context is cancelled or the transport closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("mcp server starting", "name", s.name, "version", s.version)
	return s.mcpServer.Run(ctx, transport)
}
