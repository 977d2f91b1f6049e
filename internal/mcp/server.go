package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kbcrew/kbcrew/internal/tools"
)

// Server wraps the MCP SDK server and the knowledge tool handlers.
type Server struct {
	mcpServer *mcp.Server
	knowledge *tools.Knowledge
	logger    *slog.Logger
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// NewServer creates an MCP server exposing the knowledge tools.
func NewServer(cfg Config, knowledge *tools.Knowledge, logger *slog.Logger) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if knowledge == nil {
		return nil, fmt.Errorf("knowledge tools are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		knowledge: knowledge,
		logger:    logger,
	}

	if err := s.registerKnowledgeTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return s, nil
}

// Run serves MCP on the given transport. Blocks until the transport closes
// or the context is canceled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("mcp server starting")
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerKnowledgeTools() error {
	searchSchema, err := jsonschema.For[tools.SearchInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", tools.SearchKnowledgeBaseName, err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: tools.SearchKnowledgeBaseName,
		Description: "Search the knowledge base using semantic similarity. " +
			"Finds indexed document chunks related to the query, with source " +
			"attribution and similarity scores.",
		InputSchema: searchSchema,
	}, s.SearchKnowledgeBase)

	return nil
}

// SearchKnowledgeBase handles the search_knowledge_base MCP tool call.
func (s *Server) SearchKnowledgeBase(ctx context.Context, _ *mcp.CallToolRequest, input tools.SearchInput) (*mcp.CallToolResult, any, error) {
	toolCtx := &ai.ToolContext{Context: ctx}
	result, err := s.knowledge.SearchKnowledgeBase(toolCtx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("search_knowledge_base failed: %w", err)
	}
	return resultToMCP(result), nil, nil
}
