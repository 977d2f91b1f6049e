package cmd

import (
	"context"
	"fmt"

	mcpSdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/kbcrew/kbcrew/internal/app"
	"github.com/kbcrew/kbcrew/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the knowledge base over MCP on stdio",
	Long: `Mcp starts a Model Context Protocol server on stdio, exposing
search_knowledge_base to MCP clients. Logs go to stderr; stdout carries
only protocol frames.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		server, err := mcp.NewServer(mcp.Config{
			Name:    "kbcrew",
			Version: Version,
		}, a.KnowledgeTools, a.Logger)
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}

		a.Logger.Info("MCP server ready", "transport", "stdio", "version", Version)
		if err := server.Run(ctx, &mcpSdk.StdioTransport{}); err != nil {
			return fmt.Errorf("MCP server: %w", err)
		}
		return nil
	})
}
