package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kbcrew/kbcrew/internal/tools"
)

// resultToMCP converts a tools.Result to an MCP tool result. Error results
// carry only the error code and message; internal detail stays in server
// logs.
func resultToMCP(result tools.Result) *mcp.CallToolResult {
	if result.Status == tools.StatusError {
		text := "unknown error"
		if result.Error != nil {
			text = fmt.Sprintf("[%s] %s", result.Error.Code, result.Error.Message)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
			IsError: true,
		}
	}
	return dataToMCP(result.Data)
}

// dataToMCP renders result data as JSON text content. Clients parse the
// JSON themselves.
func dataToMCP(data map[string]any) *mcp.CallToolResult {
	if len(data) == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "{}"}},
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "result could not be serialized"}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}
}
