package main

// format.go — wrapping rendered text and errors as MCP tool results.

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// textResult wraps a string in an MCP CallToolResult.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// failed reports err as a tool error, e.g. "Failed to insert lines: file not found: a.go".
func failed(action string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Failed to %s: %v", action, err)},
		},
	}
}
