package mcp

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// textResult builds a successful tool result carrying a single text block.
// All vesper tools answer with text: search excerpts are consumed verbatim
// by the calling model, and status lines are for humans reading a client's
// tool log.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult builds an IsError tool result. These are failures the caller
// can act on (unknown document, empty query, upstream embedding outage), as
// opposed to protocol errors, which the SDK reserves for malformed calls.
//
// Never include file paths, stack traces or configuration values in the
// message; it goes to an untrusted client.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
