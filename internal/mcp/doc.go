// Package mcp implements a Model Context Protocol (MCP) server over the
// knowledge engine.
//
// The server exposes retrieval to MCP clients (Claude Code, Cursor, Genkit
// CLI and others) so an external model can pull indexed context on demand:
//
//	MCP client
//	     |
//	     | (MCP protocol over stdio)
//	     v
//	Server (official go-sdk)
//	     |
//	     +-- knowledge_search  semantic search, passages as text
//	     +-- knowledge_status  one document's index state
//	     +-- knowledge_list    all registered documents
//	     |
//	     v
//	knowledge.Engine
//
// The surface is read-only: indexing happens through the HTTP API or the
// CLI, and the MCP side only ever queries.
//
// # Tool handler pattern
//
// Handlers follow the net/http.Handler shape: the input schema is inferred
// from a struct with jsonschema tags, and the handler builds the
// mcp.CallToolResult inline with no conversion layer in between.
//
// # Error handling
//
// Two kinds of failure, two channels:
//
//   - Failures the caller can act on (unknown document, empty query, an
//     embedding backend outage) return an IsError result, so the calling
//     model sees the message and can retry or rephrase.
//   - Protocol errors (malformed calls, unknown tools) are left to the SDK.
//
// Result text never carries paths, stack traces or configuration values;
// the client is untrusted.
package mcp
