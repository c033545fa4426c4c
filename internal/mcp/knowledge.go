package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vesperhq/vesper/internal/knowledge"
)

// Tool names as seen by MCP clients.
const (
	toolKnowledgeSearch = "knowledge_search"
	toolKnowledgeStatus = "knowledge_status"
	toolKnowledgeList   = "knowledge_list"
)

// SearchInput is the knowledge_search argument schema.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"The search query, a question or topic to find passages for"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of passages to return (optional, engine default when omitted)"`
}

// StatusInput is the knowledge_status argument schema.
type StatusInput struct {
	DocumentID string `json:"document_id" jsonschema:"The ID of the document to report on"`
}

// ListInput is the knowledge_list argument schema. The tool takes no
// arguments.
type ListInput struct{}

// registerKnowledgeTools registers the three knowledge tools.
func (s *Server) registerKnowledgeTools() error {
	searchSchema, err := jsonschema.For[SearchInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", toolKnowledgeSearch, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: toolKnowledgeSearch,
		Description: "Search the indexed knowledge base using semantic similarity. " +
			"Returns the most relevant passages as text, ready to use as context.",
		InputSchema: searchSchema,
	}, s.Search)

	statusSchema, err := jsonschema.For[StatusInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", toolKnowledgeStatus, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: toolKnowledgeStatus,
		Description: "Report the index state of one document: not-indexed, " +
			"indexing, or indexed with vector count and generation.",
		InputSchema: statusSchema,
	}, s.Status)

	listSchema, err := jsonschema.For[ListInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", toolKnowledgeList, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: toolKnowledgeList,
		Description: "List every registered document with its kind and " +
			"index state.",
		InputSchema: listSchema,
	}, s.List)

	return nil
}

// Search handles the knowledge_search MCP tool call.
func (s *Server) Search(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
	var opts []knowledge.SearchOption
	if in.MaxResults > 0 {
		opts = append(opts, knowledge.WithMaxResults(in.MaxResults))
	}

	resp, err := s.engine.Search(ctx, in.Query, opts...)
	if err != nil {
		if errors.Is(err, knowledge.ErrEmptyQuery) {
			return errorResult("query must not be empty"), nil, nil
		}
		s.logger.Error("mcp search failed", "error", err)
		return errorResult("search failed: the embedding backend did not answer"), nil, nil
	}

	return textResult(formatSearchResponse(resp)), nil, nil
}

// Status handles the knowledge_status MCP tool call.
func (s *Server) Status(_ context.Context, _ *mcp.CallToolRequest, in StatusInput) (*mcp.CallToolResult, any, error) {
	if _, ok := s.engine.Document(in.DocumentID); !ok {
		return errorResult("document %q is not registered", in.DocumentID), nil, nil
	}

	st := s.engine.Status(in.DocumentID)
	if st.State == knowledge.StateIndexed {
		return textResult(fmt.Sprintf("%s: indexed, %d vectors, generation %d, indexed at %s",
			in.DocumentID, st.VectorCount, st.Generation, st.IndexedAt.Format(time.RFC3339))), nil, nil
	}
	return textResult(fmt.Sprintf("%s: %s", in.DocumentID, st.State)), nil, nil
}

// List handles the knowledge_list MCP tool call.
func (s *Server) List(_ context.Context, _ *mcp.CallToolRequest, _ ListInput) (*mcp.CallToolResult, any, error) {
	docs := s.engine.Documents()
	if len(docs) == 0 {
		return textResult("No documents registered."), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d documents:\n", len(docs))
	for _, doc := range docs {
		st := s.engine.Status(doc.ID)
		fmt.Fprintf(&b, "- %s %q (%s): %s", doc.ID, doc.Name, doc.Kind, st.State)
		if st.State == knowledge.StateIndexed {
			fmt.Fprintf(&b, ", %d vectors", st.VectorCount)
		}
		b.WriteByte('\n')
	}
	return textResult(b.String()), nil, nil
}

// formatSearchResponse renders results as a text block the calling model
// can drop straight into its context. Gap fillers are marked so the model
// knows a passage is adjacency context rather than a direct match.
func formatSearchResponse(resp *knowledge.SearchResponse) string {
	if len(resp.Results) == 0 {
		return fmt.Sprintf("No passages matched %q.", resp.Query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d passages for %q:\n", len(resp.Results), resp.Query)
	for i, res := range resp.Results {
		fmt.Fprintf(&b, "\n[%d] %s (%s) similarity=%.2f", i+1, res.DocumentName, res.Kind, res.Similarity)
		if res.IsGapFiller {
			b.WriteString(" (adjacent context)")
		}
		b.WriteByte('\n')
		b.WriteString(res.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
