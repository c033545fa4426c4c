package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vesperhq/vesper/internal/knowledge"
)

const (
	// maxSearchQueryLength caps the query in bytes.
	maxSearchQueryLength = 1000

	// maxSearchRequestBytes caps the whole POST /search body.
	maxSearchRequestBytes = 64 << 10

	// maxSearchResults caps how many results one call may request.
	// Larger values are reduced silently.
	maxSearchResults = 50
)

// searchHandler serves the retrieval endpoint.
type searchHandler struct {
	engine *knowledge.Engine
	logger *slog.Logger
}

// searchRequest is the POST /search body. Pointer fields distinguish
// absent from zero: a similarity_threshold of 0 legitimately keeps every
// candidate, and expand false forces a single-query search.
type searchRequest struct {
	Query               string   `json:"query"`
	DocumentIDs         []string `json:"document_ids"`
	MaxResults          int      `json:"max_results"`
	TokenBudget         int      `json:"token_budget"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
	Expand              *bool    `json:"expand"`
}

// searchResponse mirrors knowledge.SearchResponse with the elapsed time
// in milliseconds instead of nanoseconds.
type searchResponse struct {
	Query       string                   `json:"query"`
	Variants    []string                 `json:"variants"`
	Results     []knowledge.SearchResult `json:"results"`
	Candidates  int                      `json:"candidates"`
	TokenBudget int                      `json:"token_budget"`
	ElapsedMS   int64                    `json:"elapsed_ms"`
}

// search handles POST /api/v1/search.
func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSONBody(w, r, &req, maxSearchRequestBytes, h.logger) {
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		WriteError(w, http.StatusBadRequest, "query_required", "query must not be empty", h.logger)
		return
	}
	if len(req.Query) > maxSearchQueryLength {
		WriteError(w, http.StatusBadRequest, "query_too_long", "query must be 1000 bytes or fewer", h.logger)
		return
	}
	if req.SimilarityThreshold != nil && (*req.SimilarityThreshold < 0 || *req.SimilarityThreshold > 1) {
		WriteError(w, http.StatusBadRequest, "invalid_threshold", "similarity_threshold must be between 0 and 1", h.logger)
		return
	}

	var opts []knowledge.SearchOption
	if len(req.DocumentIDs) > 0 {
		opts = append(opts, knowledge.WithDocuments(req.DocumentIDs...))
	}
	if req.MaxResults > 0 {
		opts = append(opts, knowledge.WithMaxResults(min(req.MaxResults, maxSearchResults)))
	}
	if req.TokenBudget > 0 {
		opts = append(opts, knowledge.WithTokenBudget(req.TokenBudget))
	}
	if req.SimilarityThreshold != nil {
		opts = append(opts, knowledge.WithThreshold(*req.SimilarityThreshold))
	}
	if req.Expand != nil {
		opts = append(opts, knowledge.WithExpansion(*req.Expand))
	}

	resp, err := h.engine.Search(r.Context(), req.Query, opts...)
	if err != nil {
		if errors.Is(err, knowledge.ErrEmptyQuery) {
			WriteError(w, http.StatusBadRequest, "query_required", "query must not be empty", h.logger)
			return
		}
		// Past validation the only failures are upstream embedding calls.
		h.logger.Error("search failed", "error", err, "query_len", len(req.Query))
		WriteError(w, http.StatusBadGateway, "search_failed", "search did not complete", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, searchResponse{
		Query:       resp.Query,
		Variants:    resp.Variants,
		Results:     resp.Results,
		Candidates:  resp.Candidates,
		TokenBudget: resp.TokenBudget,
		ElapsedMS:   resp.Elapsed.Milliseconds(),
	}, h.logger)
}

// statsHandler serves the engine-wide stats endpoint.
type statsHandler struct {
	engine *knowledge.Engine
	logger *slog.Logger
}

// get handles GET /api/v1/stats.
func (h *statsHandler) get(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.engine.Stats(), h.logger)
}
