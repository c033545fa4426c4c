package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vesperhq/vesper/internal/knowledge"
)

// maxDocumentRequestBytes caps the POST /documents body. Content arrives
// inline, so the cap is effectively the largest accepted document.
const maxDocumentRequestBytes = 10 << 20

const (
	documentsDefaultLimit = 100
	documentsMaxLimit     = 1000
)

// documentHandler serves the document CRUD and indexing endpoints.
//
// base is the server lifetime context. Index jobs run on it rather than
// on the request context, so a job keeps running after its 202 response
// and stops with the server.
type documentHandler struct {
	engine *knowledge.Engine
	logger *slog.Logger
	base   context.Context
}

// createDocumentRequest is the POST /documents body. ID is optional; a
// UUID is assigned when absent.
type createDocumentRequest struct {
	ID       string                  `json:"id"`
	Name     string                  `json:"name"`
	Kind     string                  `json:"kind"`
	Content  string                  `json:"content"`
	Settings knowledge.IndexSettings `json:"settings"`
	Metadata map[string]string       `json:"metadata"`
}

// documentSummary is the JSON shape of a registered document. Content is
// deliberately absent: documents can be megabytes.
type documentSummary struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Kind      knowledge.Kind    `json:"kind"`
	Bytes     int               `json:"bytes"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at"`
	Status    knowledge.Status  `json:"status"`
}

func (h *documentHandler) summarize(doc knowledge.Document) documentSummary {
	return documentSummary{
		ID:        doc.ID,
		Name:      doc.Name,
		Kind:      doc.Kind,
		Bytes:     len(doc.Content),
		Metadata:  doc.Metadata,
		CreatedAt: doc.CreatedAt.Format(time.RFC3339),
		Status:    h.engine.Status(doc.ID),
	}
}

// create handles POST /api/v1/documents: register the document and start
// an index job, answering 202 while the job runs.
func (h *documentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if !decodeJSONBody(w, r, &req, maxDocumentRequestBytes, h.logger) {
		return
	}

	kind, err := knowledge.ParseKind(req.Kind)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_kind",
			fmt.Sprintf("%q is not a known document kind", req.Kind), h.logger)
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Name == "" {
		req.Name = req.ID
	}

	doc, err := h.engine.Register(knowledge.Document{
		ID:       req.ID,
		Name:     req.Name,
		Kind:     kind,
		Content:  req.Content,
		Settings: req.Settings,
		Metadata: req.Metadata,
	})
	if err != nil {
		status, code := registrationError(err)
		WriteError(w, status, code, err.Error(), h.logger)
		return
	}

	h.startIndex(doc)

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"id":     doc.ID,
		"status": string(knowledge.StateIndexing),
	}, h.logger)
}

// list handles GET /api/v1/documents.
func (h *documentHandler) list(w http.ResponseWriter, r *http.Request) {
	docs := h.engine.Documents()
	total := len(docs)

	limit := min(parseIntParam(r, "limit", documentsDefaultLimit), documentsMaxLimit)
	if len(docs) > limit {
		docs = docs[:limit]
	}

	items := make([]documentSummary, len(docs))
	for i, doc := range docs {
		items[i] = h.summarize(doc)
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	}, h.logger)
}

// get handles GET /api/v1/documents/{id}.
func (h *documentHandler) get(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.engine.Document(r.PathValue("id"))
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "document not registered", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, h.summarize(doc), h.logger)
}

// status handles GET /api/v1/documents/{id}/status.
func (h *documentHandler) status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.engine.Document(id); !ok {
		WriteError(w, http.StatusNotFound, "not_found", "document not registered", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, h.engine.Status(id), h.logger)
}

// reindex handles POST /api/v1/documents/{id}/reindex: a fresh job under
// a new generation, using the content captured at registration.
func (h *documentHandler) reindex(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.engine.Document(r.PathValue("id"))
	if !ok {
		WriteError(w, http.StatusNotFound, "not_found", "document not registered", h.logger)
		return
	}

	h.startIndex(doc)

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"id":     doc.ID,
		"status": string(knowledge.StateIndexing),
	}, h.logger)
}

// remove handles DELETE /api/v1/documents/{id}: drops the document and
// its index together.
func (h *documentHandler) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.engine.Unregister(id) {
		WriteError(w, http.StatusNotFound, "not_found", "document not registered", h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"}, h.logger)
}

// startIndex launches an index job for doc on the server's base context.
// Progress goes to the log; clients poll the status endpoint for
// completion. The engine logs success and supersession itself, so only
// failures are reported here.
func (h *documentHandler) startIndex(doc knowledge.Document) {
	go func() {
		_, err := h.engine.Index(h.base, doc, knowledge.WithProgress(func(pct int, msg string) {
			h.logger.Debug("index progress",
				"document_id", doc.ID,
				"percent", pct,
				"stage", msg,
			)
		}))
		if err != nil {
			h.logger.Error("background index failed", "document_id", doc.ID, "error", err)
		}
	}()
}

// registrationError maps document validation failures onto HTTP codes.
func registrationError(err error) (int, string) {
	switch {
	case errors.Is(err, knowledge.ErrEmptyDocumentID):
		return http.StatusBadRequest, "id_required"
	case errors.Is(err, knowledge.ErrEmptyContent):
		return http.StatusBadRequest, "content_required"
	case errors.Is(err, knowledge.ErrInvalidKind):
		return http.StatusBadRequest, "invalid_kind"
	case errors.Is(err, knowledge.ErrModelMismatch):
		return http.StatusConflict, "model_mismatch"
	default:
		return http.StatusBadRequest, "invalid_document"
	}
}
