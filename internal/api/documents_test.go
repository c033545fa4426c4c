package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperhq/vesper/internal/knowledge"
	"github.com/vesperhq/vesper/internal/testutil"
)

func newTestDocumentHandler(tb testing.TB) *documentHandler {
	tb.Helper()
	return &documentHandler{
		engine: testutil.SetupEngine(tb).Engine,
		logger: discardLogger(),
		base:   context.Background(),
	}
}

// mustRegister adds a document to the registry without indexing it.
func mustRegister(tb testing.TB, engine *knowledge.Engine, id string) {
	tb.Helper()
	_, err := engine.Register(knowledge.Document{
		ID:      id,
		Name:    "Doc " + id,
		Kind:    knowledge.KindUploadedFile,
		Content: "Registered but not yet indexed.",
	})
	if err != nil {
		tb.Fatalf("Register(%s): %v", id, err)
	}
}

// mustIndex builds an index synchronously so a test does not depend on
// background job timing.
func mustIndex(tb testing.TB, engine *knowledge.Engine, id, content string) {
	tb.Helper()
	_, err := engine.Index(context.Background(), knowledge.Document{
		ID:      id,
		Name:    "Doc " + id,
		Kind:    knowledge.KindUploadedFile,
		Content: content,
	})
	if err != nil {
		tb.Fatalf("Index(%s): %v", id, err)
	}
}

// waitForState polls until the document reaches want or the deadline
// passes. Background jobs against the mock embedder finish in
// milliseconds, the generous deadline is for busy CI machines.
func waitForState(tb testing.TB, engine *knowledge.Engine, id string, want knowledge.IndexState) knowledge.Status {
	tb.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if st := engine.Status(id); st.State == want {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	tb.Fatalf("document %s never reached state %q", id, want)
	return knowledge.Status{}
}

func TestDocumentCreate(t *testing.T) {
	t.Parallel()

	h := newTestDocumentHandler(t)

	body, err := json.Marshal(map[string]any{
		"id":      "doc-1",
		"name":    "Handbook",
		"kind":    "uploaded-file",
		"content": "First sentence. Second sentence. Third sentence.",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader(body))
	h.create(w, r)

	require.Equal(t, http.StatusAccepted, w.Code, "body: %s", w.Body.String())

	var resp map[string]string
	decodeData(t, w, &resp)
	assert.Equal(t, "doc-1", resp["id"])
	assert.Equal(t, "indexing", resp["status"])

	// The document is visible immediately, before the job finishes.
	doc, ok := h.engine.Document("doc-1")
	require.True(t, ok, "document should be registered synchronously")
	assert.Equal(t, "Handbook", doc.Name)

	st := waitForState(t, h.engine, "doc-1", knowledge.StateIndexed)
	assert.Positive(t, st.VectorCount)
}

func TestDocumentCreate_GeneratesID(t *testing.T) {
	t.Parallel()

	h := newTestDocumentHandler(t)

	body, err := json.Marshal(map[string]string{
		"kind":    "user-prompt",
		"content": "Always answer in French.",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader(body))
	h.create(w, r)

	require.Equal(t, http.StatusAccepted, w.Code, "body: %s", w.Body.String())

	var resp map[string]string
	decodeData(t, w, &resp)
	_, err = uuid.Parse(resp["id"])
	assert.NoError(t, err, "generated id should be a UUID")

	// With no name given, the name falls back to the id.
	doc, ok := h.engine.Document(resp["id"])
	require.True(t, ok)
	assert.Equal(t, resp["id"], doc.Name)
}

func TestDocumentList(t *testing.T) {
	t.Parallel()

	h := newTestDocumentHandler(t)
	mustIndex(t, h.engine, "a", "Content of the first document.")
	mustIndex(t, h.engine, "b", "Content of the second document.")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	h.list(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []documentSummary `json:"items"`
		Total int               `json:"total"`
	}
	decodeData(t, w, &resp)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.Total)

	ids := []string{resp.Items[0].ID, resp.Items[1].ID}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestDocumentList_Limit(t *testing.T) {
	t.Parallel()

	h := newTestDocumentHandler(t)
	mustIndex(t, h.engine, "a", "Content of the first document.")
	mustIndex(t, h.engine, "b", "Content of the second document.")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/documents?limit=1", nil)
	h.list(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []documentSummary `json:"items"`
		Total int               `json:"total"`
	}
	decodeData(t, w, &resp)
	assert.Len(t, resp.Items, 1)
	// Total reports the full count so clients can page.
	assert.Equal(t, 2, resp.Total)
}

func TestDocumentGet(t *testing.T) {
	t.Parallel()

	h := newTestDocumentHandler(t)
	content := "A short regulation about parking."
	_, err := h.engine.Index(context.Background(), knowledge.Document{
		ID:       "reg-7",
		Name:     "Parking rules",
		Kind:     knowledge.KindRegulation,
		Content:  content,
		Metadata: map[string]string{"source": "city-hall"},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/documents/reg-7", nil)
	r.SetPathValue("id", "reg-7")
	h.get(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var got documentSummary
	decodeData(t, w, &got)
	assert.Equal(t, "reg-7", got.ID)
	assert.Equal(t, "Parking rules", got.Name)
	assert.Equal(t, knowledge.KindRegulation, got.Kind)
	assert.Equal(t, len(content), got.Bytes)
	assert.Equal(t, "city-hall", got.Metadata["source"])
	assert.Equal(t, knowledge.StateIndexed, got.Status.State)
	assert.NotEmpty(t, got.CreatedAt)
}

func TestDocumentStatus(t *testing.T) {
	t.Parallel()

	h := newTestDocumentHandler(t)
	mustRegister(t, h.engine, "pending")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/documents/pending/status", nil)
	r.SetPathValue("id", "pending")
	h.status(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var st knowledge.Status
	decodeData(t, w, &st)
	assert.Equal(t, knowledge.StateNotIndexed, st.State)

	mustIndex(t, h.engine, "pending", "Now it has content worth indexing.")

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/api/v1/documents/pending/status", nil)
	r.SetPathValue("id", "pending")
	h.status(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &st)
	assert.Equal(t, knowledge.StateIndexed, st.State)
	assert.Positive(t, st.VectorCount)
}

func TestDocumentReindex(t *testing.T) {
	t.Parallel()

	h := newTestDocumentHandler(t)
	mustIndex(t, h.engine, "doc-1", "Content that will be indexed twice.")
	first := h.engine.Status("doc-1")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-1/reindex", nil)
	r.SetPathValue("id", "doc-1")
	h.reindex(w, r)

	require.Equal(t, http.StatusAccepted, w.Code, "body: %s", w.Body.String())

	// Wait for the new generation, not just StateIndexed: the old index
	// keeps serving until the job lands.
	deadline := time.Now().Add(5 * time.Second)
	for {
		st := h.engine.Status("doc-1")
		if st.State == knowledge.StateIndexed && st.Generation > first.Generation {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("reindex never superseded generation %d, status: %+v", first.Generation, st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDocumentRemove(t *testing.T) {
	t.Parallel()

	h := newTestDocumentHandler(t)
	mustIndex(t, h.engine, "doomed", "Content that will not last long.")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doomed", nil)
	r.SetPathValue("id", "doomed")
	h.remove(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	decodeData(t, w, &resp)
	assert.Equal(t, "deleted", resp["status"])

	_, ok := h.engine.Document("doomed")
	assert.False(t, ok, "document should be gone after DELETE")

	// Deleting again reports not_found.
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodDelete, "/api/v1/documents/doomed", nil)
	r.SetPathValue("id", "doomed")
	h.remove(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
