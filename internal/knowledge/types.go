package knowledge

import (
	"fmt"
	"time"
)

// Kind identifies a document's source category. The set is closed: every
// document carries exactly one Kind, and content resolution works the same
// way for all of them, so nothing downstream ever branches on Kind.
type Kind string

const (
	// KindDefaultPrompt is a built-in system prompt document.
	KindDefaultPrompt Kind = "default-prompt"

	// KindUserPrompt is a prompt authored by the user.
	KindUserPrompt Kind = "user-prompt"

	// KindRegulation is regulatory or policy reference text.
	KindRegulation Kind = "regulation"

	// KindUploadedFile is content taken from a user-supplied file.
	KindUploadedFile Kind = "uploaded-file"

	// KindBundle is content imported as part of a bundle.
	KindBundle Kind = "bundle"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindDefaultPrompt, KindUserPrompt, KindRegulation, KindUploadedFile, KindBundle:
		return true
	}
	return false
}

// ParseKind converts a string into a Kind, rejecting anything outside the
// closed set.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// IndexSettings carries per-document indexing knobs. A zero Settings struct
// means engine defaults for everything; in a non-zero struct, a zero
// ChunkSizeTokens or empty EmbeddingModel falls back individually while
// OverlapPercent is taken literally, so an explicit zero overlap survives.
type IndexSettings struct {
	ChunkSizeTokens int    `json:"chunk_size_tokens,omitempty"`
	OverlapPercent  int    `json:"overlap_percent,omitempty"`
	EmbeddingModel  string `json:"embedding_model,omitempty"`
}

// Document is a unit of indexable text, owned by the caller. The engine
// never mutates it; content is read only to chunk it and to resolve result
// text on demand.
type Document struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Kind      Kind              `json:"kind"`
	Content   string            `json:"content"`
	Settings  IndexSettings     `json:"settings,omitzero"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ChunkPosition is a half-open byte range [Start, End) into a document's
// content. Invariant: 0 <= Start < End <= len(content). Hard cuts never
// split a UTF-8 rune.
type ChunkPosition struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the span length in bytes.
func (p ChunkPosition) Len() int {
	return p.End - p.Start
}

// Slice extracts the chunk text from content. ok is false when the position
// no longer fits, which happens when content changed after indexing.
func (p ChunkPosition) Slice(content string) (string, bool) {
	if p.Start < 0 || p.End <= p.Start || p.End > len(content) {
		return "", false
	}
	return content[p.Start:p.End], true
}

// Chunk pairs a position with its text during indexing. The text is
// transient; only positions reach the store.
type Chunk struct {
	Text     string
	Position ChunkPosition
	Ordinal  int
}

// Vector is one embedded chunk. Embeddings from different models or
// dimensionalities must never be compared within one search.
type Vector struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	Ordinal    int           `json:"ordinal"`
	Total      int           `json:"total_in_document"`
	Position   ChunkPosition `json:"position"`
	Embedding  []float32     `json:"-"`
}

// IndexMeta records what an index was built with.
type IndexMeta struct {
	Model          string    `json:"model"`
	ChunkSize      int       `json:"chunk_size"`
	OverlapPercent int       `json:"overlap_percent"`
	IndexedAt      time.Time `json:"indexed_at"`
	EmbeddingCount int       `json:"embedding_count"`
	SkippedChunks  int       `json:"skipped_chunks"`
}

// DocumentIndex is the complete vector set for one document. It is replaced
// wholesale on re-index, never merged, and must not be mutated after being
// handed to the store.
type DocumentIndex struct {
	DocumentID string
	Generation uint64
	Vectors    []Vector
	Meta       IndexMeta
}

// SearchResult is one chunk selected by a search, with its text resolved
// from the source document at query time.
type SearchResult struct {
	DocumentID   string        `json:"document_id"`
	DocumentName string        `json:"document_name"`
	Kind         Kind          `json:"kind"`
	Ordinal      int           `json:"ordinal"`
	Position     ChunkPosition `json:"position"`
	Content      string        `json:"content"`
	Similarity   float64       `json:"similarity"`
	IsGapFiller  bool          `json:"is_gap_filler"`
	Tokens       int           `json:"tokens"`
}

// SearchResponse is the full answer to one search call. Variants lists the
// phrasings actually searched, original first. Candidates counts chunks that
// cleared the threshold before the result cap and token budget applied.
type SearchResponse struct {
	Query       string         `json:"query"`
	Variants    []string       `json:"variants"`
	Results     []SearchResult `json:"results"`
	Candidates  int            `json:"candidates"`
	TokenBudget int            `json:"token_budget"`
	Elapsed     time.Duration  `json:"elapsed"`
}

// QueryExpansion is the result of expanding one query. Generated fresh per
// search and never stored.
type QueryExpansion struct {
	Original   string
	Alternates []string
}

// IndexResult summarizes one indexing run. Superseded reports that a more
// recently started run for the same document won the store swap; the work
// was discarded but nothing is wrong.
type IndexResult struct {
	DocumentID    string        `json:"document_id"`
	Generation    uint64        `json:"generation"`
	ChunkCount    int           `json:"chunk_count"`
	VectorCount   int           `json:"vector_count"`
	SkippedChunks int           `json:"skipped_chunks"`
	Superseded    bool          `json:"superseded"`
	Elapsed       time.Duration `json:"elapsed"`
}

// IndexState is a document's position in the indexing lifecycle.
type IndexState string

const (
	// StateNotIndexed means no index exists and no job is in flight.
	StateNotIndexed IndexState = "not-indexed"

	// StateIndexing means a job is queued or running for the document.
	StateIndexing IndexState = "indexing"

	// StateIndexed means a current index is serving searches.
	StateIndexed IndexState = "indexed"
)

// Status describes one document's index. VectorCount, Generation and
// IndexedAt are meaningful only in StateIndexed.
type Status struct {
	DocumentID  string     `json:"document_id"`
	State       IndexState `json:"state"`
	VectorCount int        `json:"vector_count,omitempty"`
	Generation  uint64     `json:"generation,omitempty"`
	IndexedAt   time.Time  `json:"indexed_at,omitzero"`
}

// Stats is an engine-wide snapshot.
type Stats struct {
	Documents        int `json:"documents"`
	IndexedDocuments int `json:"indexed_documents"`
	Vectors          int `json:"vectors"`
	ActiveJobs       int `json:"active_jobs"`
}
