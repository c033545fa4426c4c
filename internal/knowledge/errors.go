package knowledge

import (
	"errors"
	"fmt"
)

// Configuration errors. These surface from constructors and are fatal: the
// engine cannot run without a real embedder, and expansion cannot run
// without a model runtime.
var (
	// ErrNilEmbedder indicates the engine was built without an embedder.
	ErrNilEmbedder = errors.New("nil embedder")

	// ErrNilGenkit indicates query expansion is enabled but no Genkit
	// instance was provided to run the expansion model.
	ErrNilGenkit = errors.New("query expansion enabled without a genkit instance")
)

// Validation errors. All are raised before any network call.
var (
	// ErrEmptyDocumentID indicates a document without an id.
	ErrEmptyDocumentID = errors.New("empty document id")

	// ErrInvalidKind indicates a document kind outside the closed set.
	ErrInvalidKind = errors.New("invalid document kind")

	// ErrEmptyContent indicates empty or whitespace-only document content.
	ErrEmptyContent = errors.New("empty document content")

	// ErrModelMismatch indicates a document requesting a different embedding
	// model than the engine's client is configured with.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrInvalidChunkSize indicates a chunk size below one token.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidOverlap indicates an overlap percentage outside [0, 100).
	// At 100% or more the chunk cursor would never advance.
	ErrInvalidOverlap = errors.New("invalid overlap percent")

	// ErrEmptyQuery indicates an empty or whitespace-only search query.
	ErrEmptyQuery = errors.New("empty query")
)

// Runtime errors.
var (
	// ErrNoVectors indicates every chunk of a document failed to embed, so
	// there is nothing to store. Partial coverage is not an error.
	ErrNoVectors = errors.New("no vectors produced")

	// ErrQueryEmbedding indicates the original query could not be embedded.
	// Alternate phrasings are droppable; the original is not.
	ErrQueryEmbedding = errors.New("query embedding failed")

	// ErrEmptyEmbedding indicates the embedding endpoint returned a
	// zero-length vector. Treated as a failed item, never stored.
	ErrEmptyEmbedding = errors.New("empty embedding returned")
)

// BatchError reports a whole embedding batch that failed. The embedding
// client recovers from it by retrying each text individually; it reaches
// callers only through logs and error chains.
type BatchError struct {
	Size int   // number of texts in the failed batch
	Err  error // underlying cause
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("embedding batch of %d failed: %v", e.Size, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
