// Package knowledge implements the document indexing and semantic retrieval
// engine.
//
// The package turns caller-owned text documents into searchable in-memory
// vector indexes and answers semantic queries against them. Everything is
// volatile: nothing survives a process restart, and persistence is explicitly
// someone else's concern.
//
// # Overview
//
// The engine is assembled from small components, each usable on its own:
//
//   - Chunker: splits document text into overlapping position ranges
//   - EmbeddingClient: batches text into an external embedding model
//   - VectorStore: concurrent map of document id to its vector index
//   - Registry: the documents themselves, used to resolve chunk text
//   - QueryExpander: rewrites a query into alternate phrasings
//   - Retriever: similarity ranking, gap-filling, token budgeting
//   - Engine: orchestrates the index and search pipelines
//
// # Data Flow
//
// Index path:
//
//	Document
//	     |
//	     v
//	Chunker (position ranges, sentence-boundary snapping)
//	     |
//	     v
//	EmbeddingClient (batched, per-item fallback on batch failure)
//	     |
//	     v
//	VectorStore (atomic wholesale swap, generation-guarded)
//
// Search path:
//
//	Query
//	     |
//	     v
//	QueryExpander (optional alternate phrasings)
//	     |
//	     v
//	EmbeddingClient (embed every variant)
//	     |
//	     v
//	Retriever (cosine ranking over VectorStore, threshold,
//	           gap-fillers, token budget)
//	     |
//	     v
//	SearchResults (text resolved from Registry at this moment)
//
// # Positions, Not Text
//
// Vectors store only byte positions into their document's content. Chunk text
// is resolved from the Registry at result-assembly time, never cached next to
// the vector, so there is exactly one copy of every document's content.
//
// # Generations
//
// Every write to the VectorStore carries a monotonically increasing
// generation number assigned when the operation starts. A write whose
// generation is older than what the store already holds is discarded and
// logged. Re-indexing a document while a previous job is still in flight
// therefore converges on the most recently started job's result, without
// cancelling anything.
//
// # Concurrency
//
// The Engine runs at most a configured number of indexing jobs at a time
// (one by default); extra jobs queue. Searches run concurrently with each
// other and with in-flight indexing. The VectorStore is the only shared
// mutable state and is safe for concurrent use; readers never observe a
// partially written index.
//
// # Example
//
//	eng, err := knowledge.NewEngine(embedder, g, knowledge.DefaultEngineConfig(), logger)
//	if err != nil {
//	    return err
//	}
//
//	res, err := eng.Index(ctx, knowledge.Document{
//	    ID:      "policy-7",
//	    Name:    "Refund policy",
//	    Kind:    knowledge.KindRegulation,
//	    Content: policyText,
//	})
//	if err != nil {
//	    return err
//	}
//	logger.Info("indexed", "vectors", res.VectorCount, "skipped", res.SkippedChunks)
//
//	resp, err := eng.Search(ctx, "when can an order be refunded?",
//	    knowledge.WithMaxResults(5),
//	    knowledge.WithKinds(knowledge.KindRegulation))
//	for _, r := range resp.Results {
//	    println(r.DocumentID, r.Similarity, r.Content)
//	}
//
// # Error Model
//
// Construction-time problems (nil embedder, expansion without a model
// runtime) are configuration errors and fail fast. Invalid documents and
// chunk settings are rejected before any network call. A failed embedding
// batch degrades to one request per text; texts that still fail are skipped
// and counted, never aborting the whole indexing run. An empty search result
// is a legitimate answer, not an error.
package knowledge
