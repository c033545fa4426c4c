package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
)

// EngineConfig assembles the sub-configs for one engine. Zero sub-configs
// take package defaults; see each type for its own defaulting rules.
type EngineConfig struct {
	Chunking  ChunkingConfig
	Embedding EmbeddingConfig
	Expansion ExpansionConfig
	Retrieval RetrievalConfig

	// IndexConcurrency bounds how many indexing jobs run at once. Jobs
	// past the limit wait for a slot. Defaults to 1, which also bounds
	// peak embedding memory to one batch.
	IndexConcurrency int
}

// DefaultEngineConfig returns the configuration the engine runs with when
// given a zero EngineConfig, with expansion enabled.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Chunking: ChunkingConfig{
			SizeTokens:     DefaultChunkSizeTokens,
			OverlapPercent: DefaultOverlapPercent,
		},
		Embedding: EmbeddingConfig{
			BatchSize:         DefaultBatchSize,
			Timeout:           DefaultEmbedTimeout,
			RequestsPerSecond: DefaultEmbedRequestsPerSecond,
			Burst:             DefaultEmbedBurst,
			Retry:             DefaultRetryConfig(),
		},
		Expansion: ExpansionConfig{
			Enabled: true,
			Count:   DefaultExpansionCount,
			Timeout: DefaultExpansionTimeout,
		},
		Retrieval: RetrievalConfig{
			SimilarityThreshold: DefaultSimilarityThreshold,
			MaxResults:          DefaultMaxResults,
			TokenBudget:         DefaultTokenBudget,
		},
		IndexConcurrency: DefaultIndexConcurrency,
	}
}

// withDefaults resolves zero fields. A zero Chunking or Retrieval struct
// takes the full default; in partially filled structs only the fields where
// zero is useless are defaulted, so explicit zero overlap and zero threshold
// survive.
func (c EngineConfig) withDefaults() EngineConfig {
	if c.Chunking == (ChunkingConfig{}) {
		c.Chunking = ChunkingConfig{
			SizeTokens:     DefaultChunkSizeTokens,
			OverlapPercent: DefaultOverlapPercent,
		}
	} else if c.Chunking.SizeTokens <= 0 {
		c.Chunking.SizeTokens = DefaultChunkSizeTokens
	}

	if c.Retrieval == (RetrievalConfig{}) {
		c.Retrieval = RetrievalConfig{
			SimilarityThreshold: DefaultSimilarityThreshold,
			MaxResults:          DefaultMaxResults,
			TokenBudget:         DefaultTokenBudget,
		}
	} else {
		if c.Retrieval.MaxResults <= 0 {
			c.Retrieval.MaxResults = DefaultMaxResults
		}
		if c.Retrieval.TokenBudget <= 0 {
			c.Retrieval.TokenBudget = DefaultTokenBudget
		}
	}

	if c.IndexConcurrency < 1 {
		c.IndexConcurrency = DefaultIndexConcurrency
	}
	return c
}

// Engine ties chunking, embedding, storage, expansion and retrieval into the
// knowledge API the rest of the application talks to. All state is in
// memory; see the package documentation for the volatility contract.
type Engine struct {
	cfg       EngineConfig
	registry  *Registry
	store     *VectorStore
	embedding *EmbeddingClient
	expander  *QueryExpander
	retriever *Retriever
	logger    *slog.Logger

	mu         sync.Mutex
	generation uint64
	active     map[string]int

	slots chan struct{}
}

// NewEngine creates an engine around embedder. g is only needed when query
// expansion is enabled; pass nil otherwise.
func NewEngine(embedder ai.Embedder, g *genkit.Genkit, cfg EngineConfig, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	// Surface a bad chunking config at startup rather than on the first
	// Index call.
	if _, err := NewChunker(cfg.Chunking); err != nil {
		return nil, err
	}

	client, err := NewEmbeddingClient(embedder, cfg.Embedding, logger)
	if err != nil {
		return nil, err
	}

	var expander *QueryExpander
	if cfg.Expansion.Enabled {
		if g == nil {
			return nil, ErrNilGenkit
		}
		expander = NewQueryExpander(g, cfg.Expansion, logger)
	}

	registry := NewRegistry()
	store := NewVectorStore()

	return &Engine{
		cfg:       cfg,
		registry:  registry,
		store:     store,
		embedding: client,
		expander:  expander,
		retriever: NewRetriever(store, registry, logger),
		logger:    logger,
		active:    make(map[string]int),
		slots:     make(chan struct{}, cfg.IndexConcurrency),
	}, nil
}

// Register validates doc and adds it to the registry without building an
// index. Index registers on its own; Register exists so a document becomes
// visible to Documents, Document and Status before its first index job
// runs. The returned copy has CreatedAt and Settings resolved.
func (e *Engine) Register(doc Document) (Document, error) {
	if err := e.validateDocument(doc); err != nil {
		return Document{}, err
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	doc.Settings = e.resolveSettings(doc.Settings)
	e.registry.Register(doc)
	return doc, nil
}

// Index registers doc and builds its vector index, replacing any previous
// index wholesale. The call blocks until the job finishes; run it in a
// goroutine for fire-and-forget behavior and watch Status for completion.
//
// When two jobs for the same document overlap, the one that started later
// wins regardless of finish order; the loser's result reports Superseded.
// A failed job leaves the previous index serving.
func (e *Engine) Index(ctx context.Context, doc Document, opts ...IndexOption) (*IndexResult, error) {
	start := time.Now()
	cfg := buildIndexConfig(opts)

	if err := e.validateDocument(doc); err != nil {
		return nil, err
	}
	settings := e.resolveSettings(doc.Settings)
	chunker, err := NewChunker(ChunkingConfig{
		SizeTokens:     settings.ChunkSizeTokens,
		OverlapPercent: settings.OverlapPercent,
	})
	if err != nil {
		return nil, err
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	doc.Settings = settings
	e.registry.Register(doc)

	// The generation is claimed before waiting for a slot so that
	// start order, not slot order, decides which overlapping job wins.
	gen := e.begin(doc.ID)
	defer e.finish(doc.ID)

	cfg.report(0, "queued")
	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-e.slots }()

	cfg.report(5, "chunking")
	chunks := chunker.Split(doc.Content)
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	batchSize := e.embedding.BatchSize()
	embeddings := make([][]float32, 0, len(texts))
	skipped := 0
	for batchStart := 0; batchStart < len(texts); batchStart += batchSize {
		batchEnd := min(batchStart+batchSize, len(texts))
		vectors, skip, err := e.embedding.EmbedAll(ctx, texts[batchStart:batchEnd])
		if err != nil {
			return nil, fmt.Errorf("indexing %s: %w", doc.ID, err)
		}
		embeddings = append(embeddings, vectors...)
		skipped += skip
		cfg.report(10+80*batchEnd/len(texts), fmt.Sprintf("embedded %d/%d chunks", batchEnd, len(texts)))
	}

	vectors := make([]Vector, 0, len(chunks))
	for i, chunk := range chunks {
		if embeddings[i] == nil {
			continue
		}
		vectors = append(vectors, Vector{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Ordinal:    chunk.Ordinal,
			Total:      len(chunks),
			Position:   chunk.Position,
			Embedding:  embeddings[i],
		})
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("indexing %s: %w", doc.ID, ErrNoVectors)
	}

	installed := e.store.Put(DocumentIndex{
		DocumentID: doc.ID,
		Generation: gen,
		Vectors:    vectors,
		Meta: IndexMeta{
			Model:          settings.EmbeddingModel,
			ChunkSize:      settings.ChunkSizeTokens,
			OverlapPercent: settings.OverlapPercent,
			IndexedAt:      time.Now(),
			EmbeddingCount: len(vectors),
			SkippedChunks:  skipped,
		},
	})

	result := &IndexResult{
		DocumentID:    doc.ID,
		Generation:    gen,
		ChunkCount:    len(chunks),
		VectorCount:   len(vectors),
		SkippedChunks: skipped,
		Superseded:    !installed,
		Elapsed:       time.Since(start),
	}

	if installed {
		cfg.report(100, "done")
		e.logger.Info("document indexed",
			"document_id", doc.ID,
			"chunks", len(chunks),
			"vectors", len(vectors),
			"skipped", skipped,
			"generation", gen,
			"elapsed", result.Elapsed,
		)
	} else {
		cfg.report(100, "superseded")
		e.logger.Warn("stale index write discarded",
			"document_id", doc.ID,
			"generation", gen,
		)
	}
	return result, nil
}

// Search embeds the query, optionally expands it into alternate phrasings,
// and retrieves the best matching chunks across the indexed documents in
// scope.
func (e *Engine) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	cfg := buildSearchConfig(searchConfig{
		maxResults:  e.cfg.Retrieval.MaxResults,
		tokenBudget: e.cfg.Retrieval.TokenBudget,
		threshold:   e.cfg.Retrieval.SimilarityThreshold,
		expansion:   e.expander != nil,
		gapFill:     !e.cfg.Retrieval.DisableGapFill,
	}, opts)

	variants := []string{query}
	if cfg.expansion && e.expander != nil {
		expansion := e.expander.Expand(ctx, query)
		variants = append(variants, expansion.Alternates...)
	}

	embeddings, _, err := e.embedding.EmbedAll(ctx, variants)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	if len(embeddings) == 0 || embeddings[0] == nil {
		return nil, fmt.Errorf("searching: %w", ErrQueryEmbedding)
	}

	// An alternate whose embedding failed is dropped; the search runs on
	// whatever variants survived. The original is index 0 and verified
	// above.
	queries := make([][]float32, 0, len(embeddings))
	searched := make([]string, 0, len(variants))
	for i, emb := range embeddings {
		if emb == nil {
			e.logger.Debug("dropping query variant without embedding", "variant", variants[i])
			continue
		}
		queries = append(queries, emb)
		searched = append(searched, variants[i])
	}

	results, candidates := e.retriever.Retrieve(RetrieveParams{
		Queries:     queries,
		Model:       e.embedding.Model(),
		Scope:       cfg.scope,
		Kinds:       cfg.kinds,
		MaxResults:  cfg.maxResults,
		TokenBudget: cfg.tokenBudget,
		Threshold:   cfg.threshold,
		GapFill:     cfg.gapFill,
	})

	resp := &SearchResponse{
		Query:       query,
		Variants:    searched,
		Results:     results,
		Candidates:  candidates,
		TokenBudget: cfg.tokenBudget,
		Elapsed:     time.Since(start),
	}
	e.logger.Debug("search complete",
		"query", query,
		"variants", len(searched),
		"candidates", candidates,
		"results", len(results),
		"elapsed", resp.Elapsed,
	)
	return resp, nil
}

// Status reports where docID stands in the indexing lifecycle. An in-flight
// job takes precedence over an existing index, so re-indexing shows
// indexing, not indexed.
func (e *Engine) Status(docID string) Status {
	e.mu.Lock()
	indexing := e.active[docID] > 0
	e.mu.Unlock()

	if indexing {
		return Status{DocumentID: docID, State: StateIndexing}
	}
	if idx, ok := e.store.Get(docID); ok {
		return Status{
			DocumentID:  docID,
			State:       StateIndexed,
			VectorCount: len(idx.Vectors),
			Generation:  idx.Generation,
			IndexedAt:   idx.Meta.IndexedAt,
		}
	}
	return Status{DocumentID: docID, State: StateNotIndexed}
}

// Remove drops the document's index. The document itself stays registered
// and can be re-indexed; use Unregister to drop both. In-flight jobs that
// started before the removal cannot resurrect the index.
func (e *Engine) Remove(docID string) bool {
	gen := e.nextGeneration()
	removed := e.store.Remove(docID, gen)
	if removed {
		e.logger.Info("index removed", "document_id", docID)
	}
	return removed
}

// Unregister removes the document and its index.
func (e *Engine) Unregister(docID string) bool {
	existed := e.registry.Remove(docID)
	e.Remove(docID)
	if existed {
		e.logger.Info("document unregistered", "document_id", docID)
	}
	return existed
}

// Document returns a registered document by ID.
func (e *Engine) Document(id string) (Document, bool) {
	return e.registry.Get(id)
}

// Documents lists all registered documents, newest first.
func (e *Engine) Documents() []Document {
	return e.registry.List()
}

// Stats returns an engine-wide snapshot.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	active := 0
	for _, n := range e.active {
		active += n
	}
	e.mu.Unlock()

	return Stats{
		Documents:        e.registry.Count(),
		IndexedDocuments: e.store.Count(),
		Vectors:          e.store.VectorCount(),
		ActiveJobs:       active,
	}
}

// validateDocument applies the index-time input checks.
func (e *Engine) validateDocument(doc Document) error {
	if strings.TrimSpace(doc.ID) == "" {
		return ErrEmptyDocumentID
	}
	if !doc.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, doc.Kind)
	}
	if strings.TrimSpace(doc.Content) == "" {
		return ErrEmptyContent
	}
	if doc.Settings.EmbeddingModel != "" && e.embedding.Model() != "" &&
		doc.Settings.EmbeddingModel != e.embedding.Model() {
		return fmt.Errorf("%w: document wants %q, engine embeds with %q",
			ErrModelMismatch, doc.Settings.EmbeddingModel, e.embedding.Model())
	}
	return nil
}

// resolveSettings fills a document's index settings from engine defaults. A
// zero struct takes every default; in a partially filled struct only zero
// chunk size and empty model fall back, so an explicit zero overlap
// survives.
func (e *Engine) resolveSettings(s IndexSettings) IndexSettings {
	if s == (IndexSettings{}) {
		return IndexSettings{
			ChunkSizeTokens: e.cfg.Chunking.SizeTokens,
			OverlapPercent:  e.cfg.Chunking.OverlapPercent,
			EmbeddingModel:  e.embedding.Model(),
		}
	}
	if s.ChunkSizeTokens <= 0 {
		s.ChunkSizeTokens = e.cfg.Chunking.SizeTokens
	}
	if s.EmbeddingModel == "" {
		s.EmbeddingModel = e.embedding.Model()
	}
	return s
}

// begin claims a generation for an indexing job and marks the document
// active.
func (e *Engine) begin(docID string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	e.active[docID]++
	return e.generation
}

// finish clears the active mark taken by begin.
func (e *Engine) finish(docID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active[docID]--
	if e.active[docID] <= 0 {
		delete(e.active, docID)
	}
}

// nextGeneration claims a generation without marking any document active.
func (e *Engine) nextGeneration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}
