package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/firebase/genkit/go/genkit"

	"github.com/vesperhq/vesper/internal/knowledge"
)

// EngineSetup bundles a fully wired in-memory retrieval engine with the
// mocks behind it: a deterministic embedder and a scripted rewrite model.
type EngineSetup struct {
	Engine   *knowledge.Engine
	Embedder *MockEmbedder
	LLM      *MockLLM
	Genkit   *genkit.Genkit
}

// SetupEngine creates a retrieval engine backed by MockEmbedder, with query
// expansion disabled for determinism.
//
// Example:
//
//	setup := testutil.SetupEngine(t)
//	setup.Engine.Index(ctx, knowledge.Document{...})
//	resp, err := setup.Engine.Search(ctx, "query")
//
// Unrelated texts hash to near-orthogonal 768-dim vectors, so only content
// pinned with setup.Embedder.SetVector (or the exact same text) clears the
// similarity threshold reliably.
func SetupEngine(tb testing.TB) *EngineSetup {
	tb.Helper()
	return setupEngine(tb, false)
}

// SetupEngineWithExpansion creates a retrieval engine whose query expansion
// runs through the returned MockLLM. Script rewrites with AddResponse using
// a numbered list, e.g. "1. alternate phrasing".
func SetupEngineWithExpansion(tb testing.TB) *EngineSetup {
	tb.Helper()
	return setupEngine(tb, true)
}

func setupEngine(tb testing.TB, expansion bool) *EngineSetup {
	tb.Helper()

	g := genkit.Init(context.Background())
	llm := NewMockLLM("no rewrites")
	llm.RegisterModel(g)
	mock := NewMockEmbedder(768)
	embedder := mock.RegisterEmbedder(g)

	cfg := knowledge.EngineConfig{
		Embedding: knowledge.EmbeddingConfig{
			Model:             "mock/test-embedder",
			Timeout:           5 * time.Second,
			RequestsPerSecond: 1000,
			Burst:             1000,
			// A positive interval keeps the zero retry count from being
			// replaced with the package default.
			Retry: knowledge.RetryConfig{
				InitialInterval: time.Millisecond,
				MaxInterval:     time.Millisecond,
			},
		},
		Expansion: knowledge.ExpansionConfig{
			Enabled: expansion,
			Model:   "mock/test-model",
			Timeout: 5 * time.Second,
		},
	}

	engine, err := knowledge.NewEngine(embedder, g, cfg, DiscardLogger())
	if err != nil {
		tb.Fatalf("building engine: %v", err)
	}

	return &EngineSetup{
		Engine:   engine,
		Embedder: mock,
		LLM:      llm,
		Genkit:   g,
	}
}
