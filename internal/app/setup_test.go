package app

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/vesperhq/vesper/internal/config"
	"github.com/vesperhq/vesper/internal/knowledge"
	"github.com/vesperhq/vesper/internal/testutil"
)

// baseConfig returns a Config the way Load would produce it, without
// touching viper or the filesystem.
func baseConfig(provider string) *config.Config {
	return &config.Config{
		Provider:      provider,
		ModelName:     "gemini-2.5-flash",
		EmbedderModel: "gemini-embedding-001",
		OllamaHost:    "http://localhost:11434",
		Knowledge: config.KnowledgeConfig{
			ChunkSizeTokens:     256,
			OverlapPercent:      15,
			BatchSize:           20,
			SimilarityThreshold: 0.3,
			MaxResults:          8,
			TokenBudget:         2048,
			ExpansionEnabled:    true,
			ExpansionCount:      3,
		},
	}
}

// ============================================================================
// engineConfig Tests
// ============================================================================

func TestEngineConfig_Mapping(t *testing.T) {
	cfg := baseConfig(config.ProviderGemini)
	cfg.Knowledge.ChunkSizeTokens = 512
	cfg.Knowledge.OverlapPercent = 20
	cfg.Knowledge.BatchSize = 10
	cfg.Knowledge.EmbeddingDimensions = 768
	cfg.Knowledge.SimilarityThreshold = 0.42
	cfg.Knowledge.MaxResults = 5
	cfg.Knowledge.TokenBudget = 4096
	cfg.Knowledge.ExpansionModel = "gemini-2.5-flash-lite"
	cfg.Knowledge.ExpansionCount = 2

	got := engineConfig(cfg)

	if got.Chunking.SizeTokens != 512 {
		t.Errorf("SizeTokens = %d, want 512", got.Chunking.SizeTokens)
	}
	if got.Chunking.OverlapPercent != 20 {
		t.Errorf("OverlapPercent = %d, want 20", got.Chunking.OverlapPercent)
	}
	if got.Embedding.Model != "gemini-embedding-001" {
		t.Errorf("Embedding.Model = %q, want unqualified name", got.Embedding.Model)
	}
	if got.Embedding.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", got.Embedding.BatchSize)
	}
	if got.Embedding.Dimensions != 768 {
		t.Errorf("Dimensions = %d, want 768", got.Embedding.Dimensions)
	}
	if !got.Expansion.Enabled {
		t.Error("Expansion.Enabled should carry over")
	}
	if got.Expansion.Model != "googleai/gemini-2.5-flash-lite" {
		t.Errorf("Expansion.Model = %q, want provider-qualified override", got.Expansion.Model)
	}
	if got.Expansion.Count != 2 {
		t.Errorf("Expansion.Count = %d, want 2", got.Expansion.Count)
	}
	if got.Retrieval.SimilarityThreshold != 0.42 {
		t.Errorf("SimilarityThreshold = %v, want 0.42", got.Retrieval.SimilarityThreshold)
	}
	if got.Retrieval.MaxResults != 5 {
		t.Errorf("MaxResults = %d, want 5", got.Retrieval.MaxResults)
	}
	if got.Retrieval.TokenBudget != 4096 {
		t.Errorf("TokenBudget = %d, want 4096", got.Retrieval.TokenBudget)
	}
}

func TestEngineConfig_ExpansionModelFallsBackToChatModel(t *testing.T) {
	cfg := baseConfig(config.ProviderGemini)
	cfg.Knowledge.ExpansionModel = ""

	got := engineConfig(cfg)

	if got.Expansion.Model != "googleai/gemini-2.5-flash" {
		t.Errorf("Expansion.Model = %q, want chat model fallback", got.Expansion.Model)
	}
}

func TestEngineConfig_OllamaQualification(t *testing.T) {
	cfg := baseConfig(config.ProviderOllama)
	cfg.ModelName = "llama3.3"
	cfg.EmbedderModel = "nomic-embed-text"

	got := engineConfig(cfg)

	if got.Expansion.Model != "ollama/llama3.3" {
		t.Errorf("Expansion.Model = %q, want ollama-qualified", got.Expansion.Model)
	}
	if got.Embedding.Model != "nomic-embed-text" {
		t.Errorf("Embedding.Model = %q, want raw model name", got.Embedding.Model)
	}
}

// ============================================================================
// provideEngine Tests
// ============================================================================

func TestProvideEngine(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	embedder := testutil.NewMockEmbedder(8).RegisterEmbedder(g)

	engine, err := provideEngine(embedder, g, baseConfig(config.ProviderGemini))
	if err != nil {
		t.Fatalf("provideEngine() error: %v", err)
	}
	if engine == nil {
		t.Fatal("expected non-nil engine")
	}
}

func TestProvideEngine_ExpansionNeedsGenkit(t *testing.T) {
	embedder := testutil.NewMockEmbedder(8).RegisterEmbedder(genkit.Init(context.Background()))

	cfg := baseConfig(config.ProviderGemini)
	cfg.Knowledge.ExpansionEnabled = true

	// Enabled expansion must reach the engine: with no Genkit instance the
	// constructor has to reject it.
	_, err := provideEngine(embedder, nil, cfg)
	if !errors.Is(err, knowledge.ErrNilGenkit) {
		t.Fatalf("provideEngine() error = %v, want ErrNilGenkit", err)
	}

	cfg.Knowledge.ExpansionEnabled = false
	engine, err := provideEngine(embedder, nil, cfg)
	if err != nil {
		t.Fatalf("provideEngine() without expansion: %v", err)
	}
	if engine == nil {
		t.Fatal("expected non-nil engine")
	}
}

// ============================================================================
// provideOtelShutdown Tests
// ============================================================================

func TestProvideOtelShutdown(t *testing.T) {
	cfg := baseConfig(config.ProviderGemini)
	cfg.Datadog = config.DatadogConfig{
		AgentHost:   "localhost:4318",
		Environment: "test",
		ServiceName: "vesper-app-test",
	}

	cleanup := provideOtelShutdown(context.Background(), cfg)
	if cleanup == nil {
		t.Fatal("expected non-nil cleanup")
	}

	// Flushes into an absent agent; must return without error or panic.
	cleanup()
}

// ============================================================================
// Setup Tests (require live provider credentials)
// ============================================================================

func TestSetup_Gemini(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	ctx := context.Background()
	a, err := Setup(ctx, baseConfig(config.ProviderGemini))
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			t.Errorf("Close() error: %v", err)
		}
	}()

	if a.Genkit == nil {
		t.Error("expected Genkit to be set")
	}
	if a.Embedder == nil {
		t.Error("expected Embedder to be set")
	}
	if a.Engine == nil {
		t.Error("expected Engine to be set")
	}
}
