package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/vesperhq/vesper/internal/config"
	"github.com/vesperhq/vesper/internal/knowledge"
	"github.com/vesperhq/vesper/internal/observability"
)

// otelShutdownTimeout bounds the final span flush in Close.
const otelShutdownTimeout = 5 * time.Second

// Setup creates and initializes the application.
// The returned App owns the cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	a := &App{Config: cfg}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				slog.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg)

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	engine, err := provideEngine(embedder, g, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge engine: %w", err)
	}
	a.Engine = engine

	return a, nil
}

// provideOtelShutdown sets up Datadog tracing before Genkit initialization.
// Must run before provideGenkit so the TracerProvider has its exporter when
// the first span starts. The returned cleanup flushes with a bounded context.
func provideOtelShutdown(ctx context.Context, cfg *config.Config) func() {
	shutdown, err := observability.SetupDatadog(ctx, observability.Config{
		AgentHost:   cfg.Datadog.AgentHost,
		Environment: cfg.Datadog.Environment,
		ServiceName: cfg.Datadog.ServiceName,
	})
	if err != nil {
		slog.Warn("datadog setup failed, tracing disabled", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
// Supports gemini (default), ollama, and openai providers.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	var g *genkit.Genkit

	switch provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		// Query expansion may use a different model than the default
		if em := cfg.Knowledge.ExpansionModel; em != "" && em != cfg.ModelName && !strings.Contains(em, "/") {
			ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
				Name: em,
				Type: "chat",
			}, nil)
		}
		// Register embedder for indexing and search
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		slog.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		slog.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // "gemini"
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		slog.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the AI provider plugin.
// Each provider registers embedders differently:
//   - gemini: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	switch provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default: // "gemini"
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideEngine builds the knowledge engine from the config knobs.
func provideEngine(embedder ai.Embedder, g *genkit.Genkit, cfg *config.Config) (*knowledge.Engine, error) {
	return knowledge.NewEngine(embedder, g, engineConfig(cfg), slog.Default())
}

// engineConfig maps config knobs onto the engine's sub-configs. Fields the
// config does not expose (timeouts, rate limits, retry) stay zero and take
// the engine's own defaults. The embedder model stays unqualified because it
// names vectors in index metadata, not a Genkit lookup; the expansion model
// is a Genkit lookup and gets the provider-qualified form.
func engineConfig(cfg *config.Config) knowledge.EngineConfig {
	k := cfg.Knowledge
	return knowledge.EngineConfig{
		Chunking: knowledge.ChunkingConfig{
			SizeTokens:     k.ChunkSizeTokens,
			OverlapPercent: k.OverlapPercent,
		},
		Embedding: knowledge.EmbeddingConfig{
			Model:      cfg.EmbedderModel,
			BatchSize:  k.BatchSize,
			Dimensions: k.EmbeddingDimensions,
		},
		Expansion: knowledge.ExpansionConfig{
			Enabled: k.ExpansionEnabled,
			Model:   cfg.ExpansionModelName(),
			Count:   k.ExpansionCount,
		},
		Retrieval: knowledge.RetrievalConfig{
			SimilarityThreshold: k.SimilarityThreshold,
			MaxResults:          k.MaxResults,
			TokenBudget:         k.TokenBudget,
		},
	}
}
