package config

import (
	"fmt"
	"os"
	"slices"
)

// validProviders is the closed set of supported AI providers.
var validProviders = []string{ProviderGemini, ProviderOllama, ProviderOpenAI}

// Validate validates configuration values.
// Checks run fail-fast in dependency order and return sentinel errors
// checkable with errors.Is(). Credential presence is verified here, before
// any component could issue a network call.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider membership
	if !slices.Contains(validProviders, c.Provider) {
		return fmt.Errorf("%w: %q is not one of %v", ErrInvalidProvider, c.Provider, validProviders)
	}

	// 2. Provider credentials. Genkit plugins read these directly from the
	// environment; failing here keeps a misconfigured process from ever
	// reaching the network.
	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required",
				ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
		}
	}

	// 3. Model configuration
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// 4. Knowledge engine tuning
	k := c.Knowledge

	if k.ChunkSizeTokens < 16 || k.ChunkSizeTokens > 2048 {
		return fmt.Errorf("%w: chunk_size_tokens must be between 16 and 2048, got %d",
			ErrInvalidChunkSize, k.ChunkSizeTokens)
	}

	// Overlap of 100% or more would keep the chunk cursor from advancing.
	if k.OverlapPercent < 0 || k.OverlapPercent >= 100 {
		return fmt.Errorf("%w: overlap_percent must be between 0 and 99, got %d",
			ErrInvalidOverlap, k.OverlapPercent)
	}

	if k.BatchSize < 1 || k.BatchSize > 100 {
		return fmt.Errorf("%w: batch_size must be between 1 and 100, got %d",
			ErrInvalidBatchSize, k.BatchSize)
	}

	// Zero means native dimensionality; Gemini accepts 128..3072.
	if k.EmbeddingDimensions != 0 && (k.EmbeddingDimensions < 128 || k.EmbeddingDimensions > 3072) {
		return fmt.Errorf("%w: embedding_dimensions must be 0 or between 128 and 3072, got %d",
			ErrInvalidDimensions, k.EmbeddingDimensions)
	}

	if k.SimilarityThreshold < 0.0 || k.SimilarityThreshold > 1.0 {
		return fmt.Errorf("%w: similarity_threshold must be between 0.0 and 1.0, got %.2f",
			ErrInvalidThreshold, k.SimilarityThreshold)
	}

	if k.MaxResults < 1 || k.MaxResults > 50 {
		return fmt.Errorf("%w: max_results must be between 1 and 50, got %d",
			ErrInvalidMaxResults, k.MaxResults)
	}

	if k.TokenBudget < 64 || k.TokenBudget > 1_000_000 {
		return fmt.Errorf("%w: token_budget must be between 64 and 1,000,000, got %d",
			ErrInvalidTokenBudget, k.TokenBudget)
	}

	if k.ExpansionCount < 0 || k.ExpansionCount > 8 {
		return fmt.Errorf("%w: expansion_count must be between 0 and 8, got %d",
			ErrInvalidExpansionCount, k.ExpansionCount)
	}

	// 5. Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d",
			ErrInvalidServerPort, c.Server.Port)
	}

	return nil
}
