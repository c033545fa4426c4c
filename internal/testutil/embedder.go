package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/vesperhq/vesper/internal/config"
)

// GoogleAISetup contains the resources for tests that hit the real
// Gemini embedding API.
type GoogleAISetup struct {
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Logger   *slog.Logger
}

// SetupGoogleAI creates a Google AI embedder for integration tests.
//
// Requirements:
//   - GEMINI_API_KEY environment variable must be set
//   - Skips the test if the API key is not available
//
// Example:
//
//	func TestIndexing(t *testing.T) {
//	    setup := testutil.SetupGoogleAI(t)
//	    engine, err := knowledge.NewEngine(setup.Embedder, setup.Genkit, cfg, setup.Logger)
//	    ...
//	}
func SetupGoogleAI(tb testing.TB) *GoogleAISetup {
	tb.Helper()

	if os.Getenv("GEMINI_API_KEY") == "" {
		tb.Skip("GEMINI_API_KEY not set - skipping test requiring Google AI")
	}

	ctx := context.Background()
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))

	embedder := googlegenai.GoogleAIEmbedder(g, config.DefaultGeminiEmbedderModel)
	if embedder == nil {
		tb.Fatalf("GoogleAIEmbedder returned nil for model %q", config.DefaultGeminiEmbedderModel)
	}

	// Quiet logger for tests (warn and above only)
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))

	return &GoogleAISetup{
		Genkit:   g,
		Embedder: embedder,
		Logger:   logger,
	}
}
