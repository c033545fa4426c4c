// Package app provides application initialization and shared wiring.
//
// Setup builds the container every entry point starts from: Genkit with the
// configured AI provider plugin, the provider's embedder, and the knowledge
// engine. The CLI commands, the HTTP API server, and the MCP server all call
// Setup and differ only in the surface they put in front of App.Engine.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/vesperhq/vesper/internal/config"
	"github.com/vesperhq/vesper/internal/knowledge"
)

// App is the core application container.
type App struct {
	Config   *config.Config
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Engine   *knowledge.Engine

	otelCleanup func()
}

// Close releases application resources and flushes pending trace spans.
// Safe to call on a partially initialized App.
func (a *App) Close() error {
	slog.Info("shutting down application")

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
