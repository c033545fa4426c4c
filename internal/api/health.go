package api

import (
	"log/slog"
	"net/http"

	"github.com/vesperhq/vesper/internal/knowledge"
)

// health is the liveness probe. It sits outside the middleware chain so
// orchestrator checks stay cheap and unthrottled.
func health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}, nil)
}

// readiness reports whether the engine behind the server is answering,
// with a small stats snapshot for operators. The engine is in-memory, so
// readiness never degrades once the server is up.
func readiness(engine *knowledge.Engine, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		stats := engine.Stats()
		WriteJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"documents":   stats.Documents,
			"indexed":     stats.IndexedDocuments,
			"vectors":     stats.Vectors,
			"active_jobs": stats.ActiveJobs,
		}, logger)
	})
}
