package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vesperhq/vesper/internal/knowledge"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Engine      *knowledge.Engine // Required
	CORSOrigins []string          // Origins allowed to call the API from a browser
	IsDev       bool              // Disables HSTS for plain-HTTP development
	TrustProxy  bool              // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst   int               // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server over one knowledge engine.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates an API server with all routes configured. ctx is the
// server lifetime: background index jobs started by the document endpoints
// run on it and stop when it is canceled.
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("knowledge engine is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dh := &documentHandler{engine: cfg.Engine, logger: logger, base: ctx}
	sh := &searchHandler{engine: cfg.Engine, logger: logger}
	st := &statsHandler{engine: cfg.Engine, logger: logger}

	mux := http.NewServeMux()

	// Documents
	mux.HandleFunc("POST /api/v1/documents", dh.create)
	mux.HandleFunc("GET /api/v1/documents", dh.list)
	mux.HandleFunc("GET /api/v1/documents/{id}", dh.get)
	mux.HandleFunc("GET /api/v1/documents/{id}/status", dh.status)
	mux.HandleFunc("POST /api/v1/documents/{id}/reindex", dh.reindex)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", dh.remove)

	// Search
	mux.HandleFunc("POST /api/v1/search", sh.search)

	// Stats
	mux.HandleFunc("GET /api/v1/stats", st.get)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Wrap with security headers
	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Use a top-level mux to separate health probes from middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Engine, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
