// Package api provides the JSON REST API over the knowledge engine.
//
// # Architecture
//
// Routing uses Go 1.22+ method-qualified ServeMux patterns behind a
// layered middleware stack:
//
//	Recovery → RequestID → Logging → CORS → RateLimit → Routes
//
// Health probes (/health, /ready) bypass the middleware stack via a
// top-level mux, ensuring they remain fast and unthrottled.
//
// # Endpoints
//
// Health probes (no middleware):
//   - GET /health — liveness, returns {"status":"ok"}
//   - GET /ready  — readiness with an engine stats snapshot
//
// Documents:
//   - POST   /api/v1/documents              — register + start async index (202)
//   - GET    /api/v1/documents              — list registered documents with status
//   - GET    /api/v1/documents/{id}         — one document's metadata and status
//   - GET    /api/v1/documents/{id}/status  — indexing status only
//   - POST   /api/v1/documents/{id}/reindex — fresh index job, new generation (202)
//   - DELETE /api/v1/documents/{id}         — drop the document and its index
//
// Search:
//   - POST /api/v1/search — ranked retrieval across indexed documents
//
// Stats:
//   - GET /api/v1/stats — documents, vectors, active index jobs
//
// # Asynchronous indexing
//
// POST /documents and POST /reindex answer 202 immediately; the index job
// runs on the server's base context with progress in the log. Clients
// poll GET /documents/{id}/status for completion. A job that loses to a
// later-started one for the same document is discarded silently, per the
// engine's last-started-wins rule.
//
// # Error Handling
//
// All responses use an envelope format:
//
//	Success: {"data": <payload>}
//	Error:   {"error": {"code": "...", "message": "...", "status": <int>}}
//
// # Security
//
// The middleware stack enforces:
//   - Per-IP rate limiting (token bucket, 1 req/s refill, configurable burst)
//   - CORS with explicit origin allowlist
//   - Security headers (CSP, HSTS, X-Frame-Options, etc.)
//   - Request body size caps before decoding
//   - Forwarded-IP headers honored only behind a trusted proxy
package api
