package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// Error is the payload of the error envelope. Status mirrors the HTTP
// status code so a client holding only the decoded body still knows the
// failure class.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// envelope is the wire shape of every JSON response. Exactly one of Data
// and Error is set.
type envelope struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// WriteJSON writes data wrapped in the {"data": ...} envelope. The body is
// encoded into a buffer first, so a failed encode still becomes a clean 500
// instead of a half-written response.
func WriteJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	writeEnvelope(w, status, envelope{Data: data}, logger)
}

// WriteError writes an {"error": {"code", "message", "status"}} envelope.
func WriteError(w http.ResponseWriter, status int, code, message string, logger *slog.Logger) {
	writeEnvelope(w, status, envelope{Error: &Error{Code: code, Message: message, Status: status}}, logger)
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(env); err != nil {
		logger.Error("encoding JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects land here; they are routine.
		logger.Debug("writing response body", "error", err)
	}
}
