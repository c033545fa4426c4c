package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// decodeJSONBody reads a JSON request body into dst with a hard size cap.
// On malformed or oversized bodies it writes the error response itself and
// returns false.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64, logger *slog.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit), logger)
			return false
		}
		WriteError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON", logger)
		return false
	}
	return true
}

// parseIntParam reads an integer query parameter, falling back to def when
// the parameter is missing, malformed, or negative.
func parseIntParam(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
