package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/alebed/magebot/internal/log"
)

// writeJSON writes a JSON response with the given status code.
// Encoding happens into a buffer first so headers are only sent after a
// successful encode and a broken payload can still become a proper 500.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("failed to write response body", "error", err)
	}
}

// errorResponse is the uniform error payload.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with a machine-readable code and a
// human-readable message.
func writeError(w http.ResponseWriter, status int, code, message string, logger log.Logger) {
	writeJSON(w, status, errorResponse{Error: code, Message: message}, logger)
}
