package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the error shape every endpoint returns. Code carries
// one of the identifiers from codes.go.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RespondJSON writes data as a JSON response with the given status code.
// Encoding errors are logged; at that point part of the body may already
// be on the wire.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// RespondErrorWithCode writes an ErrorResponse carrying a machine-readable
// error code
func RespondErrorWithCode(w http.ResponseWriter, message, code string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: message, Code: code}, statusCode)
}
