package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform error shape returned to the browser client.
type Envelope struct {
	Error   string `json:"error"`             // Human-readable message
	Details string `json:"details,omitempty"` // Optional context for logs/dev-mode
}

// WriteError writes a JSON error envelope with the given status code
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteErrorWithDetails(w, statusCode, message, "")
}

// WriteErrorWithDetails writes a JSON error envelope with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := Envelope{
		Error:   message,
		Details: details,
	}

	// Log encoding errors but don't expose them to client
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteJSON writes an arbitrary JSON payload with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteRawJSON writes a pre-encoded JSON body with the given status code
func WriteRawJSON(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message)
}

func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusServiceUnavailable, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}
