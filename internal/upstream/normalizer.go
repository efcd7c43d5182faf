package upstream

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// messageFields is the ordered list of candidate fields probed for a
// human-readable message in a backend error body. First hit wins; the
// fallback is the HTTP status text.
var messageFields = []string{"error", "detail", "message"}

// tokenFields is the ordered list of candidate fields holding a freshly
// issued token in a login/register/refresh response body.
var tokenFields = []string{"access_token", "token"}

// Outcome is the normalized result of a backend response: either
// pass-through JSON or a message destined for the uniform error envelope.
type Outcome struct {
	StatusCode int
	Body       []byte // pass-through JSON body; nil for error outcomes
	Message    string // envelope message; empty for pass-through outcomes
	Token      string // newly issued token, when one was requested and present
}

// OK reports whether the outcome is a pass-through success
func (o Outcome) OK() bool {
	return o.Message == ""
}

// Normalizer turns arbitrary backend responses into a uniform shape the
// handler can write without further inspection.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a normalizer
func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize inspects a backend response. A 2xx body must be JSON: the
// backend contract promises JSON on success, so anything else is treated as
// a broken backend (503) rather than a client error. With captureToken set,
// a new token is extracted from the success body for cookie reissuance; its
// absence is tolerated but logged.
func (n *Normalizer) Normalize(resp *Response, captureToken bool) Outcome {
	if !resp.IsSuccess() {
		return Outcome{
			StatusCode: resp.StatusCode,
			Message:    ExtractMessage(resp.Body, resp.StatusCode),
		}
	}

	if !json.Valid(resp.Body) {
		n.logger.Error("non-JSON body on successful backend response",
			slog.Int("status", resp.StatusCode),
			slog.Int("body_bytes", len(resp.Body)))
		return Outcome{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Invalid response from API service",
		}
	}

	out := Outcome{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}

	if captureToken {
		out.Token = ExtractToken(resp.Body)
		if out.Token == "" {
			n.logger.Warn("no token in successful auth response",
				slog.Int("status", resp.StatusCode))
		}
	}

	return out
}

// ExtractMessage probes the candidate message fields of an error body in
// order, falling back to the status text when the body is not JSON or
// carries no recognized field.
func ExtractMessage(body []byte, statusCode int) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		for _, field := range messageFields {
			if msg, ok := parsed[field].(string); ok && msg != "" {
				return msg
			}
		}
	}

	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return "Unexpected backend response"
}

// ExtractToken probes the candidate token fields of a success body in order
func ExtractToken(body []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	for _, field := range tokenFields {
		if token, ok := parsed[field].(string); ok && token != "" {
			return token
		}
	}
	return ""
}
