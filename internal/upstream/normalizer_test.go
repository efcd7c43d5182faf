package upstream

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNormalizeSuccessPassesThrough(t *testing.T) {
	n := newTestNormalizer()

	out := n.Normalize(&Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"id":1,"title":"buy milk"}`),
	}, false)

	assert.True(t, out.OK())
	assert.Equal(t, http.StatusOK, out.StatusCode)
	assert.JSONEq(t, `{"id":1,"title":"buy milk"}`, string(out.Body))
}

func TestNormalizeMalformedSuccessBody(t *testing.T) {
	n := newTestNormalizer()

	// A 200 with a non-JSON body means the backend contract is broken;
	// that is a service failure, not a client error.
	out := n.Normalize(&Response{
		StatusCode: http.StatusOK,
		Body:       []byte("<html>gateway timeout</html>"),
	}, false)

	assert.False(t, out.OK())
	assert.Equal(t, http.StatusServiceUnavailable, out.StatusCode)
	assert.Equal(t, "Invalid response from API service", out.Message)
}

func TestNormalizeCapturesToken(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"access_token field", `{"access_token":"abc","user":{"id":1}}`, "abc"},
		{"token field", `{"token":"xyz"}`, "xyz"},
		{"access_token wins over token", `{"access_token":"abc","token":"xyz"}`, "abc"},
		{"missing token tolerated", `{"user":{"id":1}}`, ""},
		{"non-string token ignored", `{"access_token":42}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := n.Normalize(&Response{StatusCode: http.StatusOK, Body: []byte(tt.body)}, true)
			assert.True(t, out.OK())
			assert.Equal(t, tt.want, out.Token)
		})
	}
}

func TestNormalizeErrorProbesCandidateFields(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", http.StatusBadRequest, `{"error":"bad thing"}`, "bad thing"},
		{"detail field", http.StatusUnprocessableEntity, `{"detail":"missing password"}`, "missing password"},
		{"message field", http.StatusConflict, `{"message":"already exists"}`, "already exists"},
		{"error wins over detail", http.StatusBadRequest, `{"detail":"second","error":"first"}`, "first"},
		{"non-JSON falls back to status text", http.StatusBadGateway, "boom", "Bad Gateway"},
		{"empty body falls back to status text", http.StatusInternalServerError, "", "Internal Server Error"},
		{"unrecognized fields fall back", http.StatusForbidden, `{"reason":"nope"}`, "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := n.Normalize(&Response{StatusCode: tt.status, Body: []byte(tt.body)}, false)
			assert.False(t, out.OK())
			assert.Equal(t, tt.status, out.StatusCode)
			assert.Equal(t, tt.want, out.Message)
		})
	}
}

func TestExtractMessageUnknownStatus(t *testing.T) {
	assert.Equal(t, "Unexpected backend response", ExtractMessage(nil, 599))
}
