package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/lumenlist/authgate/internal/guard"
	"github.com/lumenlist/authgate/internal/observability"
	"github.com/lumenlist/authgate/internal/routing"
	"github.com/lumenlist/authgate/internal/session"
	"github.com/lumenlist/authgate/internal/upstream"
	"github.com/lumenlist/authgate/pkg/httpx"
	pkglogger "github.com/lumenlist/authgate/pkg/logger"
)

// maxBodyBytes caps the inbound request body the gateway will buffer
const maxBodyBytes = 1 << 20

// Gateway is the request-mediation layer between the browser and the
// backend identity/API service. It is stateless per request; the loop
// guard's counters and the browser cookie are the only state anywhere.
type Gateway struct {
	classifier *routing.Classifier
	guard      *guard.Guard
	forwarder  *upstream.Forwarder
	normalizer *upstream.Normalizer
	jar        *session.Jar
	logger     *slog.Logger
}

// NewGateway wires the gateway from its injected components
func NewGateway(
	classifier *routing.Classifier,
	g *guard.Guard,
	forwarder *upstream.Forwarder,
	normalizer *upstream.Normalizer,
	jar *session.Jar,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		classifier: classifier,
		guard:      g,
		forwarder:  forwarder,
		normalizer: normalizer,
		jar:        jar,
		logger:     logger,
	}
}

// ServeHTTP dispatches one inbound request by route class
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	result := g.classifier.Classify(path, r.Method)

	start := time.Now()
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	defer func() {
		status := strconv.Itoa(ww.Status())
		class := result.Class.String()
		observability.RequestsTotal.WithLabelValues(class, status).Inc()
		observability.RequestDuration.WithLabelValues(class, status).
			Observe(time.Since(start).Seconds())
	}()

	switch result.Class {
	case routing.Logout:
		g.handleLogout(ww, r)
	case routing.Public:
		g.handlePublic(ww, r, result)
	case routing.Refresh:
		g.handleRefresh(ww, r, result)
	case routing.Verify:
		g.handleVerify(ww, r, result)
	default:
		g.handleProtected(ww, r, result)
	}
}

// handleLogout clears the cookie without contacting the backend
func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	g.jar.Clear(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// handlePublic forwards login/register credential-less and captures the
// token the backend issues into the session cookie.
func (g *Gateway) handlePublic(w http.ResponseWriter, r *http.Request, result routing.Result) {
	body, contentType, ok := g.readBody(w, r)
	if !ok {
		return
	}

	resp, err := g.forwarder.Forward(r.Context(), upstream.Request{
		Method:      r.Method,
		Path:        withQuery(result.BackendPath, r),
		Body:        body,
		ContentType: contentType,
		RequestID:   requestID(r),
	})
	if err != nil {
		g.writeUnavailable(w, r, result, err)
		return
	}

	outcome := g.normalizer.Normalize(resp, true)
	if !outcome.OK() {
		httpx.WriteError(w, outcome.StatusCode, outcome.Message)
		return
	}

	if outcome.Token != "" {
		g.jar.Set(w, outcome.Token)
	}
	httpx.WriteRawJSON(w, outcome.StatusCode, outcome.Body)
}

// handleRefresh exchanges the current token for a new one, gated by the
// loop guard's default budget.
func (g *Gateway) handleRefresh(w http.ResponseWriter, r *http.Request, result routing.Result) {
	token := g.jar.FromRequest(r)
	if token == "" {
		httpx.WriteUnauthorized(w, "Not authenticated")
		return
	}

	now := time.Now()
	key := guard.Key(result.BackendPath, now)
	if !g.guard.Admit(key, g.guard.DefaultBudget(), now) {
		observability.GuardRefusalsTotal.WithLabelValues(result.Class.String()).Inc()
		httpx.WriteTooManyRequests(w, "Too many requests")
		return
	}
	observability.GuardEntries.Set(float64(g.guard.Len()))

	resp, err := g.forwarder.Forward(r.Context(), upstream.Request{
		Method:    http.MethodPost,
		Path:      result.BackendPath,
		Token:     token,
		RequestID: requestID(r),
	})
	if err != nil {
		g.writeUnavailable(w, r, result, err)
		return
	}

	outcome := g.normalizer.Normalize(resp, true)
	if !outcome.OK() {
		httpx.WriteError(w, outcome.StatusCode, outcome.Message)
		return
	}

	if outcome.Token != "" {
		g.jar.Set(w, outcome.Token)
	}
	httpx.WriteRawJSON(w, outcome.StatusCode, outcome.Body)
}

// handleVerify checks the current token against the backend. This is the
// canonical retry-storm trigger, so it carries the higher verify budget and
// resets its counter on success. A backend 401 passes through unmodified:
// the token is simply invalid, no retry is warranted, and the cookie is left
// for the caller to decide about.
func (g *Gateway) handleVerify(w http.ResponseWriter, r *http.Request, result routing.Result) {
	token := g.jar.FromRequest(r)
	if token == "" {
		httpx.WriteUnauthorized(w, "Not authenticated")
		return
	}

	now := time.Now()
	key := guard.Key(result.BackendPath, now)
	if !g.guard.Admit(key, g.guard.VerifyBudget(), now) {
		observability.GuardRefusalsTotal.WithLabelValues(result.Class.String()).Inc()
		httpx.WriteTooManyRequests(w, "Too many verification attempts")
		return
	}
	observability.GuardEntries.Set(float64(g.guard.Len()))

	// The backend contract is POST /verify with no body, regardless of how
	// the browser phrased the session check.
	resp, err := g.forwarder.Forward(r.Context(), upstream.Request{
		Method:    http.MethodPost,
		Path:      result.BackendPath,
		Token:     token,
		RequestID: requestID(r),
	})
	if err != nil {
		g.writeUnavailable(w, r, result, err)
		return
	}

	if resp.StatusCode == http.StatusUnauthorized {
		httpx.WriteRawJSON(w, http.StatusUnauthorized, resp.Body)
		return
	}

	outcome := g.normalizer.Normalize(resp, false)
	if !outcome.OK() {
		httpx.WriteError(w, outcome.StatusCode, outcome.Message)
		return
	}

	g.guard.Reset(key)
	g.logger.Debug("session verified",
		slog.String("token", pkglogger.SanitizeToken(token)))
	w.Header().Set("X-Auth-Verified", "true")
	w.Header().Set("X-Auth-Timestamp", now.UTC().Format(time.RFC3339))
	httpx.WriteRawJSON(w, outcome.StatusCode, outcome.Body)
}

// handleProtected forwards resource requests with the current token; no
// token means 401 without contacting the backend.
func (g *Gateway) handleProtected(w http.ResponseWriter, r *http.Request, result routing.Result) {
	token := g.jar.FromRequest(r)
	if token == "" {
		httpx.WriteUnauthorized(w, "Not authenticated")
		return
	}

	body, contentType, ok := g.readBody(w, r)
	if !ok {
		return
	}

	resp, err := g.forwarder.Forward(r.Context(), upstream.Request{
		Method:      r.Method,
		Path:        withQuery(result.BackendPath, r),
		Token:       token,
		Body:        body,
		ContentType: contentType,
		RequestID:   requestID(r),
	})
	if err != nil {
		g.writeUnavailable(w, r, result, err)
		return
	}

	outcome := g.normalizer.Normalize(resp, false)
	if !outcome.OK() {
		httpx.WriteError(w, outcome.StatusCode, outcome.Message)
		return
	}
	httpx.WriteRawJSON(w, outcome.StatusCode, outcome.Body)
}

// readBody buffers the inbound body for forwarding. Form-encoded payloads
// are kept raw with their content type preserved; JSON payloads are parsed
// and re-serialized so only well-formed JSON reaches the backend. Returns
// ok=false after writing the error response itself.
func (g *Gateway) readBody(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	if r.Method == http.MethodGet || r.Method == http.MethodDelete || r.Body == nil {
		return nil, "", true
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httpx.WriteBadRequest(w, "Request body too large or unreadable")
		return nil, "", false
	}
	if len(raw) == 0 {
		return nil, "", true
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		return raw, contentType, true
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		httpx.WriteBadRequest(w, "Invalid JSON body")
		return nil, "", false
	}
	reencoded, err := json.Marshal(parsed)
	if err != nil {
		httpx.WriteBadRequest(w, "Invalid JSON body")
		return nil, "", false
	}
	return reencoded, "application/json", true
}

func (g *Gateway) writeUnavailable(w http.ResponseWriter, r *http.Request, result routing.Result, err error) {
	if !errors.Is(err, upstream.ErrBackendUnavailable) {
		g.logger.Error("unexpected forwarding error",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	observability.CaptureError(err, r.URL.Path, result.Class.String())
	httpx.WriteServiceUnavailable(w, "API service unavailable")
}

// withQuery re-attaches the inbound query string to the backend target path
func withQuery(backendPath string, r *http.Request) string {
	if r.URL.RawQuery == "" {
		return backendPath
	}
	return backendPath + "?" + r.URL.RawQuery
}

// requestID reuses the inbound chi request ID for outbound correlation,
// minting a fresh one when the middleware did not run.
func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}
