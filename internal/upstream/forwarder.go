package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lumenlist/authgate/internal/observability"
)

// ErrBackendUnavailable covers connection refused, timeout and DNS failures
// on the outbound call; the handler maps it to a 503 envelope.
var ErrBackendUnavailable = errors.New("backend unavailable")

// maxRedirectHops bounds manual redirect-following. Two hops covers the
// trailing-slash and canonical-host redirects real backends emit without
// letting a misbehaving backend loop the gateway.
const maxRedirectHops = 2

// Request describes one outbound backend call
type Request struct {
	Method      string
	Path        string // backend path, including any query string
	Token       string // bearer token; empty means no Authorization header
	Body        []byte
	ContentType string
	RequestID   string // correlation ID propagated as X-Request-ID
}

// Response is the backend reply with its body fully read
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports whether the backend answered 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Forwarder builds and executes outbound backend calls. The underlying
// transport never follows redirects on its own: Go's client drops custom
// headers (including Authorization) across redirects, so 3xx responses are
// followed manually with the token re-attached each hop.
type Forwarder struct {
	client  *http.Client
	baseURL *url.URL
	logger  *slog.Logger
}

// NewForwarder creates a forwarder for the backend at baseURL
func NewForwarder(baseURL string, timeout time.Duration, logger *slog.Logger) (*Forwarder, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Forwarder{
		client:  client,
		baseURL: parsed,
		logger:  logger,
	}, nil
}

// Forward issues the backend call, following up to maxRedirectHops redirects
// with the same token. The context bounds the whole exchange: when the
// inbound client disconnects, the outbound call is cancelled with it.
func (f *Forwarder) Forward(ctx context.Context, req Request) (*Response, error) {
	target, err := f.baseURL.Parse(req.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid backend path %q: %w", req.Path, err)
	}

	for hop := 0; ; hop++ {
		resp, err := f.do(ctx, req, target)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			return resp, nil
		}

		location := resp.Header.Get("Location")
		if location == "" || hop >= maxRedirectHops {
			// A 3xx with no Location, or too many hops: hand the redirect
			// back to the client as-is rather than guessing.
			return resp, nil
		}

		next, err := target.Parse(location)
		if err != nil {
			f.logger.Warn("unparseable redirect location",
				slog.String("location", location))
			return resp, nil
		}

		observability.UpstreamRedirectsTotal.Inc()
		f.logger.Debug("following backend redirect",
			slog.String("location", next.String()),
			slog.Int("hop", hop+1))
		target = next
	}
}

// Ping probes backend reachability for the health endpoint. Any HTTP answer
// counts as reachable; only network-level failures report down.
func (f *Forwarder) Ping(ctx context.Context) error {
	_, err := f.Forward(ctx, Request{Method: http.MethodGet, Path: "/health"})
	return err
}

func (f *Forwarder) do(ctx context.Context, req Request, target *url.URL) (*Response, error) {
	var bodyReader io.Reader
	if len(req.Body) > 0 && req.Method != http.MethodGet && req.Method != http.MethodDelete {
		bodyReader = bytes.NewReader(req.Body)
	}

	outbound, err := http.NewRequestWithContext(ctx, req.Method, target.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building backend request: %w", err)
	}

	if bodyReader != nil {
		contentType := req.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		outbound.Header.Set("Content-Type", contentType)
	}
	if req.Token != "" {
		outbound.Header.Set("Authorization", "Bearer "+req.Token)
	}
	if req.RequestID != "" {
		outbound.Header.Set("X-Request-ID", req.RequestID)
	}
	outbound.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(outbound)
	if err != nil {
		observability.UpstreamErrorsTotal.Inc()
		f.logger.Warn("backend call failed",
			slog.String("method", req.Method),
			slog.String("url", target.String()),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.UpstreamErrorsTotal.Inc()
		return nil, fmt.Errorf("%w: reading response: %v", ErrBackendUnavailable, err)
	}

	observability.UpstreamDuration.WithLabelValues(
		req.Method,
		strconv.Itoa(resp.StatusCode),
	).Observe(time.Since(start).Seconds())

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
