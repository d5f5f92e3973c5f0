package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/neoschool/pkg/idx"
)

// Transport is the client-side twin of HTTPMiddleware. It stamps every
// outbound request with a request id and logs the exchange at debug level.
// Headers are never logged; they carry bearer tokens.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{Base: base, Logger: logger}
}

func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	reqID := r.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = RequestID(r.Context())
	}
	if reqID == "" {
		reqID = idx.New().String()
	}

	// RoundTrippers must not mutate the caller's request.
	r = r.Clone(r.Context())
	r.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := t.Base.RoundTrip(r)

	attrs := []any{
		"req_id", reqID,
		"method", r.Method,
		"path", r.URL.Path,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		t.Logger.DebugContext(r.Context(), "http_client_error", append(attrs, "err", err)...)
		return nil, err
	}

	t.Logger.DebugContext(r.Context(), "http_client_request", append(attrs, "status", resp.StatusCode)...)
	return resp, nil
}
