package schoolsdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/aussiebroadwan/neoschool/pkg/credstore"
	"golang.org/x/time/rate"
)

// DefaultUnauthenticated lists the paths that never carry an access token
// and never trigger a refresh.
var DefaultUnauthenticated = []string{
	"/auth/login",
	"/auth/refresh-token",
	"/auth/check-session",
}

// Request describes one backend call. Body is held as bytes so that a
// request replayed after a refresh sends exactly the same payload.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte

	// NoRefresh returns a 401 to the caller instead of refreshing.
	NoRefresh bool
}

// Dispatcher sends requests with the current access token attached and
// recovers from a single 401 by asking the Coordinator for a fresh token.
type Dispatcher struct {
	baseURL         string
	httpClient      *http.Client
	store           *credstore.Store
	coordinator     *Coordinator
	limiter         *rate.Limiter
	unauthenticated []string
	log             *slog.Logger
}

// Send performs req. Responses other than 401 are returned unchanged, as is
// a 401 from an unauthenticated path, a NoRefresh request, or a replay.
// When the refresh itself fails the refresh error is returned and the
// session has already ended.
func (d *Dispatcher) Send(ctx context.Context, req *Request) (*http.Response, error) {
	if d.isUnauthenticated(req.Path) {
		return d.do(ctx, req, "")
	}

	var token string
	if rec, ok := d.store.Get(ctx); ok {
		token = rec.AccessToken
	}

	resp, err := d.do(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || req.NoRefresh {
		return resp, nil
	}

	drain(resp)
	d.log.DebugContext(ctx, "access token rejected, refreshing", "method", req.Method, "path", req.Path)

	fresh, err := d.coordinator.ensureFresh(ctx, token)
	if err != nil {
		return nil, err
	}

	// Replayed once. A second 401 goes back to the caller.
	return d.do(ctx, req, fresh)
}

func (d *Dispatcher) isUnauthenticated(path string) bool {
	p, _, _ := strings.Cut(path, "?")
	p = strings.TrimSuffix(p, "/")
	return slices.Contains(d.unauthenticated, p)
}

func (d *Dispatcher) do(ctx context.Context, req *Request, token string) (*http.Response, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, d.url(req.Path, req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+credstore.StripBearer(token))
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// url builds a complete URL by appending path and query to the base URL.
func (d *Dispatcher) url(path string, query url.Values) string {
	u := d.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// drain discards the rest of a body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
