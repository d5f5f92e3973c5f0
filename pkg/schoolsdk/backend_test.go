package schoolsdk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/neoschool/pkg/credstore"
	"github.com/aussiebroadwan/neoschool/pkg/httpx"
	"github.com/aussiebroadwan/neoschool/pkg/jwtx"
	"github.com/aussiebroadwan/neoschool/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const (
	testPassword = "secret"
	testIssuer   = "neoschool-test"
)

// fakeBackend is a small stand-in for the school API. Access tokens are
// real HS512 JWTs so the client can inspect their exp claim.
type fakeBackend struct {
	t      *testing.T
	srv    *httptest.Server
	signer *jwtx.HS512Signer

	mu           sync.Mutex
	valid        map[string]bool
	refreshToken string
	revoked      bool
	loginAuth    string

	gate chan struct{}

	refreshCalls  atomic.Int32
	rejected      atomic.Int32
	logoutCalls   atomic.Int32
	refuseRefresh atomic.Bool
	omitRotation  atomic.Bool
	rejectAll     atomic.Bool
	failLogout    atomic.Bool
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	signer, err := jwtx.NewSignerHS512([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	fb := &fakeBackend{
		t:      t,
		signer: signer,
		valid:  make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", fb.handleLogin)
	mux.HandleFunc("POST /auth/refresh-token", fb.handleRefresh)
	mux.HandleFunc("POST /auth/logout", fb.handleLogout)
	mux.HandleFunc("GET /auth/check-session", fb.handleCheckSession)
	mux.HandleFunc("GET /students", fb.authorized(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, []map[string]string{{"id": "1", "name": "Ada"}})
	}))
	mux.HandleFunc("POST /students", fb.authorized(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	}))
	mux.HandleFunc("GET /students/{id}", fb.authorized(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "student not found")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"id": r.PathValue("id")})
	}))
	mux.HandleFunc("PUT /students/{id}", fb.authorized(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	mux.HandleFunc("DELETE /students/{id}", fb.authorized(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("GET /teachers", fb.authorized(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
	}))
	mux.HandleFunc("GET /slow", fb.authorized(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	mux.HandleFunc("GET /results/mark-sheet/{student}/{exam}", fb.authorized(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 " + r.PathValue("student") + " " + r.PathValue("exam")))
	}))

	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

// issue signs a fresh access token valid for ttl and registers it.
func (fb *fakeBackend) issue(ttl time.Duration) string {
	fb.t.Helper()

	tok, err := fb.signer.Sign(jwtx.NewAccessClaims("u-1", "admin", []string{"ROLE_ADMIN"}, ttl, testIssuer, time.Now()))
	require.NoError(fb.t, err)

	fb.mu.Lock()
	fb.valid[tok] = true
	fb.mu.Unlock()
	return tok
}

func (fb *fakeBackend) newRefreshToken() string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.refreshToken = jwtx.NewJTI()
	return fb.refreshToken
}

// expireAccess makes every issued access token invalid.
func (fb *fakeBackend) expireAccess() {
	fb.mu.Lock()
	clear(fb.valid)
	fb.mu.Unlock()
}

// holdRefresh blocks refresh handlers until the returned func is called.
func (fb *fakeBackend) holdRefresh() (release func()) {
	fb.mu.Lock()
	fb.gate = make(chan struct{})
	gate := fb.gate
	fb.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (fb *fakeBackend) setRevoked(v bool) {
	fb.mu.Lock()
	fb.revoked = v
	fb.mu.Unlock()
}

func (fb *fakeBackend) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, _ := httpx.BearerToken(r)

		fb.mu.Lock()
		ok := fb.valid[tok]
		fb.mu.Unlock()

		if !ok || fb.rejectAll.Load() {
			fb.rejected.Add(1)
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "access token rejected")
			return
		}
		next(w, r)
	}
}

func (fb *fakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	fb.loginAuth = r.Header.Get("Authorization")
	fb.mu.Unlock()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != testPassword {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "bad username or password")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, TokenResponse{
		Token:        "Bearer " + fb.issue(15*time.Minute),
		RefreshToken: fb.newRefreshToken(),
		Type:         "Bearer",
		Username:     req.Username,
		Roles:        []string{"ROLE_ADMIN"},
		ExpiresIn:    900,
	})
}

func (fb *fakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	fb.refreshCalls.Add(1)

	fb.mu.Lock()
	gate := fb.gate
	fb.mu.Unlock()
	if gate != nil {
		<-gate
	}

	var req RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	fb.mu.Lock()
	current := fb.refreshToken
	fb.mu.Unlock()

	if fb.refuseRefresh.Load() || req.RefreshToken == "" || req.RefreshToken != current {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_grant", "refresh token rejected")
		return
	}

	resp := TokenResponse{AccessToken: fb.issue(15 * time.Minute), ExpiresIn: 900}
	if !fb.omitRotation.Load() {
		resp.RefreshToken = fb.newRefreshToken()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (fb *fakeBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	fb.logoutCalls.Add(1)
	if fb.failLogout.Load() {
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "boom")
		return
	}

	tok, _ := httpx.BearerToken(r)
	fb.mu.Lock()
	delete(fb.valid, tok)
	fb.refreshToken = ""
	fb.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (fb *fakeBackend) handleCheckSession(w http.ResponseWriter, r *http.Request) {
	tok, _ := httpx.BearerToken(r)

	fb.mu.Lock()
	ok := fb.valid[tok] && !fb.revoked
	fb.mu.Unlock()

	httpx.WriteJSON(w, http.StatusOK, ok)
}

func newTestClient(t *testing.T, fb *fakeBackend, opts ...Option) *SDKClient {
	t.Helper()
	store := credstore.New(nil, nil, credstore.WithLogger(slogx.Discard()))
	opts = append([]Option{WithLogger(slogx.Discard())}, opts...)
	return NewSDKClient(fb.srv.URL, store, opts...)
}

func loggedInClient(t *testing.T, fb *fakeBackend, opts ...Option) *SDKClient {
	t.Helper()
	c := newTestClient(t, fb, opts...)
	_, err := c.Login(context.Background(), "admin", testPassword, false)
	require.NoError(t, err)
	return c
}

// endRecorder collects session-ended events.
type endRecorder struct {
	mu     sync.Mutex
	events []SessionEnd
}

func recordEnds(c *SDKClient) *endRecorder {
	r := &endRecorder{}
	c.OnSessionEnded(func(ev SessionEnd) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	})
	return r
}

func (r *endRecorder) reasons() []EndReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EndReason, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Reason)
	}
	return out
}

func accessToken(t *testing.T, c *SDKClient) string {
	t.Helper()
	rec, ok := c.Store().Get(context.Background())
	require.True(t, ok, "expected a credential record")
	return rec.AccessToken
}
