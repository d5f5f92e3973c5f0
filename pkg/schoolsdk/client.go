package schoolsdk

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/neoschool/pkg/credstore"
	"github.com/aussiebroadwan/neoschool/pkg/slogx"
	"golang.org/x/time/rate"
)

// DefaultTimeout is applied to every backend call.
const DefaultTimeout = 30 * time.Second

// SDKClient is a client for the school backend. It owns the Dispatcher and
// Coordinator wired to one credential Store.
type SDKClient struct {
	BaseURL string

	store       *credstore.Store
	dispatcher  *Dispatcher
	coordinator *Coordinator
	events      *broadcaster
	log         *slog.Logger
	now         func() time.Time
}

type options struct {
	httpClient     *http.Client
	timeout        time.Duration
	refreshTimeout time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
	now            func() time.Time
}

// Option configures an SDKClient.
type Option func(*options)

// WithHTTPClient replaces the HTTP client. Its Timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option { return func(o *options) { o.httpClient = hc } }

// WithTimeout sets the per-call timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithRefreshTimeout bounds each refresh round trip.
func WithRefreshTimeout(d time.Duration) Option { return func(o *options) { o.refreshTimeout = d } }

// WithRateLimit throttles outgoing calls to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(o *options) { o.limiter = rate.NewLimiter(r, burst) }
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// NewSDKClient creates a client for baseURL (for example
// "http://localhost:8080/api") over store.
func NewSDKClient(baseURL string, store *credstore.Store, opts ...Option) *SDKClient {
	o := options{
		timeout:        DefaultTimeout,
		refreshTimeout: DefaultRefreshTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{
			Timeout:   o.timeout,
			Transport: slogx.NewTransport(nil, o.logger),
		}
	}

	c := &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		store:   store,
		events:  newBroadcaster(),
		log:     o.logger,
		now:     o.now,
	}
	c.coordinator = &Coordinator{
		store:     store,
		refresher: c,
		events:    c.events,
		timeout:   o.refreshTimeout,
		log:       o.logger,
	}
	c.dispatcher = &Dispatcher{
		baseURL:         c.BaseURL,
		httpClient:      o.httpClient,
		store:           store,
		coordinator:     c.coordinator,
		limiter:         o.limiter,
		unauthenticated: slices.Clone(DefaultUnauthenticated),
		log:             o.logger,
	}
	return c
}

// Store returns the credential store the client reads and writes.
func (c *SDKClient) Store() *credstore.Store { return c.store }

// Dispatcher returns the request dispatcher.
func (c *SDKClient) Dispatcher() *Dispatcher { return c.dispatcher }

// Coordinator returns the refresh coordinator.
func (c *SDKClient) Coordinator() *Coordinator { return c.coordinator }

// OnSessionEnded registers fn to run whenever the session ends, whether by
// logout, refresh failure, idle timeout or server-side revocation. It
// replaces redirecting to a login screen: the UI decides what to do.
func (c *SDKClient) OnSessionEnded(fn func(SessionEnd)) (unsubscribe func()) {
	return c.events.subscribe(fn)
}

// CurrentUser returns the signed-in user, if any.
func (c *SDKClient) CurrentUser(ctx context.Context) (User, bool) {
	rec, ok := c.store.Get(ctx)
	if !ok {
		return User{}, false
	}
	return User{
		Username:   rec.Username,
		Roles:      slices.Clone(rec.Roles),
		ExpiresAt:  rec.ExpiresAt,
		Persistent: rec.Persistent,
	}, true
}

// HasRole reports whether the signed-in user holds role.
func (c *SDKClient) HasRole(ctx context.Context, role string) bool {
	rec, ok := c.store.Get(ctx)
	return ok && rec.HasRole(role)
}

// endSession clears credentials and notifies subscribers.
func (c *SDKClient) endSession(ctx context.Context, reason EndReason, cause error) {
	if err := c.store.Clear(ctx); err != nil {
		c.log.WarnContext(ctx, "failed to clear credentials", "err", err)
	}
	c.log.InfoContext(ctx, "session ended", "reason", reason.String())
	c.events.emit(SessionEnd{Reason: reason, Err: cause})
}
