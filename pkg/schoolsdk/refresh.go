package schoolsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/neoschool/pkg/credstore"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshTimeout bounds one refresh round trip, independent of the
// callers waiting on it.
const DefaultRefreshTimeout = 30 * time.Second

// Refresher exchanges a refresh token for new tokens. *SDKClient
// implements it with POST /auth/refresh-token.
type Refresher interface {
	RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// Coordinator makes sure at most one refresh is in flight. Every caller
// that arrives while it runs waits for, and receives, the same outcome.
type Coordinator struct {
	store     *credstore.Store
	refresher Refresher
	events    *broadcaster
	timeout   time.Duration
	log       *slog.Logger

	group singleflight.Group
}

// EnsureFreshToken refreshes the access token, joining a refresh already in
// flight if there is one. On failure the credential record is cleared, the
// session-ended event fires once, and every waiter gets an error wrapping
// ErrSessionExpired. With no record at all it fails with ErrSessionExpired
// and ErrNotLoggedIn and fires nothing.
func (c *Coordinator) EnsureFreshToken(ctx context.Context) (string, error) {
	return c.ensureFresh(ctx, "")
}

// ensureFresh is EnsureFreshToken for a caller whose request was rejected
// with stale. If the stored token has already moved on, that token is
// returned without another round trip.
func (c *Coordinator) ensureFresh(ctx context.Context, stale string) (string, error) {
	if stale != "" {
		if rec, ok := c.store.Get(ctx); ok && rec.AccessToken != credstore.StripBearer(stale) {
			return rec.AccessToken, nil
		}
	}

	ch := c.group.DoChan("refresh", func() (any, error) {
		// The flight belongs to every waiter, so one caller giving up must
		// not cancel it for the rest.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.refresh(rctx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Coordinator) refresh(ctx context.Context) (string, error) {
	rec, ok := c.store.Get(ctx)
	if !ok {
		// Nothing to end: the session is already gone.
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, ErrNotLoggedIn)
	}
	if !rec.HasRefreshToken() {
		return "", c.fail(ctx, ErrNoRefreshToken)
	}

	resp, err := c.refresher.RefreshGrant(ctx, rec.RefreshToken)
	if err != nil {
		return "", c.fail(ctx, err)
	}

	next := credstore.Record{
		AccessToken:  resp.BearerToken(),
		RefreshToken: resp.RefreshToken,
		Username:     rec.Username,
		Roles:        rec.Roles,
		ExpiresIn:    resp.ExpiresIn,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = rec.RefreshToken
	}

	if err := c.store.Set(ctx, next, rec.Persistent); err != nil {
		return "", c.fail(ctx, fmt.Errorf("store refreshed credentials: %w", err))
	}

	c.log.DebugContext(ctx, "access token refreshed", "username", rec.Username, "persistent", rec.Persistent)
	return next.AccessToken, nil
}

// fail ends the session and returns the error every waiter will see.
func (c *Coordinator) fail(ctx context.Context, cause error) error {
	err := cause
	if !errors.Is(cause, ErrSessionExpired) {
		err = fmt.Errorf("%w: %w", ErrSessionExpired, cause)
	}

	if clearErr := c.store.Clear(ctx); clearErr != nil {
		c.log.WarnContext(ctx, "failed to clear credentials after refresh failure", "err", clearErr)
	}
	c.log.InfoContext(ctx, "session ended", "reason", EndRefreshFailed.String(), "err", cause)
	c.events.emit(SessionEnd{Reason: EndRefreshFailed, Err: err})
	return err
}
