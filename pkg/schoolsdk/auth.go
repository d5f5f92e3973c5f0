package schoolsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/neoschool/pkg/credstore"
	"github.com/aussiebroadwan/neoschool/pkg/jwtx"
)

// Login authenticates with username and password and stores the resulting
// record. remember selects the durable tier. Any previous record is
// cleared first, so a failed login always leaves the user signed out.
func (c *SDKClient) Login(ctx context.Context, username, password string, remember bool) (User, error) {
	if err := c.store.Clear(ctx); err != nil {
		return User{}, fmt.Errorf("clear previous credentials: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, "/auth/login", LoginRequest{
		Username: username,
		Password: password,
	}, nil)
	if err != nil {
		return User{}, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return User{}, err
	}

	rec := credstore.Record{
		AccessToken:  tok.BearerToken(),
		RefreshToken: tok.RefreshToken,
		Username:     tok.Username,
		Roles:        tok.Roles,
		ExpiresIn:    tok.ExpiresIn,
	}
	if rec.Username == "" {
		rec.Username = username
	}
	if err := jwtx.CheckShape(rec.AccessToken); err != nil {
		return User{}, fmt.Errorf("login response: %w", err)
	}
	if err := c.store.Set(ctx, rec, remember); err != nil {
		return User{}, err
	}

	c.log.InfoContext(ctx, "logged in", "username", rec.Username, "remember", remember)

	user, _ := c.CurrentUser(ctx)
	return user, nil
}

// Logout revokes the access token on the backend when possible, then
// always clears local credentials and fires EndLoggedOut. Backend errors
// are logged, not returned.
func (c *SDKClient) Logout(ctx context.Context) error {
	c.signOut(ctx, EndLoggedOut)
	return nil
}

// signOut asks the backend to revoke the held tokens, then ends the
// session with reason. The backend call never refreshes and its failure
// does not keep the session alive.
func (c *SDKClient) signOut(ctx context.Context, reason EndReason) {
	if _, ok := c.store.Get(ctx); ok {
		resp, err := c.send(ctx, http.MethodPost, "/auth/logout", nil, &Request{NoRefresh: true})
		if err == nil {
			err = checkStatus(resp)
		}
		if err != nil {
			c.log.WarnContext(ctx, "backend logout failed", "reason", reason.String(), "err", err)
		}
	}

	c.endSession(ctx, reason, nil)
}

// RefreshGrant exchanges refreshToken for new tokens. It does not touch
// the store; use the Coordinator for that.
func (c *SDKClient) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := c.send(ctx, http.MethodPost, "/auth/refresh-token", RefreshRequest{RefreshToken: refreshToken}, nil)
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	if tok.BearerToken() == "" {
		return nil, errors.New("refresh response carried no access token")
	}
	return &tok, nil
}

// CheckSession asks the backend whether the current session is still
// valid. An access token already past its exp claim is refreshed first.
// If the backend answers false the session ends with EndRevoked.
func (c *SDKClient) CheckSession(ctx context.Context) (bool, error) {
	rec, ok := c.store.Get(ctx)
	if !ok {
		return false, nil
	}

	token := rec.AccessToken
	if jwtx.Expired(token, c.now()) {
		var err error
		if token, err = c.coordinator.EnsureFreshToken(ctx); err != nil {
			return false, err
		}
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	resp, err := c.send(ctx, http.MethodGet, "/auth/check-session", nil, &Request{Header: header})
	if err != nil {
		return false, err
	}

	var valid bool
	if err := decodeJSON(resp, &valid, http.StatusOK); err != nil {
		return false, err
	}
	if !valid {
		c.endSession(ctx, EndRevoked, nil)
	}
	return valid, nil
}
