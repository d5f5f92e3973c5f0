package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/neoschool/internal/schoold/domain"
	"github.com/aussiebroadwan/neoschool/internal/schoold/store"
	"github.com/aussiebroadwan/neoschool/pkg/cryptox"
	"github.com/aussiebroadwan/neoschool/pkg/idx"
	"github.com/aussiebroadwan/neoschool/pkg/jwtx"
	"github.com/aussiebroadwan/neoschool/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
)

// AuthService issues, rotates and revokes tokens.
type AuthService struct {
	Store      store.Store
	Hasher     *cryptox.Hasher
	Signer     jwtx.Signer
	Verifier   jwtx.Verifier
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Login checks username and password and returns a new token pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Hash anyway so unknown users cost the same as bad passwords.
			_, _ = s.Hasher.Hash(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.Hasher.Verify(password, user.PasswordHash); err != nil {
		l.Info("login failed", slog.String("username", user.Username))
		return nil, ErrInvalidCredentials
	}

	refresh, rt, err := s.newRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	l.Info("login succeeded", slog.String("username", user.Username))
	return s.issue(user, refresh)
}

// Refresh rotates refreshToken and returns a new token pair. Unknown,
// expired and already-rotated tokens all fail with ErrInvalidRefresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrInvalidRefresh
	}

	hash := cryptox.Fingerprint(refreshToken)
	current, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if current.Revoked || !s.now().Before(current.ExpiresAt) {
		return nil, ErrInvalidRefresh
	}

	user, err := s.Store.Users().GetUserByID(ctx, current.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	next, rt, err := s.newRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.Store.RefreshTokens().RotateRefreshToken(ctx, hash, rt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost a race with another rotation of the same token.
			return nil, ErrInvalidRefresh
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	slogx.FromContext(ctx).Debug("refresh token rotated", slog.String("username", user.Username))
	return s.issue(user, next)
}

// Logout revokes the access token described by claims and every refresh
// token of its user.
func (s *AuthService) Logout(ctx context.Context, claims *jwtx.Claims) error {
	exp := s.now().Add(s.AccessTTL)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if claims.ID != "" {
		if err := s.Store.Revocations().RevokeJTI(ctx, domain.Revocation{JTI: claims.ID, ExpiresAt: exp}); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}
	if err := s.Store.RefreshTokens().RevokeUserRefreshTokens(ctx, claims.Subject); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	slogx.FromContext(ctx).Info("logged out", slog.String("username", claims.Username))
	return nil
}

// CheckSession reports whether token is a valid access token that has not
// been logged out.
func (s *AuthService) CheckSession(ctx context.Context, token string) bool {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return false
	}
	return !s.IsRevoked(ctx, claims.ID)
}

// IsRevoked implements httpx.RevocationChecker. Lookup errors count as
// revoked.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) bool {
	if jti == "" {
		return false
	}
	revoked, err := s.Store.Revocations().IsRevoked(ctx, jti)
	if err != nil {
		slogx.FromContext(ctx).Error("revocation lookup failed", "error", err)
		return true
	}
	return revoked
}

func (s *AuthService) issue(user domain.User, refreshToken string) (*domain.TokenPair, error) {
	claims := jwtx.NewAccessClaims(user.ID, user.Username, user.Roles, s.AccessTTL, s.Issuer, s.now())
	access, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	return &domain.TokenPair{
		Token:        access,
		RefreshToken: refreshToken,
		Type:         "Bearer",
		Username:     user.Username,
		Roles:        user.Roles,
		ExpiresIn:    int64(s.AccessTTL / time.Second),
	}, nil
}

func (s *AuthService) newRefreshToken(userID string) (string, domain.RefreshToken, error) {
	raw, fingerprint, err := cryptox.NewRefreshToken()
	if err != nil {
		return "", domain.RefreshToken{}, fmt.Errorf("generate refresh token: %w", err)
	}
	now := s.now()
	return raw, domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: fingerprint,
		ExpiresAt: now.Add(s.RefreshTTL),
		CreatedAt: now,
	}, nil
}
