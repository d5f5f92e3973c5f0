package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/neoschool/internal/schoold/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. It exposes sub-repositories to
// keep concerns tidy and testable.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	Revocations() Revocations
	Documents() Documents

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the store is still usable.
	Ping(ctx context.Context) error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user. Usernames are unique.
	CreateUser(ctx context.Context, u domain.User) error
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, rt domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RotateRefreshToken revokes the token with oldHash and inserts next in
	// one step. It fails with ErrNotFound if oldHash is unknown or already
	// revoked, so a token can be rotated at most once.
	RotateRefreshToken(ctx context.Context, oldHash string, next domain.RefreshToken) error

	// RevokeUserRefreshTokens revokes every refresh token of userID.
	RevokeUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens removes tokens past expiry or revoked.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int, error)
}

type Revocations interface {
	RevokeJTI(ctx context.Context, r domain.Revocation) error
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// DeleteExpiredRevocations drops entries whose token has expired.
	DeleteExpiredRevocations(ctx context.Context, now time.Time) (int, error)
}

type Documents interface {
	// ListDocuments returns a resource's documents in creation order.
	ListDocuments(ctx context.Context, resource string) ([]domain.Document, error)
	GetDocument(ctx context.Context, resource, id string) (domain.Document, error)
	CreateDocument(ctx context.Context, d domain.Document) error

	// UpdateDocument replaces the body and bumps UpdatedAt.
	UpdateDocument(ctx context.Context, d domain.Document) error
	DeleteDocument(ctx context.Context, resource, id string) error
}
