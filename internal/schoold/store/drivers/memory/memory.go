// Package memory is an in-process store.Store. State is lost on restart,
// which is all the reference backend needs.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/neoschool/internal/schoold/domain"
	"github.com/aussiebroadwan/neoschool/internal/schoold/store"
)

type Store struct {
	mu sync.RWMutex

	users       map[string]domain.User // by id
	usernames   map[string]string      // username -> id
	refresh     map[string]domain.RefreshToken
	revocations map[string]time.Time
	documents   map[string][]domain.Document // by resource, creation order
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		users:       make(map[string]domain.User),
		usernames:   make(map[string]string),
		refresh:     make(map[string]domain.RefreshToken),
		revocations: make(map[string]time.Time),
		documents:   make(map[string][]domain.Document),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) Users() store.Users                 { return users{s} }
func (s *Store) RefreshTokens() store.RefreshTokens { return refreshTokens{s} }
func (s *Store) Revocations() store.Revocations     { return revocations{s} }
func (s *Store) Documents() store.Documents         { return documents{s} }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Ping only fails once ctx is done.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// ============================================================================
// Users
// ============================================================================

type users struct{ s *Store }

func (r users) GetUserByID(_ context.Context, id string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r users) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.usernames[username]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return cloneUser(r.s.users[id]), nil
}

func (r users) CreateUser(_ context.Context, u domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID]; ok {
		return store.ErrAlreadyExists
	}
	if _, ok := r.s.usernames[u.Username]; ok {
		return store.ErrAlreadyExists
	}
	r.s.users[u.ID] = cloneUser(u)
	r.s.usernames[u.Username] = u.ID
	return nil
}

func cloneUser(u domain.User) domain.User {
	u.Roles = slices.Clone(u.Roles)
	return u
}

// ============================================================================
// Refresh tokens
// ============================================================================

type refreshTokens struct{ s *Store }

func (r refreshTokens) CreateRefreshToken(_ context.Context, rt domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.refresh[rt.TokenHash]; ok {
		return store.ErrAlreadyExists
	}
	r.s.refresh[rt.TokenHash] = rt
	return nil
}

func (r refreshTokens) GetRefreshTokenByHash(_ context.Context, hash string) (domain.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rt, ok := r.s.refresh[hash]
	if !ok {
		return domain.RefreshToken{}, store.ErrNotFound
	}
	return rt, nil
}

func (r refreshTokens) RotateRefreshToken(_ context.Context, oldHash string, next domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	old, ok := r.s.refresh[oldHash]
	if !ok || old.Revoked {
		return store.ErrNotFound
	}
	if _, ok := r.s.refresh[next.TokenHash]; ok {
		return store.ErrAlreadyExists
	}
	old.Revoked = true
	r.s.refresh[oldHash] = old
	r.s.refresh[next.TokenHash] = next
	return nil
}

func (r refreshTokens) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for hash, rt := range r.s.refresh {
		if rt.UserID == userID && !rt.Revoked {
			rt.Revoked = true
			r.s.refresh[hash] = rt
		}
	}
	return nil
}

func (r refreshTokens) DeleteExpiredRefreshTokens(_ context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int
	for hash, rt := range r.s.refresh {
		if rt.Revoked || !now.Before(rt.ExpiresAt) {
			delete(r.s.refresh, hash)
			n++
		}
	}
	return n, nil
}

// ============================================================================
// Revocations
// ============================================================================

type revocations struct{ s *Store }

func (r revocations) RevokeJTI(_ context.Context, rev domain.Revocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.revocations[rev.JTI] = rev.ExpiresAt
	return nil
}

func (r revocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.revocations[jti]
	return ok, nil
}

func (r revocations) DeleteExpiredRevocations(_ context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int
	for jti, exp := range r.s.revocations {
		if !now.Before(exp) {
			delete(r.s.revocations, jti)
			n++
		}
	}
	return n, nil
}

// ============================================================================
// Documents
// ============================================================================

type documents struct{ s *Store }

func (r documents) ListDocuments(_ context.Context, resource string) ([]domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	docs := r.s.documents[resource]
	out := make([]domain.Document, len(docs))
	for i, d := range docs {
		out[i] = cloneDocument(d)
	}
	return out, nil
}

func (r documents) GetDocument(_ context.Context, resource, id string) (domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i := r.index(resource, id)
	if i < 0 {
		return domain.Document{}, store.ErrNotFound
	}
	return cloneDocument(r.s.documents[resource][i]), nil
}

func (r documents) CreateDocument(_ context.Context, d domain.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.index(d.Resource, d.ID) >= 0 {
		return store.ErrAlreadyExists
	}
	r.s.documents[d.Resource] = append(r.s.documents[d.Resource], cloneDocument(d))
	return nil
}

func (r documents) UpdateDocument(_ context.Context, d domain.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.index(d.Resource, d.ID)
	if i < 0 {
		return store.ErrNotFound
	}
	cur := &r.s.documents[d.Resource][i]
	cur.Body = slices.Clone(d.Body)
	cur.UpdatedAt = d.UpdatedAt
	return nil
}

func (r documents) DeleteDocument(_ context.Context, resource, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.index(resource, id)
	if i < 0 {
		return store.ErrNotFound
	}
	r.s.documents[resource] = slices.Delete(r.s.documents[resource], i, i+1)
	return nil
}

// index must be called with the lock held.
func (r documents) index(resource, id string) int {
	return slices.IndexFunc(r.s.documents[resource], func(d domain.Document) bool { return d.ID == id })
}

func cloneDocument(d domain.Document) domain.Document {
	d.Body = slices.Clone(d.Body)
	return d
}
