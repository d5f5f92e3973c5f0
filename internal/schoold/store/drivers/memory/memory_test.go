package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aussiebroadwan/neoschool/internal/schoold/domain"
	"github.com/aussiebroadwan/neoschool/internal/schoold/store"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()

	u := domain.User{ID: "u1", Username: "admin", Roles: []string{domain.RoleAdmin}}
	require.NoError(t, s.Users().CreateUser(ctx, u))
	require.ErrorIs(t, s.Users().CreateUser(ctx, domain.User{ID: "u2", Username: "admin"}), store.ErrAlreadyExists)

	got, err := s.Users().GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, "u1", got.ID)

	// Returned users do not alias stored state.
	got.Roles[0] = "ROLE_NOBODY"
	again, err := s.Users().GetUserByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleAdmin}, again.Roles)

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRefreshTokens_Rotate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{ID: "1", UserID: "u", TokenHash: "a", ExpiresAt: exp}))

	next := domain.RefreshToken{ID: "2", UserID: "u", TokenHash: "b", ExpiresAt: exp}
	require.NoError(t, s.RefreshTokens().RotateRefreshToken(ctx, "a", next))

	old, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "a")
	require.NoError(t, err)
	require.True(t, old.Revoked)

	// A token rotates at most once.
	other := domain.RefreshToken{ID: "3", UserID: "u", TokenHash: "c", ExpiresAt: exp}
	require.ErrorIs(t, s.RefreshTokens().RotateRefreshToken(ctx, "a", other), store.ErrNotFound)
	require.ErrorIs(t, s.RefreshTokens().RotateRefreshToken(ctx, "zzz", other), store.ErrNotFound)

	require.NoError(t, s.RefreshTokens().RevokeUserRefreshTokens(ctx, "u"))
	cur, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "b")
	require.NoError(t, err)
	require.True(t, cur.Revoked)

	n, err := s.RefreshTokens().DeleteExpiredRefreshTokens(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestDocuments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	docs := s.Documents()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, docs.CreateDocument(ctx, domain.Document{
			ID:       id,
			Resource: "grades",
			Body:     json.RawMessage(`{"id":"` + id + `"}`),
		}))
	}
	require.ErrorIs(t, docs.CreateDocument(ctx, domain.Document{ID: "1", Resource: "grades"}), store.ErrAlreadyExists)

	// Same id in another collection is fine.
	require.NoError(t, docs.CreateDocument(ctx, domain.Document{ID: "1", Resource: "exams", Body: json.RawMessage(`{}`)}))

	require.NoError(t, docs.DeleteDocument(ctx, "grades", "2"))
	list, err := docs.ListDocuments(ctx, "grades")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "1", list[0].ID)
	require.Equal(t, "3", list[1].ID)

	require.NoError(t, docs.UpdateDocument(ctx, domain.Document{ID: "3", Resource: "grades", Body: json.RawMessage(`{"id":"3","n":1}`)}))
	got, err := docs.GetDocument(ctx, "grades", "3")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"3","n":1}`, string(got.Body))

	require.ErrorIs(t, docs.UpdateDocument(ctx, domain.Document{ID: "2", Resource: "grades"}), store.ErrNotFound)
	require.ErrorIs(t, docs.DeleteDocument(ctx, "grades", "2"), store.ErrNotFound)

	empty, err := docs.ListDocuments(ctx, "subjects")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestPing(t *testing.T) {
	t.Parallel()

	s := NewStore()
	require.NoError(t, s.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Ping(ctx), context.Canceled)
	require.NoError(t, s.Close())
}
