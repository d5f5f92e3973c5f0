package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/neoschool/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "https://neoschool.example.test"

func TestClaimsCheck(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *jwt.NumericDate { return jwt.NewNumericDate(now.Add(d)) }

	tests := []struct {
		name   string
		claims jwt.RegisteredClaims
		issuer string
		leeway time.Duration
		want   error
	}{
		{"valid", jwt.RegisteredClaims{Issuer: exampleIssuer, ExpiresAt: at(time.Minute)}, exampleIssuer, 0, nil},
		{"issuer not enforced", jwt.RegisteredClaims{Issuer: "other"}, "", 0, nil},
		{"issuer mismatch", jwt.RegisteredClaims{Issuer: "other"}, exampleIssuer, 0, jwtx.ErrIssuer},
		{"expired", jwt.RegisteredClaims{ExpiresAt: at(-time.Minute)}, "", 0, jwtx.ErrExpired},
		{"expired within leeway", jwt.RegisteredClaims{ExpiresAt: at(-10 * time.Second)}, "", 30 * time.Second, nil},
		{"expired beyond leeway", jwt.RegisteredClaims{ExpiresAt: at(-2 * time.Minute)}, "", 30 * time.Second, jwtx.ErrExpired},
		{"not yet valid", jwt.RegisteredClaims{NotBefore: at(time.Minute)}, "", 0, jwtx.ErrNotYetValid},
		{"no exp or nbf", jwt.RegisteredClaims{}, "", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := &jwtx.Claims{RegisteredClaims: tt.claims}
			err := c.Check(now, tt.issuer, tt.leeway)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewAccessClaims(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := jwtx.NewAccessClaims("u1", "alice", []string{"ROLE_ADMIN", "ROLE_TEACHER"}, time.Minute, exampleIssuer, now)

	require.Equal(t, "alice", c.Username)
	require.True(t, c.HasRole("ROLE_ADMIN"))
	require.False(t, c.HasRole("ROLE_STUDENT"))
	require.NotEmpty(t, c.ID)
	require.NotEqual(t, c.ID, jwtx.NewJTI())
	require.NoError(t, c.Check(now, exampleIssuer, 0))
	require.ErrorIs(t, c.Check(now.Add(2*time.Minute), exampleIssuer, 0), jwtx.ErrExpired)
}
