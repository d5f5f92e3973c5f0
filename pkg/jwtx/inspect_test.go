package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/neoschool/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestCheckShape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
		ok    bool
	}{
		{"three segments", "eyJhbGciOiJIUzUxMiJ9.eyJzdWIiOiIxIn0.c2ln", true},
		{"two segments", "eyJhbGciOiJIUzUxMiJ9.eyJzdWIiOiIxIn0", false},
		{"four segments", "a.b.c.d", false},
		{"empty segment", "eyJhbGciOiJIUzUxMiJ9..c2ln", false},
		{"not base64url", "a+b.c/d.e*f", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := jwtx.CheckShape(tt.token)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, jwtx.ErrMalformed)
			}
		})
	}
}

func TestInspectAndExpired(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewSignerHS512(testSecret)
	require.NoError(t, err)

	now := time.Now().UTC()
	token, err := signer.Sign(jwtx.NewAccessClaims("u", "bob", []string{"ROLE_ADMIN"}, time.Minute, exampleIssuer, now))
	require.NoError(t, err)

	claims, err := jwtx.Inspect(token)
	require.NoError(t, err)
	require.Equal(t, "bob", claims.Username)
	require.True(t, claims.HasRole("ROLE_ADMIN"))

	require.False(t, jwtx.Expired(token, now))
	require.True(t, jwtx.Expired(token, now.Add(2*time.Minute)))
	require.False(t, jwtx.Expired("not-a-token", now))
}
