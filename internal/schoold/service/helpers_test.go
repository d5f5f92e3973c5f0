package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/neoschool/internal/schoold/domain"
	"github.com/aussiebroadwan/neoschool/internal/schoold/store/drivers/memory"
	"github.com/aussiebroadwan/neoschool/pkg/cryptox"
	"github.com/aussiebroadwan/neoschool/pkg/jwtx"
	"github.com/aussiebroadwan/neoschool/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testIssuer   = "neoschool-test"
	testUsername = "principal"
	testPassword = "Admin123!"
)

// newAuthService returns an AuthService over a fresh memory store with one
// seeded admin account.
func newAuthService(t *testing.T) *AuthService {
	t.Helper()

	st := memory.NewStore()
	hasher := cryptox.NewHasher("test-pepper")

	signer, err := jwtx.NewSignerHS512([]byte(testSecret))
	require.NoError(t, err)

	boot := &BootstrapService{Store: st, Hasher: hasher}
	require.NoError(t, boot.Seed(testContext(), Account{
		Username: testUsername,
		Password: testPassword,
		Roles:    []string{domain.RoleAdmin},
	}))

	return &AuthService{
		Store:      st,
		Hasher:     hasher,
		Signer:     signer,
		Verifier:   jwtx.NewVerifierHS512([]byte(testSecret), testIssuer, 0),
		Issuer:     testIssuer,
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
	}
}

func testContext() context.Context {
	return slogx.WithContext(context.Background(), slogx.Discard())
}

// fixedClock returns a Now func pinned to t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
