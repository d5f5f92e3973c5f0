package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// RefreshTokenBytes is the entropy of an opaque refresh token.
const RefreshTokenBytes = 32

// RandomString returns n random bytes, base64url encoded without padding.
func RandomString(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("random string length must be positive, got %d", n)
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewRefreshToken mints an opaque refresh token. The raw value goes to the
// client once; only the fingerprint is kept server-side.
func NewRefreshToken() (raw, fingerprint string, err error) {
	raw, err = RandomString(RefreshTokenBytes)
	if err != nil {
		return "", "", err
	}
	return raw, Fingerprint(raw), nil
}

// Fingerprint is the lookup key for a refresh token: SHA-256, base64url.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
