package jwtx

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CheckShape reports whether token looks like a compact JWS: exactly three
// non-empty base64url segments. It does not verify anything.
func CheckShape(token string) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformed, len(parts))
	}
	for i, p := range parts {
		if p == "" {
			return fmt.Errorf("%w: segment %d is empty", ErrMalformed, i)
		}
		if _, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(p, "=")); err != nil {
			return fmt.Errorf("%w: segment %d: %v", ErrMalformed, i, err)
		}
	}
	return nil
}

// Inspect decodes the claims of token without verifying its signature.
// Clients use it to read exp and roles from tokens they cannot verify.
func Inspect(token string) (*Claims, error) {
	if err := CheckShape(token); err != nil {
		return nil, err
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}

// Expired reports whether an unverified token's exp claim is at or before
// now. Tokens without exp, or that cannot be decoded, count as not expired;
// the server is the authority on those.
func Expired(token string, now time.Time) bool {
	claims, err := Inspect(token)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}
