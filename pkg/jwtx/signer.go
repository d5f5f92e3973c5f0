package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLen is the shortest HMAC secret we accept for HS512.
const MinSecretLen = 32

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// HS512Signer signs tokens with a shared HMAC-SHA512 secret.
type HS512Signer struct {
	secret []byte
}

// NewSignerHS512 creates an HS512 signer. The secret must be at least
// MinSecretLen bytes.
func NewSignerHS512(secret []byte) (*HS512Signer, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("jwtx: HS512 secret must be at least %d bytes", MinSecretLen)
	}
	return &HS512Signer{secret: append([]byte(nil), secret...)}, nil
}

func (s *HS512Signer) Alg() string { return jwt.SigningMethodHS512.Alg() }

// Sign takes your claims and turns them into a signed JWT string.
func (s *HS512Signer) Sign(claims Claims) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("jwtx: nil HS512 secret")
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return t.SignedString(s.secret)
}
