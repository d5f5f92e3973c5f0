package domain

import "time"

// TokenPair is what login and refresh return. The field names follow the
// dashboard's existing contract: "token" rather than "access_token".
type TokenPair struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	Type         string   `json:"type"`
	Username     string   `json:"username"`
	Roles        []string `json:"roles"`
	ExpiresIn    int64    `json:"expiresIn"` // seconds until the access token expires
}

// RefreshToken models a stored refresh token. Only its fingerprint is kept.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Revocation marks an access token id as logged out until the token would
// have expired anyway.
type Revocation struct {
	JTI       string
	ExpiresAt time.Time
}
