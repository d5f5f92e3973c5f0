package credstore

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/neoschool/pkg/jwtx"
)

// DefaultExpiresIn is assumed when the backend omits expiresIn.
const DefaultExpiresIn = 3600

var ErrInvalidRecord = errors.New("credstore: invalid record")

// Record is the credential record for the current user.
type Record struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	Username     string    `json:"username"`
	Roles        []string  `json:"roles,omitempty"`
	ExpiresIn    int       `json:"expiresIn"`
	ExpiresAt    time.Time `json:"expiresAt"`

	// Persistent reports whether the record was read from the durable tier.
	Persistent bool `json:"-"`
}

// StripBearer removes a leading "Bearer " scheme from a token value.
func StripBearer(token string) string {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

// Validate checks the invariants every stored record must satisfy.
func (r Record) Validate() error {
	if r.Username == "" {
		return fmt.Errorf("%w: missing username", ErrInvalidRecord)
	}
	if err := jwtx.CheckShape(r.AccessToken); err != nil {
		return fmt.Errorf("%w: access token: %v", ErrInvalidRecord, err)
	}
	return nil
}

// HasRole reports whether the user holds role.
func (r Record) HasRole(role string) bool {
	return slices.Contains(r.Roles, role)
}

// HasRefreshToken reports whether a refresh can be attempted.
func (r Record) HasRefreshToken() bool {
	return r.RefreshToken != ""
}

// ExpiresWithin reports whether the access token expires within d of now.
// Records without a known expiry never report true.
func (r Record) ExpiresWithin(now time.Time, d time.Duration) bool {
	if r.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(d).Before(r.ExpiresAt)
}

// normalize fills derived fields before the record is written.
func (r Record) normalize(now time.Time) Record {
	r.AccessToken = StripBearer(r.AccessToken)
	if r.ExpiresIn <= 0 {
		r.ExpiresIn = DefaultExpiresIn
	}
	if r.ExpiresAt.IsZero() {
		r.ExpiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second).UTC()
	}
	r.Roles = slices.Clone(r.Roles)
	return r
}
