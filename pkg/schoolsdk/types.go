package schoolsdk

import (
	"time"

	"github.com/aussiebroadwan/neoschool/pkg/credstore"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /auth/refresh-token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse is returned by login and refresh. Older backends name the
// access token "token", newer ones "accessToken"; both are accepted.
type TokenResponse struct {
	Token        string   `json:"token,omitempty"`
	AccessToken  string   `json:"accessToken,omitempty"`
	RefreshToken string   `json:"refreshToken,omitempty"`
	Type         string   `json:"type,omitempty"`
	Username     string   `json:"username,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	ExpiresIn    int      `json:"expiresIn,omitempty"`
}

// BearerToken returns the access token with any "Bearer " prefix removed.
func (t *TokenResponse) BearerToken() string {
	if t.AccessToken != "" {
		return credstore.StripBearer(t.AccessToken)
	}
	return credstore.StripBearer(t.Token)
}

// User is the signed-in staff member as seen by the SDK.
type User struct {
	Username   string
	Roles      []string
	ExpiresAt  time.Time
	Persistent bool
}
