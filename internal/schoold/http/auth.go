package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/neoschool/internal/schoold/service"
	"github.com/aussiebroadwan/neoschool/pkg/httpx"
	"github.com/aussiebroadwan/neoschool/pkg/slogx"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// RefreshRequest is the body of POST /api/auth/refresh-token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required,max=512"`
}

// AuthHandler serves the /api/auth endpoints.
type AuthHandler struct {
	AuthService *service.AuthService
}

// HandleLogin exchanges a username and password for a token pair.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if verr := validateStruct(req); verr != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, verr)
		return
	}

	pair, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		return
	case err != nil:
		slogx.FromContext(r.Context()).Error("login failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An error occurred during login")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleRefresh rotates a refresh token. Any unusable token yields 401.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if verr := validateStruct(req); verr != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, verr)
		return
	}

	pair, err := h.AuthService.Refresh(r.Context(), req.RefreshToken)
	switch {
	case errors.Is(err, service.ErrInvalidRefresh):
		slogx.FromContext(r.Context()).Warn("token refresh rejected")
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_refresh_token", "Refresh token is invalid or expired")
		return
	case err != nil:
		slogx.FromContext(r.Context()).Error("token refresh failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An error occurred while refreshing token")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleLogout revokes the caller's access token and refresh tokens. It
// runs behind AuthnMiddleware.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}

	if err := h.AuthService.Logout(r.Context(), claims); err != nil {
		slogx.FromContext(r.Context()).Error("logout failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An error occurred during logout")
		return
	}

	slogx.FromContext(r.Context()).Info("staff member logged out", "username", httpx.UsernameFromContext(r.Context()))
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// HandleCheckSession answers with a bare JSON boolean. It never fails:
// a missing, invalid or revoked token is simply false.
func (h *AuthHandler) HandleCheckSession(w http.ResponseWriter, r *http.Request) {
	token, ok := httpx.BearerToken(r)
	valid := ok && h.AuthService.CheckSession(r.Context(), token)

	httpx.WriteJSON(w, http.StatusOK, valid)
}
