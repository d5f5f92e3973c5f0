package schoolsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// ErrSessionExpired is returned to every request that waited on a failed
	// refresh. The credential record has been cleared when it is returned.
	ErrSessionExpired = errors.New("schoolsdk: session expired, please log in again")

	// ErrNoRefreshToken means a refresh was needed but the record holds no
	// refresh token. It is always wrapped together with ErrSessionExpired.
	ErrNoRefreshToken = errors.New("schoolsdk: no refresh token available")

	// ErrNotLoggedIn is returned by operations that need a record when the
	// store is empty.
	ErrNotLoggedIn = errors.New("schoolsdk: not logged in")

	// Status classes matched by *APIError through errors.Is.
	ErrUnauthorized = errors.New("schoolsdk: unauthorized")
	ErrForbidden    = errors.New("schoolsdk: forbidden")
	ErrNotFound     = errors.New("schoolsdk: not found")
)

// IsAuthFailure reports whether err means the caller must log in again.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrUnauthorized)
}

// ============================================================================
// APIError
// ============================================================================

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("HTTP %d: %s: %s", e.StatusCode, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	case e.Code != "":
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
}

// Is lets callers match status classes with errors.Is(err, ErrUnauthorized).
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// parseErrorResponse builds an APIError from an error body. The backend
// writes {"error", "message"}; anything else is kept as plain text.
func parseErrorResponse(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && (payload.Error != "" || payload.Message != "") {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
