package clients

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned after the authenticated client saw a 401 and wiped the session credentials.
	ErrUnauthorized = errors.New("session expired, please log in again")
	// ErrNetwork wraps transport failures (timeouts, refused connections, undecodable bodies).
	ErrNetwork = errors.New("unable to reach the academy server")
)

// APIError is a non-2xx answer from the backend, carrying the server's own message.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return e.Message
}

// IsBusinessRejection reports whether err is a 4xx refusal (slot taken, plan not found, ...).
func IsBusinessRejection(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != http.StatusUnauthorized
}

// StatusOf returns the backend status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
