package source

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the graph data sources.
var (
	// ErrNotFound indicates the graph endpoint was not found.
	ErrNotFound = errors.New("graph endpoint not found")

	// ErrAuth indicates an authentication error (missing/invalid API key).
	ErrAuth = errors.New("graph API authentication error")

	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("graph API rate limit exceeded")

	// ErrNetwork indicates a network connectivity issue.
	ErrNetwork = errors.New("network error communicating with graph API")

	// ErrInvalidResponse indicates a body that is not a valid snapshot.
	ErrInvalidResponse = errors.New("invalid response from graph API")

	// ErrTimeout indicates the request deadline passed.
	ErrTimeout = errors.New("graph API request timed out")

	// ErrNoCache indicates the SQLite cache has not been built.
	ErrNoCache = errors.New("snapshot cache not built")
)

// APIError represents a non-2xx response from the graph API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph API error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuth) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
