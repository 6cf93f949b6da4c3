package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks transport-level failures (DNS, connection refused,
	// timeouts). Never retried by the executor.
	ErrNetwork = fmt.Errorf("network unreachable")

	// ErrRetriesExhausted wraps the last error after the executor has spent
	// its retry budget. The underlying error stays reachable via errors.As.
	ErrRetriesExhausted = fmt.Errorf("retries exhausted")
)

// APIError is a structured Spotify Web API failure carrying the HTTP status
// and, for 429 responses, the Retry-After hint in seconds.
//
// The executor is the only component that inspects it for retry decisions;
// everything else treats it as opaque.
type APIError struct {
	Status     int
	RetryAfter int // seconds, 0 when absent or unparsable
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.Status)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Message)
}

// RateLimited reports whether the error is a 429 response.
func (e *APIError) RateLimited() bool {
	return e.Status == 429
}

// ServerError reports whether the error is a 5xx response.
func (e *APIError) ServerError() bool {
	return e.Status >= 500 && e.Status <= 599
}

// Retryable reports whether the executor may retry the request.
// Rate limits and server errors are retryable; all other statuses are not.
func (e *APIError) Retryable() bool {
	return e.RateLimited() || e.ServerError()
}

// Error categories for user-facing messages.
const (
	CategoryRateLimit      = "rate_limit"
	CategoryAuthentication = "authentication"
	CategoryServer         = "server_error"
	CategoryNetwork        = "network_error"
	CategoryClient         = "client_error"
	CategoryUnknown        = "unknown"
)

// Classify maps an error into a user-facing category.
func Classify(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == 429:
			return CategoryRateLimit
		case apiErr.Status == 401 || apiErr.Status == 403:
			return CategoryAuthentication
		case apiErr.ServerError():
			return CategoryServer
		case apiErr.Status >= 400:
			return CategoryClient
		}
	}

	if errors.Is(err, ErrNetwork) {
		return CategoryNetwork
	}

	return CategoryUnknown
}

// UserMessage returns a short human-readable message for an error category.
func UserMessage(category string) string {
	switch category {
	case CategoryRateLimit:
		return "Spotify API rate limit reached. Please try again in a few minutes."
	case CategoryAuthentication:
		return "Your Spotify session has expired. Please log in again."
	case CategoryServer:
		return "Spotify services are temporarily unavailable. Please try again later."
	case CategoryNetwork:
		return "Unable to connect to Spotify. Check your internet connection."
	case CategoryClient:
		return "Invalid request. Please check your input and try again."
	default:
		return "An unexpected error occurred. Please try again."
	}
}
