package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthRequired   = fmt.Errorf("authentication required")
	ErrUnauthorized   = fmt.Errorf("unauthorized")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// Playback errors
	ErrDeviceNotFound   = fmt.Errorf("device not found")
	ErrRetriesExhausted = fmt.Errorf("retries exhausted")
	ErrLoadTimeout      = fmt.Errorf("player did not become ready")
	ErrNoDevice         = fmt.Errorf("playback device not registered")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrUnsupportedRef     = fmt.Errorf("unsupported playlist reference")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// UpstreamError is returned when a provider answers with a status that is neither success nor one of the
// specially handled shapes (auth failure, missing device). Status and body are kept verbatim.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API error: status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Status, e.Body)
}

// Unwrap lets callers match any upstream failure with [ErrAPIRequest].
func (e *UpstreamError) Unwrap() error {
	return ErrAPIRequest
}

// IsAuthError reports whether err is a credential failure that should clear the stored session.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNoRefreshToken) || errors.Is(err, ErrRefreshFailed)
}
