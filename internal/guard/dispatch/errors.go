package dispatch

import (
	"errors"
	"fmt"
)

// Error definitions
var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrUnsafeURL      = errors.New("unsafe url")
	ErrSpawnFailed    = errors.New("failed to spawn process")
	ErrLaunchFailed   = errors.New("failed to open url externally")
	ErrNotConfigured  = errors.New("collaborator not configured")
)

// RateLimitedError is returned when a channel's bucket is empty.
// It wraps ErrRateLimited so callers can use errors.Is(err, ErrRateLimited).
type RateLimitedError struct {
	Channel Channel
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded on channel %s", e.Channel)
}

// Unwrap returns the sentinel ErrRateLimited for error chain checks.
func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}
