package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/cadence/internal/shared"
)

// RateLimitError is surfaced after throttling retries are exhausted.
// RetryAfter carries the server's advisory wait for user-facing messaging.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return shared.ErrRateLimited }

// ServerError is surfaced when the remote service keeps failing with 5xx
// after the single retry.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: status %d", e.Status)
}

func (e *ServerError) Unwrap() error { return shared.ErrServerFailure }

// APIError is a non-retryable 4xx response. Message comes from the response
// body when the service provides one, else from the status line.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return shared.ErrAPIRequest }

// IsRateLimited reports whether err was caused by throttling, across any
// number of wrapping layers.
func IsRateLimited(err error) bool {
	return errors.Is(err, shared.ErrRateLimited)
}

// RetryAfter extracts the advisory wait from a rate-limit error, or zero.
func RetryAfter(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}
