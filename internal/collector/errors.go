package collector

import (
	"errors"
	"fmt"
)

// RateLimitError is an explicit quota or authorization refusal from an
// upstream source. Callers back off longer, or give up, on this error.
type RateLimitError struct {
	Source  string
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited: %s", e.Source, e.Message)
}

// APIError is a non-success upstream response that is not a rate limit.
type APIError struct {
	Source     string
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d from %s: %s", e.Source, e.StatusCode, e.Endpoint, e.Message)
}

// ValidationError is a payload that cannot be decoded into the expected shape.
type ValidationError struct {
	Source string
	Ticker string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid payload for %s: %v", e.Source, e.Ticker, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsRateLimit reports whether err carries a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// truncate keeps error bodies readable in logs.
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
