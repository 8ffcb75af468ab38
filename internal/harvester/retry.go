package harvester

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"TWStockHarvester/internal/collector"
)

// ErrRetriesExhausted marks a ticker that failed every attempt. It aborts the run.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetriesExhaustedError carries the ticker and the last underlying failure.
type RetriesExhaustedError struct {
	Ticker   string
	Attempts int
	Cause    error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("ticker %s: %d attempt(s) failed: %v", e.Ticker, e.Attempts, e.Cause)
}

// Unwrap exposes both the sentinel and the cause to errors.Is and errors.As.
func (e *RetriesExhaustedError) Unwrap() []error {
	return []error{ErrRetriesExhausted, e.Cause}
}

// RetryPolicy bounds attempts per ticker.
type RetryPolicy struct {
	Attempts         int
	Backoff          time.Duration
	RateLimitBackoff time.Duration
	// RateLimitFatal aborts on the first rate-limit signal instead of waiting.
	RateLimitFatal bool
}

// DefaultRetryPolicy is three attempts, 10s between plain failures and an
// hour after a rate-limit signal.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:         3,
	Backoff:          10 * time.Second,
	RateLimitBackoff: time.Hour,
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retry runs fn until it succeeds or the policy gives up. Cancellation of
// ctx is returned as is; every other terminal failure is a
// RetriesExhaustedError.
func retry(ctx context.Context, logger arbor.ILogger, policy RetryPolicy, sleep sleepFunc, ticker string, fn func(attempt int) error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rateLimited := collector.IsRateLimit(err)
		logger.Warn().Err(err).Str("ticker", ticker).Int("attempt", attempt).Int("max_attempts", attempts).
			Bool("rate_limited", rateLimited).Msg("Ticker attempt failed")

		if rateLimited && policy.RateLimitFatal {
			return &RetriesExhaustedError{Ticker: ticker, Attempts: attempt, Cause: err}
		}
		if attempt == attempts {
			break
		}

		wait := policy.Backoff
		if rateLimited {
			wait = policy.RateLimitBackoff
		}
		logger.Info().Str("ticker", ticker).Str("backoff", wait.String()).Msg("Waiting before retry")
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return &RetriesExhaustedError{Ticker: ticker, Attempts: attempts, Cause: err}
}
