package harvester

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TWStockHarvester/internal/common"
)

func TestRetry_StopsOnSuccess(t *testing.T) {
	sleeps := &sleepRecorder{}
	calls := 0
	err := retry(context.Background(), common.NewSilentLogger(), testPolicy, sleeps.sleep, "2330", func(attempt int) error {
		calls++
		assert.Equal(t, calls, attempt)
		if attempt < 2 {
			return errors.New("flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{time.Second}, sleeps.waits)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := retry(context.Background(), common.NewSilentLogger(), RetryPolicy{}, (&sleepRecorder{}).sleep, "2330", func(int) error {
		calls++
		return errors.New("down")
	})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, calls)
}

func TestRetry_CancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{Attempts: 3, Backoff: time.Hour}
	err := retry(ctx, common.NewSilentLogger(), policy, sleepCtx, "2330", func(int) error {
		cancel()
		return errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
}

func TestSleepCtx(t *testing.T) {
	require.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}

func TestRetriesExhaustedError_Message(t *testing.T) {
	err := &RetriesExhaustedError{Ticker: "2330", Attempts: 3, Cause: errors.New("boom")}
	assert.Equal(t, "ticker 2330: 3 attempt(s) failed: boom", err.Error())
}
