package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffFactor:   2.0,
		MaxTotalTimeout: time.Second,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), testConfig(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), testConfig(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("always fails")
	calls := 0
	err := Do(context.Background(), testConfig(), func(ctx context.Context) error {
		calls++
		return sentinel
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, sentinel)
}

func TestDo_PermanentErrorShortCircuits(t *testing.T) {
	sentinel := errors.New("credentials rejected")
	cfg := testConfig()
	cfg.Permanent = func(err error) bool { return errors.Is(err, sentinel) }

	calls := 0
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return fmt.Errorf("calling backend: %w", sentinel)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "permanent errors abort without further attempts")
	assert.ErrorIs(t, err, sentinel)
}

func TestDo_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, testConfig(), func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_TotalTimeoutBoundsRun(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 100
	cfg.InitialDelay = 20 * time.Millisecond
	cfg.MaxDelay = 20 * time.Millisecond
	cfg.MaxTotalTimeout = 50 * time.Millisecond

	start := time.Now()
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
