package poll

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errPending = errors.New("pending")

func init() {
	RegisterRetryable(errPending)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"sentinel", errPending, true},
		{"wrapped", fmt.Errorf("batch 3: %w", errPending), true},
		{"other", errors.New("bad request"), false},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, c.retryable, IsRetryable(c.err))
		})
	}
}

func TestDo_ConvergesWithinAttempts(t *testing.T) {
	t.Parallel()

	var calls int32

	err := Do(context.Background(), Policy{Interval: time.Millisecond, MaxAttempts: 5}, func(context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errPending
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_MaxAttempts(t *testing.T) {
	t.Parallel()

	var calls int32

	err := Do(context.Background(), Policy{Interval: time.Millisecond, MaxAttempts: 4}, func(context.Context) error {
		atomic.AddInt32(&calls, 1)

		return errPending
	})

	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, errPending)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestDo_Timeout(t *testing.T) {
	t.Parallel()

	start := time.Now()

	err := Do(context.Background(), Policy{Interval: 5 * time.Millisecond, Timeout: 50 * time.Millisecond},
		func(context.Context) error {
			return errPending
		})

	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDo_NonRetryableAbortsImmediately(t *testing.T) {
	t.Parallel()

	var calls int32

	errBad := errors.New("malformed")

	err := Do(context.Background(), Policy{Interval: time.Millisecond, MaxAttempts: 10}, func(context.Context) error {
		atomic.AddInt32(&calls, 1)

		return errBad
	})

	require.ErrorIs(t, err, errBad)
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, Policy{Interval: time.Millisecond}, func(context.Context) error {
		return errPending
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestUntil(t *testing.T) {
	t.Parallel()

	var calls int32

	require.NoError(t, Until(context.Background(), Policy{Interval: time.Millisecond, MaxAttempts: 10},
		func(context.Context) (bool, error) {
			return atomic.AddInt32(&calls, 1) == 5, nil
		}))
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))

	err := Until(context.Background(), Policy{Interval: time.Millisecond, MaxAttempts: 2},
		func(context.Context) (bool, error) {
			return false, nil
		})
	require.ErrorIs(t, err, ErrTimeout)
}
