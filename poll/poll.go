package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

var (
	// ErrTimeout is returned when the policy is exhausted before the condition holds
	ErrTimeout = errors.New("poll timeout")

	retryableErrors []error
)

// RegisterRetryable marks sentinel errors meaning "not ready yet". Packages register
// their own not-ready errors at init.
func RegisterRetryable(errs ...error) {
	retryableErrors = append(retryableErrors, errs...)
}

// IsRetryable returns true if err wraps one of the registered not-ready errors
func IsRetryable(err error) bool {
	for _, retryable := range retryableErrors {
		if errors.Is(err, retryable) {
			return true
		}
	}

	return false
}

// Policy is the caller owned polling policy. A zero Timeout or MaxAttempts means no limit.
type Policy struct {
	Interval    time.Duration `json:"interval" yaml:"interval"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	MaxAttempts uint64        `json:"max_attempts" yaml:"max_attempts"`
}

// DefaultPolicy returns the default polling policy
func DefaultPolicy() Policy {
	return Policy{
		Interval:    time.Second,
		Timeout:     5 * time.Minute,
		MaxAttempts: 0,
	}
}

func (p Policy) backoff() retry.Backoff {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}

	b := retry.NewConstant(interval)

	if p.MaxAttempts > 0 {
		b = retry.WithMaxRetries(p.MaxAttempts-1, b)
	}

	if p.Timeout > 0 {
		b = retry.WithMaxDuration(p.Timeout, b)
	}

	return b
}

// Do calls fn until it succeeds or returns an error that is not retryable.
// Retryable errors are retried according to the policy; when the policy is exhausted
// the last retryable error is returned wrapped in ErrTimeout.
func Do(ctx context.Context, policy Policy, fn func(context.Context) error) error {
	attempts := uint64(0)

	err := retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		attempts++

		err := fn(ctx)
		if err != nil && IsRetryable(err) {
			return retry.RetryableError(err)
		}

		return err
	})

	if err != nil && IsRetryable(err) {
		return fmt.Errorf("%w after %d attempts: %w", ErrTimeout, attempts, err)
	}

	return err
}

// Until polls cond until it reports done, an error occurs or the policy is exhausted
func Until(ctx context.Context, policy Policy, cond func(context.Context) (bool, error)) error {
	return Do(ctx, policy, func(ctx context.Context) error {
		done, err := cond(ctx)
		if err != nil {
			return err
		}

		if !done {
			return errNotDone
		}

		return nil
	})
}

var errNotDone = errors.New("condition not met")

func init() {
	RegisterRetryable(errNotDone)
}
