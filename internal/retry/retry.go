// Package retry wraps a flaky operation in a bounded, sequential retry loop.
//
// The loop never invents its own errors: when all attempts are spent the
// caller receives the last error exactly as the operation produced it, so
// diagnostic information (message, wrapped chain) survives the retries.
package retry

import (
	"context"
	"time"
)

// DefaultMaxAttempts is used when no WithMaxAttempts option is given.
const DefaultMaxAttempts = 3

// Func is a retryable operation that produces no value.
type Func func(ctx context.Context) error

// options holds the per-invocation retry configuration. It is assembled from
// the defaults plus the Option values and never mutated afterwards.
type options struct {
	maxAttempts int
	delay       time.Duration
	exponential bool
	shouldRetry func(error) bool
	onRetry     func(attempt int, err error)
}

// Option configures a single Do/DoValue invocation.
type Option func(*options)

// WithMaxAttempts bounds the number of attempts. Values below 1 are clamped
// to 1; the operation always runs at least once.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.maxAttempts = n
	}
}

// WithDelay sets the base wait between attempts. Negative values are treated
// as zero.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}
		o.delay = d
	}
}

// WithExponentialBackoff doubles the wait after every failed attempt:
// delay * 2^(attempt-1), where attempt is the 1-indexed attempt that just
// failed.
func WithExponentialBackoff() Option {
	return func(o *options) { o.exponential = true }
}

// WithShouldRetry installs a predicate consulted before each retry (never
// before the first attempt). Returning false stops the loop immediately and
// surfaces the error that was passed to the predicate.
func WithShouldRetry(fn func(error) bool) Option {
	return func(o *options) { o.shouldRetry = fn }
}

// WithOnRetry installs an observer invoked before each wait with the
// 1-indexed attempt number that just failed and its error. Intended for
// logging; the observer cannot influence the loop.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(o *options) { o.onRetry = fn }
}

// Do runs op until it succeeds or the attempt budget is spent.
func Do(ctx context.Context, op Func, opts ...Option) error {
	_, err := DoValue(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

// DoValue runs op until it succeeds or the attempt budget is spent, returning
// the value of the successful attempt. On terminal failure the zero value is
// returned together with the last attempt's error, unchanged.
func DoValue[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	cfg := options{maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(&cfg)
	}

	var zero T
	var lastErr error
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt >= cfg.maxAttempts {
			return zero, lastErr
		}
		if cfg.shouldRetry != nil && !cfg.shouldRetry(lastErr) {
			return zero, lastErr
		}
		if cfg.onRetry != nil {
			cfg.onRetry(attempt, lastErr)
		}
		if err := sleep(ctx, backoff(cfg, attempt)); err != nil {
			// Context cancelled mid-wait. The caller cares about what the
			// operation did, not about the timer, so keep the last error.
			return zero, lastErr
		}
	}
}

// backoff computes the wait after the given 1-indexed failed attempt.
func backoff(cfg options, attempt int) time.Duration {
	if !cfg.exponential || attempt <= 1 {
		return cfg.delay
	}
	// delay * 2^(attempt-1), with the shift capped so a large attempt count
	// cannot overflow the duration.
	shift := attempt - 1
	if shift > 32 {
		shift = 32
	}
	return cfg.delay * time.Duration(1<<uint(shift))
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
