package apiclient

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig controls Retry. Delay before retry n (0-based) is BaseDelay * 2^n.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: time.Second}
}

// Retry calls fn until it succeeds, fails with a non-retryable error, or
// MaxRetries retries have been spent.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := RetryValue(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryValue is Retry for functions that return a value.
func RetryValue[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !IsRetryable(err) {
			return zero, err
		}
		if attempt >= cfg.MaxRetries {
			if attempt == 0 {
				return zero, err
			}
			return zero, fmt.Errorf("giving up after %d retries: %w", attempt, err)
		}

		delay := cfg.BaseDelay << attempt
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
