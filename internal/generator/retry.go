package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// RetryConfig bounds retries of a failed collaborator call
type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the retry policy used when none is configured
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialDelay:      time.Second,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2,
	}
}

func (c RetryConfig) delay(attempt int) time.Duration {
	multiplier := c.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	d := time.Duration(float64(c.InitialDelay) * math.Pow(multiplier, float64(attempt)))
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// WithRetry runs fn until it succeeds, returns a non-retryable error,
// the retries are exhausted or ctx is done
func WithRetry(ctx context.Context, cfg RetryConfig, retryable func(error) bool, fn func() error) error {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		attempts++
		err := fn()
		if err == nil {
			if attempt > 0 {
				slog.Debug("generator call succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}
		lastErr = err

		if attempt == cfg.MaxRetries || (retryable != nil && !retryable(err)) {
			break
		}

		delay := cfg.delay(attempt)
		slog.Warn("generator call failed, retrying",
			"attempt", attempt+1,
			"max_retries", cfg.MaxRetries,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(delay):
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("generator failed after %d attempts: %w", attempts, lastErr)
}

// isRetryable reports whether a generator error may succeed on retry.
// Malformed output is retried since model output varies per call.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrProcess) || errors.Is(err, ErrUpstream) ||
		errors.Is(err, ErrTimeout) || errors.Is(err, ErrMalformed)
}
