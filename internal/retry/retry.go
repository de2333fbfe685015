// Package retry provides exponential backoff for transient failures.
//
// The backoff for attempt n is InitialBackoff * 2^(n-1), optionally
// capped by MaxBackoff and spread with jitter. All waits respect
// context cancellation.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config defines the retry behavior.
//
// The zero value is not usable; MaxRetries and InitialBackoff must be
// set.
type Config struct {
	// MaxRetries is the maximum number of attempts. Must be > 0.
	MaxRetries int

	// InitialBackoff is the base backoff duration, doubled on every
	// subsequent attempt. Must be > 0.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff. Zero means no cap.
	MaxBackoff time.Duration

	// Jitter adds randomness to backoff (0.0 to 1.0 of the backoff),
	// growing linearly with the attempt number. Zero means no jitter.
	Jitter float64
}

// ShouldRetryFunc decides whether an error is worth retrying. A nil
// function retries every error.
type ShouldRetryFunc func(error) bool

// Do runs fn up to cfg.MaxRetries times, backing off between attempts.
// It returns nil as soon as fn succeeds, the error unchanged when
// shouldRetry rejects it, the context error if ctx is done during a
// backoff wait, and otherwise the last error wrapped with the attempt
// count.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffFor(cfg, attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

func backoffFor(cfg Config, attempt int) time.Duration {
	backoff := time.Duration(math.Pow(2, float64(attempt-1)) * float64(cfg.InitialBackoff))
	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}
	if cfg.Jitter > 0 && cfg.MaxRetries > 0 {
		scale := cfg.Jitter * float64(attempt) / float64(cfg.MaxRetries)
		backoff += time.Duration(rand.Float64() * scale * float64(backoff))
	}
	return backoff
}
