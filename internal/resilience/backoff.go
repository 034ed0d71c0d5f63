package resilience

import (
	"context"
	"math"
	"time"
)

// BackoffConfig controls exponential backoff between retry attempts
type BackoffConfig struct {
	Initial    time.Duration // backoff before the second attempt
	Max        time.Duration // backoff ceiling
	Multiplier float64       // growth factor per attempt
}

// DefaultBackoffConfig returns the backoff used for synthesis backend retries
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        5 * time.Second,
		Multiplier: 2.0,
	}
}

// Delay returns the backoff duration before retry attempt n (0-based:
// Delay(0) is the wait after the first failure).
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := time.Duration(float64(c.Initial) * math.Pow(c.Multiplier, float64(attempt)))
	if d > c.Max {
		return c.Max
	}
	return d
}

// Wait sleeps for the attempt's backoff or returns early if the context is
// cancelled. Returns the context error on cancellation.
func (c BackoffConfig) Wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.Delay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
