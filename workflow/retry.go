package workflow

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy controls how often a node's execute phase is attempted.
// MaxAttempts counts every call, so 1 means no retry.
type RetryPolicy struct {
	MaxAttempts int
	// Delay is the wait before the second attempt.
	Delay time.Duration
	// Multiplier grows the delay between later attempts (1 = fixed delay).
	Multiplier float64
	// MaxDelay caps the grown delay (0 = no cap).
	MaxDelay time.Duration
	// Jitter spreads each delay by ±25%.
	Jitter bool
}

// DefaultRetryPolicy runs execute exactly once.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1, Multiplier: 1}
}

// normalized clamps out-of-range values instead of rejecting them.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.MaxDelay < 0 {
		p.MaxDelay = 0
	}
	return p
}

// delayBefore returns the wait before retry number n (n >= 1).
func (p RetryPolicy) delayBefore(n int) time.Duration {
	if p.Delay == 0 {
		return 0
	}
	delay := float64(p.Delay) * math.Pow(p.Multiplier, float64(n-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.Jitter {
		jitter := delay * 0.25
		delay += (rand.Float64()*2 - 1) * jitter
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// permanentError marks an execute failure that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the engine skips the remaining attempts and goes
// straight to the fallback.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// waitFunc pauses between attempts. Synchronous nodes block, asynchronous
// nodes suspend.
type waitFunc func(ctx context.Context, d time.Duration) error

// blockingWait sleeps on the calling goroutine, returning early on
// cancellation.
func blockingWait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
