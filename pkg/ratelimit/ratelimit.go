package ratelimit

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces the starts of consecutive operations at least delay apart,
// optionally adding random extra wait. Time spent inside an operation counts
// toward the spacing, so an operation slower than delay is followed without
// a pause. The first call never blocks. It is safe for concurrent use by
// multiple goroutines.
type Limiter struct {
	lim    *rate.Limiter
	delay  time.Duration
	jitter float64 // 0.0 to 1.0
}

// NewLimiter creates a limiter that allows one operation per delay. Jitter is
// clamped to [0, 1]. If delay is <= 0, the limiter does not block.
func NewLimiter(delay time.Duration, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	if delay <= 0 {
		return &Limiter{jitter: jitter}
	}

	return &Limiter{
		lim:    rate.NewLimiter(rate.Every(delay), 1),
		delay:  delay,
		jitter: jitter,
	}
}

// Wait blocks until the next operation may start, or until ctx is done.
// A nil Limiter never blocks.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.lim == nil {
		return ctx.Err()
	}

	if err := l.lim.Wait(ctx); err != nil {
		return err
	}

	if l.jitter > 0 {
		extra := time.Duration(float64(l.delay) * l.jitter * rand.Float64())
		if extra > 0 {
			t := time.NewTimer(extra)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}
