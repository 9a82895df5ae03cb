package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket in front of every metadata provider call.
// It enforces a steady-state rate sized under the provider's published
// request-rate ceiling. Burst is set equal to the rate so no extra burst
// capacity accumulates beyond the configured per-second maximum.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter granting ratePerSec tokens per second.
func New(ratePerSec int) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)}
}

// Wait blocks until the limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
