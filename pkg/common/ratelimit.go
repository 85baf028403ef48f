package common

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a byte budget shared by every worker.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a RateLimiter that allows rps events per second with
// the given burst. A non-positive rps disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Wait blocks until the rate limiter allows an event or the context is canceled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.WaitN(ctx, 1)
}

// WaitN blocks until n events are allowed. Requests larger than the burst are
// split so large reads do not fail outright.
func (rl *RateLimiter) WaitN(ctx context.Context, n int) error {
	burst := rl.limiter.Burst()
	if burst <= 0 {
		burst = 1
	}
	for n > 0 {
		step := min(n, burst)
		if err := rl.limiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
