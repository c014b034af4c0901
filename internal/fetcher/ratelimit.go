package fetcher

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit is the throttling policy consulted before every outbound request:
// a hard requests-per-second ceiling followed by a random delay in [MinDelay, MaxDelay].
type RateLimit struct {
	MinDelay time.Duration
	MaxDelay time.Duration

	limiter *rate.Limiter
	// Sleep is replaceable so tests do not have to wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimit creates a policy, perSecond <= 0 disables the ceiling.
func NewRateLimit(minDelay, maxDelay time.Duration, perSecond float64) *RateLimit {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	r := &RateLimit{
		MinDelay: minDelay,
		MaxDelay: maxDelay,
		Sleep:    sleepContext,
	}
	if perSecond > 0 {
		// burst of 1 so that back to back requests are always spaced out
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return r
}

// Jitter picks the next delay.
func (r *RateLimit) Jitter() time.Duration {
	if r.MaxDelay <= r.MinDelay {
		return r.MinDelay
	}
	return r.MinDelay + rand.N(r.MaxDelay-r.MinDelay+1)
}

// Wait blocks until the next request is allowed to go out.
func (r *RateLimit) Wait(ctx context.Context) error {
	if r.limiter != nil {
		err := r.limiter.Wait(ctx)
		if err != nil {
			return err
		}
	}
	delay := r.Jitter()
	if delay <= 0 {
		return ctx.Err()
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return sleep(ctx, delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
