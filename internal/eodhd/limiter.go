package eodhd

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRateLimitDelay is the default minimum spacing between outbound requests.
const DefaultRateLimitDelay = 100 * time.Millisecond

// RateLimiter enforces a minimum delay between consecutive outbound requests.
// One limiter is created at startup and shared by every client in the process.
type RateLimiter struct {
	delay   time.Duration
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter spacing acquisitions by at least delay.
// A zero or negative delay disables limiting.
func NewRateLimiter(delay time.Duration) *RateLimiter {
	if delay <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	// Burst of one: each token is minted delay after the previous one was taken.
	return &RateLimiter{
		delay:   delay,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// Delay returns the configured spacing.
func (l *RateLimiter) Delay() time.Duration {
	return l.delay
}

// Acquire blocks until the caller may issue a request.
// The only error is ctx cancellation (or a deadline that cannot be met).
func (l *RateLimiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
