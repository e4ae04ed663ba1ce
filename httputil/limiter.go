package httputil

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum interval between outbound fetches. It is shared
// by every strategy and every concurrent pipeline.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter allows rps fetches per second. rps <= 0 disables limiting.
func NewLimiter(rps float64) *Limiter {
	if rps <= 0 {
		return &Limiter{rl: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{rl: rate.NewLimiter(rate.Every(time.Duration(float64(time.Second)/rps)), 1)}
}

// Wait blocks until the next fetch slot or until ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.rl.Wait(ctx)
}

// Interval is the enforced minimum spacing between fetches.
func (l *Limiter) Interval() time.Duration {
	if l == nil || l.rl.Limit() == rate.Inf {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(l.rl.Limit()))
}
