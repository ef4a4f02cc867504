package memstore

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a per-key token bucket sized to approximate the
// fixed-window ceiling used in production.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter creates an in-memory rate limiter allowing ceiling requests
// per window for each key.
func NewRateLimiter(ceiling int, window time.Duration) *RateLimiter {
	if ceiling <= 0 {
		ceiling = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(window / time.Duration(ceiling)),
		burst:    ceiling,
	}
}

func (r *RateLimiter) Allow(_ context.Context, clientKey string) (bool, error) {
	r.mu.Lock()
	limiter, ok := r.limiters[clientKey]
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
		r.limiters[clientKey] = limiter
	}
	r.mu.Unlock()

	return limiter.Allow(), nil
}
