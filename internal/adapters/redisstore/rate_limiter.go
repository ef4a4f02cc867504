package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateKeyPrefix = "rate:"

// RateLimiter applies a fixed-window counter per client key. The window
// starts at the first request and the counter key expires with the window,
// so idle clients carry no state.
type RateLimiter struct {
	client  redis.UniversalClient
	ceiling int64
	window  time.Duration
}

// NewRateLimiter creates a Redis-backed fixed-window rate limiter.
func NewRateLimiter(client redis.UniversalClient, ceiling int, window time.Duration) *RateLimiter {
	if ceiling <= 0 {
		ceiling = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: client, ceiling: int64(ceiling), window: window}
}

// Allow increments the client's window counter and reports whether the
// request is within the ceiling.
func (r *RateLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	key := rateKeyPrefix + clientKey

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis rate incr: %w", err)
	}
	if count == 1 {
		if expireErr := r.client.Expire(ctx, key, r.window).Err(); expireErr != nil {
			return false, fmt.Errorf("redis rate expire: %w", expireErr)
		}
	}
	return count <= r.ceiling, nil
}
