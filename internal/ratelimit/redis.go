package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is an optional shared-store backend for Limiter, an
// INCR-then-EXPIRE fixed-window counter. Horizontal deployments that
// need rate-limit state shared across processes swap this in for
// MemoryLimiter via config.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, prefix: prefix}
}

// Allow increments the per-IP counter for the current window and
// reports whether the request is within limit. Backend errors fail
// closed (deny) so an unreachable Redis never silently disables the
// rate limit.
func (l *RedisLimiter) Allow(ip string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("%s:%s", l.prefix, ip)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false
		}
	}

	return count <= int64(l.limit)
}

// Reset clears the registration rate-limit keys for this limiter's
// prefix, backing the demo reset endpoints when the redis backend is
// selected.
func (l *RedisLimiter) Reset() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	iter := l.client.Scan(ctx, 0, l.prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		l.client.Del(ctx, iter.Val())
	}
}
