// Package middleware provides shared HTTP middleware utilities.
package middleware

import (
	"net"
	"net/http"

	"afr/internal/ratelimit"
)

// RateLimitMiddleware enforces a per-IP Limiter on the routes it
// wraps, used to guard registration. A fixed-window Redis check and
// an in-memory rolling window both satisfy the same Limiter port, so
// the middleware does not care which backend is wired.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
}

func NewRateLimitMiddleware(limiter ratelimit.Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

func (rl *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}

		if !rl.limiter.Allow(ip) {
			respondJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
