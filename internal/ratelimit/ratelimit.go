// Package ratelimit is a redis-backed fixed-window limiter, shipped as a
// bundled site middleware.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sitemux/sitemux/internal/middleware"
)

type Limiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

// New creates a limiter allowing limit requests per window per client.
func New(rdb *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{
		redis:  rdb,
		limit:  limit,
		window: window,
	}
}

// Middleware limits requests per client address for one site. State is keyed
// by site domain so sites sharing the process never share budgets. Redis
// being unreachable fails open: the request proceeds.
func (l *Limiter) Middleware(domain string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:" + domain + ":" + clientAddr(r)
			ctx := r.Context()

			tokensStr, err := l.redis.Get(ctx, key).Result()
			if err == redis.Nil {
				// First request in this window.
				l.redis.Set(ctx, key, l.limit-1, l.window)
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			tokens, _ := strconv.Atoi(tokensStr)
			if tokens <= 0 {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			l.redis.Decr(ctx, key)
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
