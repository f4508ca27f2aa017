// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter counts hits for a key in fixed windows. It returns the hit count
// of the current window and the time until that window resets.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimiter limits requests per client IP to limit hits per window.
// Counters live in Valkey so every instance shares them.
type RateLimiter struct {
	counter Counter
	prefix  string
	limit   int64
	window  time.Duration
}

// NewRateLimiter returns a limiter whose counters are Valkey keys under
// prefix, expiring with their window.
func NewRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counter: valkeyCounter{client: client},
		prefix:  prefix,
		limit:   int64(limit),
		window:  window,
	}
}

// allow records a hit for key and reports whether it is within the limit,
// with the seconds a rejected client should wait.
func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, int) {
	n, resetIn, err := rl.counter.Hit(ctx, rl.prefix+key, rl.window)
	if err != nil {
		// Fail open: an unavailable counter store must not lock everyone out.
		slog.Warn("rate limit counter failed", "error", err, "key", key)
		return true, 0
	}
	if n <= rl.limit {
		return true, 0
	}
	if resetIn <= 0 {
		resetIn = rl.window
	}
	return false, max(1, int(math.Ceil(resetIn.Seconds())))
}

// Middleware rejects clients over the limit with a JSON 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retry := rl.allow(r.Context(), clientIP(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// valkeyCounter is INCR plus an expiry set on the window's first hit.
type valkeyCounter struct {
	client *redis.Client
}

func (c valkeyCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.ExpireNX(ctx, key, window)
		ttl = p.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return incr.Val(), ttl.Val(), nil
}

// clientIP returns the originating client address: the first
// X-Forwarded-For hop, then X-Real-IP, then RemoteAddr without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
