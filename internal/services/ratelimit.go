package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter caps chat submissions per client address using a fixed window
// counter in Redis. A nil limiter passes everything through, and Redis errors
// fail open so a cache outage never takes the chat down.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration

	logger *slog.Logger
}

// NewRateLimiter builds a limiter allowing limit requests per window.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		limit:  int64(limit),
		window: window,
		logger: logger.With(slog.String("module", "ratelimit")),
	}
}

// Middleware wraps next with the rate limit check.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil || rl.rdb == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		key := fmt.Sprintf("ratelimit:%s", host)

		count, err := rl.rdb.Incr(r.Context(), key).Result()
		if err != nil {
			rl.logger.Warn("Rate limit check failed", slog.String("err", err.Error()))
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.rdb.Expire(r.Context(), key, rl.window)
		}
		if count > rl.limit {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
