package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimiter creates a middleware that limits requests based on IP address.
// It allows 100 requests per minute per IP address for regular endpoints
func RateLimiter() func(http.Handler) http.Handler {
	return httprate.LimitByIP(100, time.Minute)
}

// LoginRateLimiter limits login attempts per source address over a fixed
// window, independent of the per-account lockout. Exceeding it yields 429
// with a retry hint (httprate sets Retry-After).
func LoginRateLimiter(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "too many login attempts, please try again later",
			})
		}),
	)
}
