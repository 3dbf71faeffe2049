package http

import (
	"net/http"
	"time"

	"github.com/deptrai/longthanhland-sub000/internal/ports"
)

// RateLimit bounds a route per caller IP with a fixed window. A limiter
// backend failure fails open: dropping legitimate settlements is worse
// than admitting a burst, and the pipeline behind this is idempotent.
func RateLimit(limiter ports.RateLimiter, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), "webhook:"+readIP(r), limit, window)
			if err != nil {
				httpLogger().WarnContext(r.Context(), "rate limiter unavailable, admitting request",
					"operation", "rate_limit",
					"outcome", "fail_open",
					"error", err.Error(),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				logHTTPOperationError(r.Context(), "rate_limit",
					http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
