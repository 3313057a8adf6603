package api

import (
	"net/http"

	"github.com/kuitang/quicknotes/internal/obs"
	"github.com/kuitang/quicknotes/internal/ratelimit"
)

// NewRouter registers the routes and wraps them in the middleware chain:
// request correlation, then the access log, then the per-client rate limit.
// A nil limiter disables rate limiting.
func NewRouter(h *Handler, limiter *ratelimit.RateLimiter) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	var handler http.Handler = mux
	if limiter != nil {
		handler = ratelimit.RateLimitMiddleware(limiter, ratelimit.ClientIP)(handler)
	}
	handler = obs.AccessLogMiddleware("api", handler)
	return obs.RequestContextMiddleware(handler)
}
