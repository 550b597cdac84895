package ratelimit

import (
	"net"
	"net/http"

	"github.com/ConfabulousDev/chat-insights/internal/logger"
)

// ClientKey identifies the caller by IP. chi's RealIP middleware has already
// rewritten RemoteAddr from the proxy headers when it runs first.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over the limit with 429, keyed by client IP.
func Middleware(limiter RateLimiter) func(http.Handler) http.Handler {
	return MiddlewareWithKey(limiter, ClientKey)
}

// MiddlewareWithKey is Middleware with a custom key extractor. An empty key
// falls back to the client IP.
func MiddlewareWithKey(limiter RateLimiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				key = ClientKey(r)
			}
			if !limiter.Allow(r.Context(), key) {
				logger.Ctx(r.Context()).Warn("rate limit exceeded", "key", key, "path", r.URL.Path)
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
