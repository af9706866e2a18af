package ratelimit

import (
	"net/http"
	"strconv"
)

// HeadersMiddleware returns HTTP middleware that reports the outbound limiter's
// capacity on every response, so relay clients can pace themselves before
// their submissions start to queue.
func HeadersMiddleware(limiter Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Available()))
			next.ServeHTTP(w, r)
		})
	}
}
