package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout caps how long a request context stays alive. Handlers and stores
// observe the deadline through ctx; slow database calls abort instead of
// piling up.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
