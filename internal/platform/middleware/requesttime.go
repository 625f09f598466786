package middleware

import (
	"net/http"
	"time"

	"sportsfest/pkg/requestcontext"
)

// RequestTime captures the current time at the start of the request and
// stores it in the context. All timestamps written during one request then
// agree, which matters when a single registration touches the ledger, the
// registration row and the outbox in one transaction.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
