package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"sportsfest/pkg/requestcontext"
)

// HeaderRequestID is the response header carrying the request correlation ID.
const HeaderRequestID = "X-Request-ID"

// RequestID assigns every request a correlation ID. An incoming X-Request-ID
// is honored so IDs survive proxy hops; otherwise a fresh UUID is minted.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(HeaderRequestID, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
