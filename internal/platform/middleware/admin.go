package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/platform/httputil"
	"sportsfest/pkg/requestcontext"
)

// HeaderAdminToken carries the static operator token for admin endpoints.
const HeaderAdminToken = "X-Admin-Token"

// RequireAdminToken gates a route on the static operator token. The
// comparison is constant time. An empty configured token disables the
// gated routes rather than leaving them open.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if expectedToken == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "admin endpoints are not configured"))
				return
			}

			got := r.Header.Get(HeaderAdminToken)
			if subtle.ConstantTimeCompare([]byte(got), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
