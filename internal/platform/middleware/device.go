package middleware

import (
	"net/http"

	"github.com/mssola/useragent"

	"sportsfest/pkg/requestcontext"
)

// Device parses the User-Agent into a short human-readable summary
// ("Chrome 120 on Linux x86_64") and stores it in the context. Payment and
// registration writes log the summary so support can reconstruct what a
// student was using when a webhook dispute comes in.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		summary := SummarizeUserAgent(r.Header.Get("User-Agent"))
		ctx := requestcontext.WithDeviceSummary(r.Context(), summary)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SummarizeUserAgent condenses a raw User-Agent header. Bots are labeled as
// such, unparseable agents come back as "unknown".
func SummarizeUserAgent(raw string) string {
	if raw == "" {
		return "unknown"
	}

	ua := useragent.New(raw)
	if ua.Bot() {
		return "bot"
	}

	name, version := ua.Browser()
	if name == "" {
		return "unknown"
	}

	summary := name
	if version != "" {
		summary += " " + version
	}
	if os := ua.OS(); os != "" {
		summary += " on " + os
	}
	return summary
}
