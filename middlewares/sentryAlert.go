package middlewares

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
)

// SentryAlertMiddleware reports every 5xx response to the Sentry hub that
// sentryhttp attached to the request. It is a no-op without a hub.
func SentryAlertMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status >= http.StatusInternalServerError {
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("request_id", RequestID(r.Context()))
				scope.SetTag("path", r.URL.Path)
				hub.CaptureMessage(fmt.Sprintf("%s %s returned %d", r.Method, r.URL.Path, rec.status))
			})
		}
	})
}
