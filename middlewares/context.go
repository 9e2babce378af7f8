package middlewares

import (
	"context"
	"net/http"
)

type contextKey string

const trackingContextKey contextKey = "tracking"

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id LoggingMiddleware assigned to the request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// TrackingAllowed reports whether views from this request may be counted.
func TrackingAllowed(r *http.Request) bool {
	disabled, _ := r.Context().Value(trackingContextKey).(bool)
	return !disabled
}

func withTrackingDisabled(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), trackingContextKey, true))
}
