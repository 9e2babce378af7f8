package middlewares

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SlowRequest is the duration above which a request is logged as slow.
var SlowRequest = 500 * time.Millisecond

type timedResponseWriter struct {
	http.ResponseWriter
	start       time.Time
	wroteHeader bool
}

func (t *timedResponseWriter) WriteHeader(statusCode int) {
	if !t.wroteHeader {
		t.ResponseWriter.Header().Set("X-Response-Time", time.Since(t.start).String())
		t.wroteHeader = true
	}
	t.ResponseWriter.WriteHeader(statusCode)
}

func (t *timedResponseWriter) Write(b []byte) (int, error) {
	if !t.wroteHeader {
		t.WriteHeader(http.StatusOK)
	}
	return t.ResponseWriter.Write(b)
}

func ResponseTimeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &timedResponseWriter{ResponseWriter: w, start: time.Now()}
		next.ServeHTTP(tw, r)

		if took := time.Since(tw.start); took > SlowRequest {
			Log.Warn("slow request",
				zap.String("id", RequestID(r.Context())),
				zap.String("path", r.URL.Path),
				zap.Duration("took", took),
			)
		}
	})
}
