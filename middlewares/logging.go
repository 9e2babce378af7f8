package middlewares

import (
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger instances for different log levels. They discard output until
// InitLoggers is called.
var (
	Log         = zap.NewNop()
	AuditLogger = log.New(io.Discard, "", 0)
	DebugLogger = log.New(io.Discard, "", 0)
	ErrorLogger = log.New(io.Discard, "", 0)
)

type requestIDKey struct{}

// InitLoggers creates dir/{audit,debug,error} and points the loggers at
// rotated files inside them. Info and above is mirrored to stderr.
func InitLoggers(dir string, debug bool) error {
	for _, sub := range []string{"audit", "debug", "error"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), os.ModePerm); err != nil {
			return fmt.Errorf("could not create log directory %s: %w", sub, err)
		}
	}

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	auditLevels := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l == zapcore.InfoLevel || l == zapcore.WarnLevel
	})
	debugLevels := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return debug && l == zapcore.DebugLevel
	})
	errorLevels := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, rotating(dir, "audit"), auditLevels),
		zapcore.NewCore(encoder, rotating(dir, "debug"), debugLevels),
		zapcore.NewCore(encoder, rotating(dir, "error"), errorLevels),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(os.Stderr),
			zapcore.InfoLevel,
		),
	)
	Log = zap.New(core, zap.AddCaller())

	AuditLogger = zap.NewStdLog(Log.Named("audit"))
	var err error
	if DebugLogger, err = zap.NewStdLogAt(Log.Named("debug"), zapcore.DebugLevel); err != nil {
		return err
	}
	if ErrorLogger, err = zap.NewStdLogAt(Log.Named("error"), zapcore.ErrorLevel); err != nil {
		return err
	}
	return nil
}

// rotating writes dir/name/name.log, rotated at 1 MB and kept for 28 days.
func rotating(dir, name string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(dir, name, name+".log"),
		MaxSize:    1,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware tags every request with an id and writes an audit entry
// once the response is done.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(contextWithRequestID(r.Context(), id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		Log.Info("request",
			zap.String("id", id),
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)),
			zap.String("user_agent", r.UserAgent()),
			zap.String("ip", getIPAddress(r)),
		)
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header for proxies
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	// Fallback to RemoteAddr (trim port)
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
