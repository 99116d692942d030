package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"taxwise-hq/sentinel/pkg/audit"
	"taxwise-hq/sentinel/pkg/authmon"
	"taxwise-hq/sentinel/pkg/telemetry/logging"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// LoggingMiddleware logs one line per request. The level follows the status:
// error for 5xx, warn for 4xx, debug otherwise, so probes polling /health do
// not flood the log at the default level. Client IP and user agent are
// logged only as hasher tokens, matching the audit entries; with a nil
// hasher they are left out.
func LoggingMiddleware(logger *logging.Logger, hasher *audit.Hasher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			level := slog.LevelDebug
			switch {
			case rw.statusCode >= 500:
				level = slog.LevelError
			case rw.statusCode >= 400:
				level = slog.LevelWarn
			}

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"latency_ms", time.Since(start).Milliseconds(),
			}
			if hasher != nil {
				if ip := authmon.ClientIP(r); ip != "" {
					args = append(args, "ip_hash", hasher.Hash(ip))
				}
				if ua := r.UserAgent(); ua != "" {
					args = append(args, "user_agent_hash", hasher.Hash(ua))
				}
			}
			logger.Log(r.Context(), level, "request completed", args...)
		})
	}
}

// RecoveryMiddleware turns a handler panic into a 500 response and logs the
// panic with its stack. http.ErrAbortHandler is re-raised so net/http can
// abort the connection.
func RecoveryMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.ErrorContext(r.Context(), "panic in handler",
					"error", fmt.Sprint(rec),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
