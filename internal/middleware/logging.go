// Package middleware contains HTTP middleware functions.
//
// Every middleware here has the shape func(http.Handler) http.Handler and is
// mounted with router.Use in internal/server. Order there matters:
//
//	RequestID → RealIP → Logger → Metrics → Recoverer → handler
//
// so the logger can read the id, and both the logger and the metrics see
// the final status code, including the 500 Recoverer writes after a panic.
package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// responseWriter records the status code and the number of body bytes.
// http.ResponseWriter exposes neither after the fact.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// wrap returns a responseWriter defaulting to 200, which is what net/http
// sends if the handler never calls WriteHeader.
func wrap(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logger returns a middleware that writes one structured line per request.
//
// The line includes: request id, method, path, status code, duration,
// and bytes written. Mount it after RequestID so the id is available.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)

			next.ServeHTTP(wrapped, r)

			// 5xx responses log at Error so they stand out; the handler has
			// already logged the cause.
			level := slog.LevelInfo
			if wrapped.statusCode >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("request_id", GetRequestID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
			)
		})
	}
}
