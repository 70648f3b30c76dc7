package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/julienstroheker/pairrelay/internal/logging"
)

// responseWriter captures the status code. It forwards Hijack so WebSocket
// upgrades work behind the middleware.
type responseWriter struct {
	http.ResponseWriter

	statusCode int
	written    bool
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

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	rw.written = true
	return hj.Hijack()
}

// Logger logs each request and the response that ended it, and stores a
// request scoped logger in the context for handlers
func Logger(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := logger.With(logging.String("path", r.URL.Path))
			if id := GetRequestID(r.Context()); id != "" {
				reqLogger = reqLogger.With(logging.String("request_id", id))
			}
			r = r.WithContext(logging.WithContext(r.Context(), reqLogger))

			reqLogger.Debug("Request received",
				logging.String("method", r.Method),
				logging.String("remote_addr", r.RemoteAddr))

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			reqLogger.Info("Response sent",
				logging.String("method", r.Method),
				logging.Int("status", rw.statusCode),
				logging.Duration("duration", time.Since(start)))
		})
	}
}
