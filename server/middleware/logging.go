package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/reactivekit/logger"
)

var probePaths = map[string]bool{
	"/health": true,
	"/live":   true,
	"/ready":  true,
}

// RequestLogger returns middleware that logs every request with method,
// path, status code and duration. Probe paths are skipped. Streaming
// responses are logged once the stream ends.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			fields := map[string]interface{}{
				"method":             r.Method,
				"path":               r.URL.Path,
				"bytes":              sw.written,
				logger.FieldStatus:   sw.status,
				logger.FieldDuration: duration.Milliseconds(),
			}
			if strings.HasPrefix(sw.Header().Get("Content-Type"), "text/event-stream") {
				fields["stream"] = true
			}
			logByStatus(log.WithContext(r.Context()), fields, sw.status)
		})
	}
}

// logByStatus logs request fields at a level derived from the status code.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
