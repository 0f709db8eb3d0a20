package httpapi

import (
	"net/http"
	"time"

	"github.com/entityflow/entityflow/pkg/logging"
	"github.com/gorilla/mux"
)

// responseWriter wraps http.ResponseWriter to capture the status code
// a handler actually wrote, the same pattern the teacher's logging
// middleware uses.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs each request's method, path, status, and
// duration, tagging it with a correlation id the way the teacher's
// LoggingMiddleware tags requests with a trace id.
func loggingMiddleware(log *logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			correlationID := r.Header.Get("X-Correlation-ID")
			if correlationID == "" {
				correlationID = logging.NewCorrelationID()
			}
			w.Header().Set("X-Correlation-ID", correlationID)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			log.Info(r.Context(), "http request", map[string]interface{}{
				"method":         r.Method,
				"path":           r.URL.Path,
				"status":         wrapped.statusCode,
				"duration":       logging.FormatDuration(time.Since(start)),
				"correlation_id": correlationID,
			})
		})
	}
}

// recoveryMiddleware converts a panicking handler into a 500 response
// instead of taking down the process, mirroring the teacher's
// NewRecoveryMiddleware.
func recoveryMiddleware(log *logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(map[string]interface{}{"panic": rec, "path": r.URL.Path}).Error("http handler panicked")
					writeError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
