package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/conneroisu/cargo-docserver/internal/logging"
)

// RequestIDHeader carries the request ID back to the client.
const RequestIDHeader = "X-Request-Id"

// RequestLogger tags each request with a UUID and writes an access log line
// once the response is complete.
func RequestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	logger = logger.WithComponent("http")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()
			w.Header().Set(RequestIDHeader, id)

			reqLogger := logging.WithRequestID(logger, id)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			reqLogger.Info(r.Context(), "Request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
