package middleware

import (
	"net/http"
	"time"
)

// HTTPMetrics records per-request counters and latency.
type HTTPMetrics interface {
	RecordHTTPRequest(method string, statusCode int, duration time.Duration)
}

// MetricsMiddleware records request count and duration for every request.
func MetricsMiddleware(m HTTPMetrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		m.RecordHTTPRequest(r.Method, wrapped.status, time.Since(start))
	})
}
