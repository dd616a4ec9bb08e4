package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// SlowRequest is the duration above which a request is logged as a warning
const SlowRequest = 2 * time.Second

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func record(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// Logging writes one entry per request once the handler has returned
func Logging(log logrus.FieldLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)
			afterRequestLogging(log, start, r, rec.status)
		})
	}
}

func afterRequestLogging(log logrus.FieldLogger, start time.Time, r *http.Request, status int) {
	duration := time.Since(start)
	entry := log.WithFields(logrus.Fields{
		"method":    r.Method,
		"path":      r.URL.Path,
		"status":    status,
		"duration":  duration,
		"remote_ip": r.RemoteAddr,
	})

	// Check if a request takes longer than 2 seconds
	switch {
	case duration > SlowRequest:
		entry.Warn("Slow request detected")
	case status >= http.StatusInternalServerError:
		entry.Error("Request failed")
	default:
		entry.Info("Request completed")
	}
}
