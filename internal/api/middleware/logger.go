package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
)

// statusRecorder remembers what a handler wrote so it can be logged
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	bytes       int64
}

type logFieldsKey struct{}

// logFields collects fields that handlers want on the access log line
type logFields struct {
	mu     sync.Mutex
	values map[string]interface{}
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.wroteHeader {
		return
	}
	sr.status = code
	sr.wroteHeader = true
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.wroteHeader {
		sr.WriteHeader(http.StatusOK)
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// AddLogField attaches a field to the access log line of the current request.
// It is a no-op outside the Logger middleware.
func AddLogField(r *http.Request, key string, value interface{}) {
	lf, ok := r.Context().Value(logFieldsKey{}).(*logFields)
	if !ok {
		return
	}
	lf.mu.Lock()
	lf.values[key] = value
	lf.mu.Unlock()
}

// Logger writes one access log line per request. 5xx responses log at error
// level and 4xx at warn.
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			lf := &logFields{values: make(map[string]interface{})}

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), logFieldsKey{}, lf)))

			lf.mu.Lock()
			fields := lf.values
			lf.mu.Unlock()

			fields["method"] = r.Method
			fields["path"] = r.URL.Path
			fields["status"] = rec.status
			fields["duration_ms"] = time.Since(start).Milliseconds()
			fields["bytes"] = rec.bytes
			fields["ip"] = r.RemoteAddr
			fields["request_id"] = GetRequestID(r)
			if route := routePattern(r); route != "" {
				fields["route"] = route
			}
			if userID := userIDParam(r); userID != "" {
				fields["user_id"] = userID
			}

			entry := log.WithFields(fields)
			switch {
			case rec.status >= http.StatusInternalServerError:
				entry.Error("HTTP request")
			case rec.status >= http.StatusBadRequest:
				entry.Warn("HTTP request")
			default:
				entry.Info("HTTP request")
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// userIDParam returns the owner segment of /users/{userID} routes. The route
// context is only complete once the router has handled the request.
func userIDParam(r *http.Request) string {
	return chi.URLParam(r, "userID")
}
