package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/metrics"
	"github.com/pratik-mahalle/alertroute/internal/pkg/utils"
)

// Recovery turns a handler panic into a generic 500. The panic value and
// stack only go to the log.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// net/http uses this panic to abort a response on purpose
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				metrics.RecordPanic()
				log.WithFields(map[string]interface{}{
					"panic":      fmt.Sprint(rec),
					"stack":      string(debug.Stack()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"user_id":    userIDParam(r),
					"request_id": GetRequestID(r),
				}).Error("Panic recovered")

				_ = utils.WriteError(w, errors.Internal("Internal server error", nil))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
