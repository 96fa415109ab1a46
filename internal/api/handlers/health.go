package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/utils"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// MediaReporter lists the media with a registered sender. The dispatcher
// satisfies it.
type MediaReporter interface {
	Media() []notification.Medium
}

// Readiness is the body of a successful readiness probe
type Readiness struct {
	Status   string                `json:"status"`
	Database string                `json:"database"`
	Media    []notification.Medium `json:"media"`
}

// HealthHandler serves the liveness and readiness probes
type HealthHandler struct {
	db     Pinger
	media  MediaReporter
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler. media may be nil.
func NewHealthHandler(db Pinger, media MediaReporter, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		media:  media,
		logger: log,
	}
}

// Healthz reports that the process is serving
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports whether events can be resolved and delivered
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.ErrorWithErr(err, "Database ping failed")
		_ = utils.WriteError(w, errors.ServiceUnavailable("Database connection failed"))
		return
	}

	ready := Readiness{Status: "ready", Database: "connected", Media: []notification.Medium{}}
	if h.media != nil {
		ready.Media = append(ready.Media, h.media.Media()...)
	}
	_ = utils.WriteSuccess(w, http.StatusOK, ready)
}
