package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/alertroute/internal/api/dto"
	"github.com/pratik-mahalle/alertroute/internal/api/middleware"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/utils"
)

// maxBatchEvents bounds the size of one batch request
const maxBatchEvents = 500

// EventHandler ingests incident events
type EventHandler struct {
	service notification.Service
	logger  *logger.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(service notification.Service, log *logger.Logger) *EventHandler {
	return &EventHandler{service: service, logger: log}
}

// Ingest resolves one event and queues its deliveries
func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var e incident.Event
	if appErr := decodeJSON(w, r, &e); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	middleware.AddLogField(r, "event_id", e.ID)
	if err := h.service.HandleEvent(r.Context(), &e); err != nil {
		respondErr(w, h.logger, err, "Failed to handle event")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusAccepted, dto.EventAcceptedResponse{Accepted: 1})
}

// IngestBatch resolves several events in one pass
func (h *EventHandler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var req dto.EventBatchRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}
	if len(req.Events) == 0 {
		_ = utils.WriteError(w, errors.BadRequest("events must not be empty"))
		return
	}
	if len(req.Events) > maxBatchEvents {
		_ = utils.WriteError(w, errors.BadRequest("too many events in one batch"))
		return
	}

	middleware.AddLogField(r, "events", len(req.Events))
	res, err := h.service.HandleEvents(r.Context(), req.Events)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to handle event batch")
		return
	}
	if res.Accepted == 0 {
		_ = utils.WriteError(w, errors.ValidationError("No valid events in batch", res.Rejected))
		return
	}
	_ = utils.WriteSuccess(w, http.StatusAccepted, dto.EventAcceptedResponse{Accepted: res.Accepted, Rejected: res.Rejected})
}

// Resolve returns the destinations of an event without dispatching
func (h *EventHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var e incident.Event
	if appErr := decodeJSON(w, r, &e); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	middleware.AddLogField(r, "event_id", e.ID)
	dests, err := h.service.Resolve(r.Context(), &e)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to resolve event")
		return
	}
	if dests == nil {
		dests = []*notification.Destination{}
	}
	_ = utils.WriteSuccess(w, http.StatusOK, dto.ResolveResponse{EventID: e.ID, Destinations: dests})
}
