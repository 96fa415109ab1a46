package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/utils"
)

// DestinationHandler handles destination requests
type DestinationHandler struct {
	service notification.DestinationService
	logger  *logger.Logger
}

// NewDestinationHandler creates a new destination handler
func NewDestinationHandler(service notification.DestinationService, log *logger.Logger) *DestinationHandler {
	return &DestinationHandler{service: service, logger: log}
}

// List returns the destinations of a user
func (h *DestinationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, appErr := pathID(r, "userID")
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	dests, err := h.service.List(r.Context(), userID)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to list destinations")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, dests)
}

// Create creates a destination
func (h *DestinationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, appErr := pathID(r, "userID")
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	var d notification.Destination
	if appErr := decodeJSON(w, r, &d); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}
	d.ID = 0
	d.UserID = userID

	if err := h.service.Create(r.Context(), &d); err != nil {
		respondErr(w, h.logger, err, "Failed to create destination")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusCreated, d)
}

// Get returns one destination
func (h *DestinationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	d, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to get destination")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, d)
}

// Update changes the label or settings of a destination
func (h *DestinationHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	var d notification.Destination
	if appErr := decodeJSON(w, r, &d); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}
	d.ID = id
	d.UserID = userID

	updated, err := h.service.Update(r.Context(), &d)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to update destination")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, updated)
}

// Delete deletes a destination that is neither synced nor in use
func (h *DestinationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		respondErr(w, h.logger, err, "Failed to delete destination")
		return
	}
	utils.WriteNoContent(w)
}
