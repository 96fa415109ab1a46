package handlers

import (
	"net/http"
	"time"

	"github.com/pratik-mahalle/alertroute/internal/api/dto"
	"github.com/pratik-mahalle/alertroute/internal/domain/timeslot"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/utils"
)

// TimeslotHandler handles timeslot requests
type TimeslotHandler struct {
	service timeslot.Service
	logger  *logger.Logger
}

// NewTimeslotHandler creates a new timeslot handler
func NewTimeslotHandler(service timeslot.Service, log *logger.Logger) *TimeslotHandler {
	return &TimeslotHandler{service: service, logger: log}
}

// List returns the timeslots of a user
func (h *TimeslotHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, appErr := pathID(r, "userID")
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	timeslots, err := h.service.List(r.Context(), userID)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to list timeslots")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, timeslots)
}

// Create creates a timeslot
func (h *TimeslotHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, appErr := pathID(r, "userID")
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	var ts timeslot.Timeslot
	if appErr := decodeJSON(w, r, &ts); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}
	ts.ID = 0
	ts.UserID = userID

	if err := h.service.Create(r.Context(), &ts); err != nil {
		respondErr(w, h.logger, err, "Failed to create timeslot")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusCreated, ts)
}

// Get returns one timeslot
func (h *TimeslotHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	ts, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to get timeslot")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, ts)
}

// Update replaces a timeslot and its recurrences
func (h *TimeslotHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	var ts timeslot.Timeslot
	if appErr := decodeJSON(w, r, &ts); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}
	ts.ID = id
	ts.UserID = userID

	if err := h.service.Update(r.Context(), &ts); err != nil {
		respondErr(w, h.logger, err, "Failed to update timeslot")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, ts)
}

// Delete deletes a timeslot
func (h *TimeslotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		respondErr(w, h.logger, err, "Failed to delete timeslot")
		return
	}
	utils.WriteNoContent(w)
}

// Covers reports whether the timeslot covers ?at= (RFC3339), or now
func (h *TimeslotHandler) Covers(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	at := time.Now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			_ = utils.WriteError(w, errors.BadRequest("at must be an RFC3339 timestamp"))
			return
		}
		at = parsed
	}

	covers, err := h.service.Covers(r.Context(), userID, id, at)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to check timeslot")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, dto.CoversResponse{At: at.Format(time.RFC3339), Covers: covers})
}

// ownedID parses the owner and resource IDs of a nested route
func ownedID(r *http.Request) (int64, int64, *errors.AppError) {
	userID, appErr := pathID(r, "userID")
	if appErr != nil {
		return 0, 0, appErr
	}
	id, appErr := pathID(r, "id")
	if appErr != nil {
		return 0, 0, appErr
	}
	return userID, id, nil
}
