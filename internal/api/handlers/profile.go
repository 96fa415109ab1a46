package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/alertroute/internal/api/dto"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/utils"
)

// ProfileHandler handles notification profile requests
type ProfileHandler struct {
	service notification.ProfileService
	logger  *logger.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(service notification.ProfileService, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, logger: log}
}

// List returns the profiles of a user
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, appErr := pathID(r, "userID")
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	profiles, err := h.service.List(r.Context(), userID)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to list profiles")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, profiles)
}

// Create creates a profile
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, appErr := pathID(r, "userID")
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	p := notification.Profile{Active: true}
	if appErr := decodeJSON(w, r, &p); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}
	p.ID = 0
	p.UserID = userID

	if err := h.service.Create(r.Context(), &p); err != nil {
		respondErr(w, h.logger, err, "Failed to create profile")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusCreated, p)
}

// Get returns one profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	p, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to get profile")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, p)
}

// Incidents returns a page of stored incidents the profile's filters select
func (h *ProfileHandler) Incidents(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	page := utils.ParsePage(r)
	incidents, err := h.service.Incidents(r.Context(), userID, id, page.Size, page.Offset())
	if err != nil {
		respondErr(w, h.logger, err, "Failed to list profile incidents")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, dto.PreviewResponse{
		Incidents: incidents,
		Page:      page.Number,
		PageSize:  page.Size,
	})
}

// Update replaces a profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	var p notification.Profile
	if appErr := decodeJSON(w, r, &p); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}
	p.ID = id
	p.UserID = userID

	if err := h.service.Update(r.Context(), &p); err != nil {
		respondErr(w, h.logger, err, "Failed to update profile")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, p)
}

// Delete deletes a profile
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		respondErr(w, h.logger, err, "Failed to delete profile")
		return
	}
	utils.WriteNoContent(w)
}
