package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/alertroute/internal/api/dto"
	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/utils"
)

// FilterHandler handles filter requests
type FilterHandler struct {
	service filter.Service
	logger  *logger.Logger
}

// NewFilterHandler creates a new filter handler
func NewFilterHandler(service filter.Service, log *logger.Logger) *FilterHandler {
	return &FilterHandler{service: service, logger: log}
}

// List returns the filters of a user
func (h *FilterHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, appErr := pathID(r, "userID")
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	filters, err := h.service.List(r.Context(), userID)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to list filters")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, filters)
}

// Create creates a filter. The filter document may be an object or the
// legacy JSON string.
func (h *FilterHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, appErr := pathID(r, "userID")
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	var f filter.Filter
	if appErr := decodeJSON(w, r, &f); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}
	f.ID = 0
	f.UserID = userID

	if err := h.service.Create(r.Context(), &f); err != nil {
		respondErr(w, h.logger, err, "Failed to create filter")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusCreated, f)
}

// Get returns one filter
func (h *FilterHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	f, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to get filter")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, f)
}

// Incidents returns a page of stored incidents a saved filter selects
func (h *FilterHandler) Incidents(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	page := utils.ParsePage(r)
	incidents, err := h.service.Incidents(r.Context(), userID, id, page.Size, page.Offset())
	if err != nil {
		respondErr(w, h.logger, err, "Failed to list filter incidents")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, dto.PreviewResponse{
		Incidents: incidents,
		Page:      page.Number,
		PageSize:  page.Size,
	})
}

// Update replaces a filter
func (h *FilterHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	var f filter.Filter
	if appErr := decodeJSON(w, r, &f); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}
	f.ID = id
	f.UserID = userID

	if err := h.service.Update(r.Context(), &f); err != nil {
		respondErr(w, h.logger, err, "Failed to update filter")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, f)
}

// Delete deletes a filter that no profile uses
func (h *FilterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, appErr := ownedID(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		respondErr(w, h.logger, err, "Failed to delete filter")
		return
	}
	utils.WriteNoContent(w)
}

// Validate checks a filter document and returns both of its forms
func (h *FilterHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req dto.CriteriaRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	if err := h.service.Validate(req.Filter); err != nil {
		respondErr(w, h.logger, err, "Failed to validate filter")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, dto.ValidateCriteriaResponse{
		Filter: req.Filter,
		Legacy: req.Filter.Legacy(),
	})
}

// Preview returns a page of stored incidents the filter document selects
func (h *FilterHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if _, appErr := pathID(r, "userID"); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	var req dto.CriteriaRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	page := utils.ParsePage(r)
	incidents, err := h.service.Preview(r.Context(), req.Filter, page.Size, page.Offset())
	if err != nil {
		respondErr(w, h.logger, err, "Failed to preview filter")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, dto.PreviewResponse{
		Incidents: incidents,
		Page:      page.Number,
		PageSize:  page.Size,
	})
}
