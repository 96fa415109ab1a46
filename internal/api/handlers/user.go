package handlers

import (
	"net/http"

	"github.com/pratik-mahalle/alertroute/internal/api/dto"
	"github.com/pratik-mahalle/alertroute/internal/domain/user"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/utils"
	"github.com/pratik-mahalle/alertroute/internal/pkg/validator"
)

// UserHandler handles user requests
type UserHandler struct {
	service   user.Service
	logger    *logger.Logger
	validator *validator.Validator
}

// NewUserHandler creates a new user handler
func NewUserHandler(service user.Service, log *logger.Logger, val *validator.Validator) *UserHandler {
	return &UserHandler{
		service:   service,
		logger:    log,
		validator: val,
	}
}

// Create creates a user together with its default timeslot and destination
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		_ = utils.WriteError(w, errors.ValidationError("Invalid user", errs))
		return
	}

	u, err := h.service.Create(r.Context(), req.Email, req.Username)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to create user")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusCreated, u)
}

// Get returns one user
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, appErr := pathID(r, "userID")
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	u, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to get user")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, u)
}

// UpdateEmail changes the address of a user and resyncs its email destination
func (h *UserHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	userID, appErr := pathID(r, "userID")
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}
	var req dto.UpdateEmailRequest
	if appErr := decodeJSON(w, r, &req); appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		_ = utils.WriteError(w, errors.ValidationError("Invalid email", errs))
		return
	}

	u, err := h.service.UpdateEmail(r.Context(), userID, req.Email)
	if err != nil {
		respondErr(w, h.logger, err, "Failed to update user email")
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, u)
}
