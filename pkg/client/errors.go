package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes the server puts in the error envelope
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeConflict    = "CONFLICT"
	CodeOwnership   = "OWNERSHIP_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("API error: %s (status: %d)", e.Message, e.StatusCode)
}

// IsNotFound reports a missing user or resource
func (e *APIError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// IsConflict reports a duplicate, a resource in use or a synced destination
func (e *APIError) IsConflict() bool { return e.StatusCode == http.StatusConflict }

// IsValidationError reports a rejected request body or parameter
func (e *APIError) IsValidationError() bool { return e.StatusCode == http.StatusBadRequest }

// IsOwnership reports a profile referencing another user's records
func (e *APIError) IsOwnership() bool { return e.Code == CodeOwnership }

// IsUnavailable reports a full dispatch queue or an unreachable database.
// The request may be retried.
func (e *APIError) IsUnavailable() bool { return e.StatusCode == http.StatusServiceUnavailable }

// IsServerError reports a 5xx answer
func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 }

// AsAPIError unwraps err into an *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
