package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/utils"
)

// maxBodySize bounds request bodies, batches included
const maxBodySize = 4 << 20

// pathID parses a positive integer URL parameter
func pathID(r *http.Request, name string) (int64, *errors.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.BadRequest("Invalid " + name)
	}
	return id, nil
}

// decodeJSON reads a JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) *errors.AppError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.BadRequest("Invalid request body: " + err.Error())
	}
	return nil
}

// respondErr writes err and logs it when it is a server side failure
func respondErr(w http.ResponseWriter, log *logger.Logger, err error, msg string) {
	appErr := errors.As(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		log.ErrorWithErr(err, msg)
	}
	_ = utils.WriteError(w, appErr)
}
