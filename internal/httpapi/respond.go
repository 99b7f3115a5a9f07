// Package httpapi assembles the HTTP surface: request dispatch, role
// gating, and JSON in/out over the core services. One handler type
// per resource, with shared response helpers.
package httpapi

import (
	"encoding/json"
	"net/http"

	"afr/pkg/apperr"
	"afr/pkg/logger"
	"afr/pkg/validator"
)

var validate = validator.New()

func respondJSON(w http.ResponseWriter, log logger.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("json encode failed", map[string]interface{}{"error": err.Error()})
	}
}

func respondErrorMessage(w http.ResponseWriter, log logger.Logger, status int, message string) {
	respondJSON(w, log, status, map[string]string{"error": message})
}

// respondErr maps a structured apperr.Kind to its HTTP status and
// writes the error body.
func respondErr(w http.ResponseWriter, log logger.Logger, err error) {
	status := statusForKind(apperr.KindOf(err))
	respondErrorMessage(w, log, status, err.Error())
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindState:
		return http.StatusConflict
	case apperr.KindPrecondition:
		return http.StatusConflict
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindRole:
		return http.StatusForbidden
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindPersistence:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into v and runs the struct's
// validate tags, so every handler gets input checking for free.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid request body")
	}
	if err := validate.Validate(v); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid request")
	}
	return nil
}
