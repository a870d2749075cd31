package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Veraticus/dompet/internal/common"
)

// SuccessEnvelope wraps every successful response body.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	CodeInvalidInput       = "invalid_input"
	CodeNotFound           = "not_found"
	CodeStorageUnavailable = "storage_unavailable"
	CodePersistenceFailed  = "persistence_failed"
	CodeInternal           = "internal_error"
)

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeSuccess(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(SuccessEnvelope{Success: true, Data: data}); err != nil {
		// Last-ditch logging; can't return an error now
		LoggerFrom(r.Context()).Error("failed to encode success response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Code: code, Message: message}); err != nil {
		LoggerFrom(r.Context()).Error("failed to encode error response", "error", err, "status", status, "code", code)
	}
}

// handleError maps the ledger error taxonomy onto HTTP statuses.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := LoggerFrom(r.Context())

	switch {
	case errors.Is(err, common.ErrValidation), errors.Is(err, errBadRequest):
		log.Warn("validation failed", "error", err)
		writeError(w, r, http.StatusBadRequest, CodeInvalidInput, err.Error())

	case errors.Is(err, common.ErrNotFound):
		log.Warn("resource not found", "error", err)
		writeError(w, r, http.StatusNotFound, CodeNotFound, err.Error())

	case errors.Is(err, common.ErrNotInitialized), errors.Is(err, common.ErrStorageInit):
		log.Error("storage unavailable", "error", err)
		writeError(w, r, http.StatusServiceUnavailable, CodeStorageUnavailable,
			"Storage is unavailable")

	case errors.Is(err, common.ErrPersistenceWrite):
		log.Error("persistence write failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, CodePersistenceFailed,
			"The change was applied but could not be saved")

	default:
		log.Error("unexpected error", "error", err, "type", fmt.Sprintf("%T", err))
		writeError(w, r, http.StatusInternalServerError, CodeInternal,
			"An unexpected error occurred")
	}
}
