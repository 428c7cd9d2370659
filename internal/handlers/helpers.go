package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/models"
)

// writeJSON writes a JSON response with the given status code
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("Failed to encode JSON response", err)
	}
}

// writeAppError writes an error response. Errors without an application
// code are reported as internal errors.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.InternalError(err)
	}

	response := &models.ErrorResponse{
		Error:   appErr.Message,
		Code:    string(appErr.Code),
		Details: appErr.Details,
	}

	// Log the error for internal monitoring
	h.log.With("error_code", appErr.Code).
		With("status_code", appErr.StatusCode).
		Error(appErr.Message, appErr.Err)

	h.writeJSON(w, response, appErr.StatusCode)
}
