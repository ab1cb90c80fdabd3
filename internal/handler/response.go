// internal/handler/response.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	appErrors "github.com/unclebandit/coldmail-backend/internal/errors"
	"github.com/unclebandit/coldmail-backend/internal/logger"
)

// APIResponse is the envelope for error responses
type APIResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
}

// RespondJSON writes payload as JSON with the given status code
func RespondJSON(w http.ResponseWriter, statusCode int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// ErrorResponse writes an error envelope
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	RespondJSON(w, statusCode, APIResponse{Message: message, Status: "error"})
}

// StatusFor maps a service error to an HTTP status code
func StatusFor(err error) int {
	var dispatch *appErrors.DispatchError
	switch {
	case appErrors.IsValidation(err):
		return http.StatusBadRequest
	case appErrors.IsAuthRequired(err):
		return http.StatusUnauthorized
	case appErrors.IsNotFound(err):
		return http.StatusNotFound
	case appErrors.IsDuplicate(err),
		appErrors.IsInvalidTransition(err),
		errors.Is(err, appErrors.ErrTemplateLocked),
		errors.Is(err, appErrors.ErrCampaignCompleted),
		errors.Is(err, appErrors.ErrCampaignNotDispatchable):
		return http.StatusConflict
	case errors.As(err, &dispatch):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WriteError writes err with the status StatusFor picks. Internal errors
// are logged and their detail is not returned.
func WriteError(w http.ResponseWriter, log *logger.Logger, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		if log != nil {
			log.Error().Err(err).Msg("request failed")
		}
		ErrorResponse(w, code, "internal server error")
		return
	}
	ErrorResponse(w, code, err.Error())
}

// DecodeJSON reads a JSON request body into v
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return appErrors.NewValidation("", "invalid request body: %v", err)
	}
	return nil
}
