package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"vibe_server/models"
)

// WriteJSON writes payload as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("Failed to encode response: %v", err)
		}
	}
}

// WriteError maps a service error to its HTTP status and writes the stable
// error envelope. Internal detail stays in the server log.
func WriteError(w http.ResponseWriter, err error) {
	kind := models.KindOf(err)
	status := statusForKind(kind)

	message := "internal server error"
	var appErr *models.AppError
	if errors.As(err, &appErr) && kind != models.ErrStorage {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		log.Printf("Request failed: %v", err)
	}

	WriteJSON(w, status, map[string]interface{}{
		"error": message,
		"code":  kind,
	})
}

// DecodeJSON decodes the request body into out, rejecting trailing garbage.
func DecodeJSON(r *http.Request, out interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return models.NewValidationError("invalid JSON request body")
	}
	return nil
}

func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.ErrValidation:
		return http.StatusBadRequest
	case models.ErrUnauthorized:
		return http.StatusUnauthorized
	case models.ErrOwnershipDenied, models.ErrBanned:
		return http.StatusForbidden
	case models.ErrNotFound:
		return http.StatusNotFound
	case models.ErrCapacityExceeded, models.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
