package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dom/kaf-catalog/internal/domain"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeServiceError maps domain errors to status codes. Client errors carry
// their message; infrastructure errors are logged and reported generically.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, clientMessage(err))
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrUpstream):
		logger.Error("["+op+"] upstream failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "Catalog service unavailable")
	default:
		logger.Error("["+op+"] internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// clientMessage turns "validation error: title is required" into
// "title is required". Credential errors map to fixed messages.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "Email already registered"
	}
	msg := err.Error()
	prefix := domain.ErrValidation.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
