package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dcode-github/property_rentals/backend/models"
)

type Response struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

type ErrorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", slog.String("error", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// writeFailure maps a store or validation error onto a status code. fallback
// is the message used for unexpected failures.
func writeFailure(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid property data", Fields: ve.Fields})
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "Property not found")
	case errors.Is(err, models.ErrForbidden):
		writeError(w, http.StatusForbidden, "Only the owning realtor may change this property")
	case errors.Is(err, models.ErrRoleRequired):
		writeError(w, http.StatusForbidden, err.Error())
	case models.IsStoreError(err):
		logger.Error(fallback, slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, fallback)
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
