package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dcode-github/property_rentals/backend/middleware"
	"github.com/dcode-github/property_rentals/backend/models"
)

type RoleRequest struct {
	Role models.Role `json:"role"`
}

type RoleResponse struct {
	UID   string      `json:"uid"`
	Email string      `json:"email,omitempty"`
	Role  models.Role `json:"role"`
}

// GetMyRole reports the caller's identity and resolved role. Role is empty
// until one has been chosen.
func GetMyRole() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "User ID missing in context")
			return
		}
		writeJSON(w, http.StatusOK, RoleResponse{UID: identity.UID, Email: identity.Email, Role: identity.Role})
	}
}

func SetMyRole(roles *middleware.RoleResolver, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "User ID missing in context")
			return
		}

		var req RoleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
		if !req.Role.Valid() {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Message: "Invalid role",
				Fields:  map[string]string{"role": "Role must be realtor or buyer"},
			})
			return
		}

		if err := roles.SetRole(r.Context(), identity.UID, req.Role); err != nil {
			writeFailure(w, logger, err, "Failed to save user role")
			return
		}
		logger.Info("User role saved", slog.String("uid", identity.UID), slog.String("role", string(req.Role)))
		writeJSON(w, http.StatusOK, RoleResponse{UID: identity.UID, Email: identity.Email, Role: req.Role})
	}
}
