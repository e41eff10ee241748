package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dcode-github/property_rentals/backend/middleware"
	"github.com/dcode-github/property_rentals/backend/models"
	"github.com/dcode-github/property_rentals/backend/store"
)

// PropertyController serves the listing endpoints over a PropertyStore.
// Writes are only routed to it for realtors; ownership is checked here.
type PropertyController struct {
	store  store.PropertyStore
	logger *slog.Logger
}

func NewPropertyController(s store.PropertyStore, logger *slog.Logger) *PropertyController {
	if logger == nil {
		logger = slog.Default()
	}
	return &PropertyController{store: s, logger: logger}
}

type AvailabilityRequest struct {
	IsAvailable *bool `json:"isAvailable"`
}

func (pc *PropertyController) GetAllProperties() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := models.ParseFilters(r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		properties, err := pc.store.GetProperties(r.Context(), filters)
		if err != nil {
			writeFailure(w, pc.logger, err, "Error fetching properties")
			return
		}
		writeJSON(w, http.StatusOK, properties)
	}
}

func (pc *PropertyController) SearchProperties() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		properties, err := pc.store.SearchProperties(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeFailure(w, pc.logger, err, "Error searching properties")
			return
		}
		writeJSON(w, http.StatusOK, properties)
	}
}

func (pc *PropertyController) GetPropertyByID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		property, err := pc.store.GetPropertyByID(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeFailure(w, pc.logger, err, "Error fetching property")
			return
		}
		if property == nil {
			writeError(w, http.StatusNotFound, "Property not found")
			return
		}
		writeJSON(w, http.StatusOK, property)
	}
}

// GetRealtorProperties lists a realtor's listings. Hidden listings are only
// included when realtors ask for their own.
func (pc *PropertyController) GetRealtorProperties() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		realtorID := mux.Vars(r)["id"]
		properties, err := pc.store.GetPropertiesByRealtor(r.Context(), realtorID)
		if err != nil {
			writeFailure(w, pc.logger, err, "Error fetching realtor properties")
			return
		}
		if identity, _ := middleware.IdentityFromContext(r.Context()); identity.UID != realtorID {
			visible := make([]models.Property, 0, len(properties))
			for _, p := range properties {
				if p.IsAvailable {
					visible = append(visible, p)
				}
			}
			properties = visible
		}
		writeJSON(w, http.StatusOK, properties)
	}
}

func (pc *PropertyController) CreateProperty() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "User ID missing in context")
			return
		}

		var data models.CreatePropertyData
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			pc.logger.Info("Invalid request body", slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := data.Validate(); err != nil {
			writeFailure(w, pc.logger, err, "Failed to create property")
			return
		}

		id, err := pc.store.CreateProperty(r.Context(), data, identity.UID, identity.Email)
		if err != nil {
			writeFailure(w, pc.logger, err, "Failed to create property")
			return
		}
		pc.logger.Info("Property created", slog.String("id", id), slog.String("realtor", identity.UID))
		writeJSON(w, http.StatusCreated, Response{Message: "Property created successfully", ID: id})
	}
}

func (pc *PropertyController) UpdateProperty() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		var data models.UpdatePropertyData
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			pc.logger.Info("Invalid update data", slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, "Invalid update data")
			return
		}
		if err := data.Validate(); err != nil {
			writeFailure(w, pc.logger, err, "Update failed")
			return
		}
		if !pc.authorizeOwner(w, r, id, false) {
			return
		}
		if err := pc.store.UpdateProperty(r.Context(), id, data); err != nil {
			writeFailure(w, pc.logger, err, "Update failed")
			return
		}
		writeJSON(w, http.StatusOK, Response{Message: "Property updated successfully", ID: id})
	}
}

func (pc *PropertyController) DeleteProperty() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if !pc.authorizeOwner(w, r, id, true) {
			return
		}
		if err := pc.store.DeleteProperty(r.Context(), id); err != nil {
			writeFailure(w, pc.logger, err, "Delete failed")
			return
		}
		writeJSON(w, http.StatusOK, Response{Message: "Property deleted successfully", ID: id})
	}
}

func (pc *PropertyController) ToggleAvailability() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		var req AvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsAvailable == nil {
			writeError(w, http.StatusBadRequest, "isAvailable is required")
			return
		}
		if !pc.authorizeOwner(w, r, id, false) {
			return
		}
		if err := pc.store.TogglePropertyAvailability(r.Context(), id, *req.IsAvailable); err != nil {
			writeFailure(w, pc.logger, err, "Failed to toggle property availability")
			return
		}
		writeJSON(w, http.StatusOK, Response{Message: "Property availability updated", ID: id})
	}
}

// authorizeOwner writes the failure response and returns false unless the
// caller owns id. A missing listing passes when missingOK is set.
func (pc *PropertyController) authorizeOwner(w http.ResponseWriter, r *http.Request, id string, missingOK bool) bool {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "User ID missing in context")
		return false
	}
	property, err := pc.store.GetPropertyByID(r.Context(), id)
	if err != nil {
		writeFailure(w, pc.logger, err, "Error fetching property")
		return false
	}
	if property == nil {
		if missingOK {
			return true
		}
		writeFailure(w, pc.logger, models.ErrNotFound, "")
		return false
	}
	if property.RealtorID != identity.UID {
		pc.logger.Info("Rejected write by non-owner", slog.String("id", id), slog.String("uid", identity.UID))
		writeFailure(w, pc.logger, models.ErrForbidden, "")
		return false
	}
	return true
}
