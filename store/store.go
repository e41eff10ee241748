// Package store is the property access layer: typed operations over the
// remote properties and users collections.
package store

import (
	"context"
	"sort"

	"github.com/dcode-github/property_rentals/backend/models"
)

const (
	PropertiesCollection = "properties"
	UsersCollection      = "users"
)

// PropertyStore is implemented by every backend the state container can run
// against. Writes touch only the remote collection.
type PropertyStore interface {
	CreateProperty(ctx context.Context, data models.CreatePropertyData, realtorID, realtorEmail string) (string, error)
	GetProperties(ctx context.Context, filters *models.PropertyFilters) ([]models.Property, error)
	GetPropertiesByRealtor(ctx context.Context, realtorID string) ([]models.Property, error)
	GetPropertyByID(ctx context.Context, id string) (*models.Property, error)
	UpdateProperty(ctx context.Context, id string, data models.UpdatePropertyData) error
	DeleteProperty(ctx context.Context, id string) error
	TogglePropertyAvailability(ctx context.Context, id string, isAvailable bool) error
	SearchProperties(ctx context.Context, term string) ([]models.Property, error)
}

// UserStore maps identities to roles.
type UserStore interface {
	SaveUserRole(ctx context.Context, uid string, role models.Role) error
	// GetUserRole returns "" when the user has no role yet.
	GetUserRole(ctx context.Context, uid string) (models.Role, error)
}

// sortNewestFirst orders by createdAt descending. Ties keep insertion order.
func sortNewestFirst(props []models.Property) {
	sort.SliceStable(props, func(i, j int) bool {
		return props[i].CreatedAt.After(props[j].CreatedAt)
	})
}
