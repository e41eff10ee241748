package state

import (
	"github.com/dcode-github/property_rentals/backend/models"
)

// AvailableCount is the number of the realtor's listings visible to buyers.
func (s State) AvailableCount() int {
	n := 0
	for _, p := range s.MyProperties {
		if p.IsAvailable {
			n++
		}
	}
	return n
}

// HiddenCount is the number of the realtor's listings hidden from buyers.
func (s State) HiddenCount() int {
	return len(s.MyProperties) - s.AvailableCount()
}

// DisplayList picks the list a role browses: realtors see their own
// listings, buyers see every available listing.
func (s State) DisplayList(role models.Role) []models.Property {
	if role == models.RoleRealtor {
		return s.MyProperties
	}
	return s.Properties
}

// ClientFilter is the list screen's own price/size narrowing. It runs over
// Properties after they are fetched and is independent of PropertyFilters:
// it reads Size, which the store never assigns, rather than Area.
type ClientFilter struct {
	MinPrice *float64
	MaxPrice *float64
	MinSize  *float64
	MaxSize  *float64
}

func (f ClientFilter) Active() bool {
	return f.MinPrice != nil || f.MaxPrice != nil || f.MinSize != nil || f.MaxSize != nil
}

func (f ClientFilter) Matches(p models.Property) bool {
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.MinSize != nil && p.Size < *f.MinSize {
		return false
	}
	if f.MaxSize != nil && p.Size > *f.MaxSize {
		return false
	}
	return true
}

// Apply keeps the order of props.
func (f ClientFilter) Apply(props []models.Property) []models.Property {
	out := make([]models.Property, 0, len(props))
	for _, p := range props {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// VisibleList is what the list screen renders. The client filter only
// applies to buyers; realtors always see DisplayList unchanged.
func (s State) VisibleList(role models.Role, f ClientFilter) []models.Property {
	if role == models.RoleRealtor || !f.Active() {
		return s.DisplayList(role)
	}
	return f.Apply(s.Properties)
}
