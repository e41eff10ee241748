package models

import (
	"math"
	"strings"
)

// Validated is implemented by request payloads checked before any store call.
type Validated interface {
	Validate() error
}

func (d CreatePropertyData) Validate() error {
	fields := make(map[string]string)
	if strings.TrimSpace(d.Title) == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(d.Description) == "" {
		fields["description"] = "Description is required"
	}
	if !positive(d.Price) {
		fields["price"] = "Price must be a positive number"
	}
	if !positive(d.Area) {
		fields["area"] = "Area must be a positive number"
	}
	if d.Rooms <= 0 {
		fields["rooms"] = "Number of rooms must be a positive number"
	}
	if strings.TrimSpace(d.Location) == "" {
		fields["location"] = "Location is required"
	}
	if !d.PropertyType.Valid() {
		fields["propertyType"] = "Property type must be one of apartment, house, condo, studio"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (u UpdatePropertyData) Validate() error {
	fields := make(map[string]string)
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		fields["title"] = "Title is required"
	}
	if u.Description != nil && strings.TrimSpace(*u.Description) == "" {
		fields["description"] = "Description is required"
	}
	if u.Price != nil && !positive(*u.Price) {
		fields["price"] = "Price must be a positive number"
	}
	if u.Area != nil && !positive(*u.Area) {
		fields["area"] = "Area must be a positive number"
	}
	if u.Rooms != nil && *u.Rooms <= 0 {
		fields["rooms"] = "Number of rooms must be a positive number"
	}
	if u.Location != nil && strings.TrimSpace(*u.Location) == "" {
		fields["location"] = "Location is required"
	}
	if u.PropertyType != nil && !u.PropertyType.Valid() {
		fields["propertyType"] = "Property type must be one of apartment, house, condo, studio"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func positive(f float64) bool {
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}
