package models

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
)

// PropertyFilters is the store-side predicate set. A nil field imposes no
// constraint; supplied fields combine with AND.
type PropertyFilters struct {
	MinPrice     *float64      `json:"minPrice,omitempty"`
	MaxPrice     *float64      `json:"maxPrice,omitempty"`
	MinArea      *float64      `json:"minArea,omitempty"`
	MaxArea      *float64      `json:"maxArea,omitempty"`
	MinRooms     *int          `json:"minRooms,omitempty"`
	MaxRooms     *int          `json:"maxRooms,omitempty"`
	PropertyType *PropertyType `json:"propertyType,omitempty"`
	Parking      *bool         `json:"parking,omitempty"`
	Furnished    *bool         `json:"furnished,omitempty"`
	PetsAllowed  *bool         `json:"petsAllowed,omitempty"`
}

func (f *PropertyFilters) IsEmpty() bool {
	return f == nil || len(f.Values()) == 0
}

// Matches reports whether p satisfies every supplied predicate. Availability
// is not part of the filter set.
func (f *PropertyFilters) Matches(p Property) bool {
	if f == nil {
		return true
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.MinArea != nil && p.Area < *f.MinArea {
		return false
	}
	if f.MaxArea != nil && p.Area > *f.MaxArea {
		return false
	}
	if f.MinRooms != nil && p.Rooms < *f.MinRooms {
		return false
	}
	if f.MaxRooms != nil && p.Rooms > *f.MaxRooms {
		return false
	}
	if f.PropertyType != nil && *f.PropertyType != "" && p.PropertyType != *f.PropertyType {
		return false
	}
	if f.Parking != nil && p.Parking != *f.Parking {
		return false
	}
	if f.Furnished != nil && p.Furnished != *f.Furnished {
		return false
	}
	if f.PetsAllowed != nil && p.PetsAllowed != *f.PetsAllowed {
		return false
	}
	return true
}

// Values encodes the supplied predicates as query parameters.
func (f *PropertyFilters) Values() url.Values {
	v := url.Values{}
	if f == nil {
		return v
	}
	setFloat := func(key string, val *float64) {
		if val != nil {
			v.Set(key, strconv.FormatFloat(*val, 'f', -1, 64))
		}
	}
	setInt := func(key string, val *int) {
		if val != nil {
			v.Set(key, strconv.Itoa(*val))
		}
	}
	setBool := func(key string, val *bool) {
		if val != nil {
			v.Set(key, strconv.FormatBool(*val))
		}
	}
	setFloat("minPrice", f.MinPrice)
	setFloat("maxPrice", f.MaxPrice)
	setFloat("minArea", f.MinArea)
	setFloat("maxArea", f.MaxArea)
	setInt("minRooms", f.MinRooms)
	setInt("maxRooms", f.MaxRooms)
	if f.PropertyType != nil && *f.PropertyType != "" {
		v.Set("propertyType", string(*f.PropertyType))
	}
	setBool("parking", f.Parking)
	setBool("furnished", f.Furnished)
	setBool("petsAllowed", f.PetsAllowed)
	return v
}

// ParseFilters reads filters from query parameters. Empty values are skipped.
func ParseFilters(query url.Values) (*PropertyFilters, error) {
	f := &PropertyFilters{}
	var err error
	parseFloat := func(key string) *float64 {
		raw := query.Get(key)
		if raw == "" || err != nil {
			return nil
		}
		n, perr := strconv.ParseFloat(raw, 64)
		if perr != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			err = fmt.Errorf("invalid numeric value for %s: %q", key, raw)
			return nil
		}
		return &n
	}
	parseInt := func(key string) *int {
		raw := query.Get(key)
		if raw == "" || err != nil {
			return nil
		}
		n, perr := strconv.Atoi(raw)
		if perr != nil {
			err = fmt.Errorf("invalid integer value for %s: %q", key, raw)
			return nil
		}
		return &n
	}
	parseBool := func(key string) *bool {
		raw := query.Get(key)
		if raw == "" || err != nil {
			return nil
		}
		b, perr := strconv.ParseBool(raw)
		if perr != nil {
			err = fmt.Errorf("invalid boolean value for %s: %q", key, raw)
			return nil
		}
		return &b
	}

	f.MinPrice = parseFloat("minPrice")
	f.MaxPrice = parseFloat("maxPrice")
	f.MinArea = parseFloat("minArea")
	f.MaxArea = parseFloat("maxArea")
	f.MinRooms = parseInt("minRooms")
	f.MaxRooms = parseInt("maxRooms")
	if raw := query.Get("propertyType"); raw != "" {
		t := PropertyType(raw)
		if !t.Valid() {
			return nil, fmt.Errorf("invalid propertyType: %q", raw)
		}
		f.PropertyType = &t
	}
	f.Parking = parseBool("parking")
	f.Furnished = parseBool("furnished")
	f.PetsAllowed = parseBool("petsAllowed")
	if err != nil {
		return nil, err
	}
	return f, nil
}
