package models

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestParseFilters(t *testing.T) {
	q := url.Values{
		"minPrice":     {"100"},
		"maxPrice":     {"250.5"},
		"minRooms":     {"2"},
		"propertyType": {"condo"},
		"parking":      {"true"},
		"furnished":    {""},
	}
	f, err := ParseFilters(q)
	require.NoError(t, err)

	assert.Equal(t, 100.0, *f.MinPrice)
	assert.Equal(t, 250.5, *f.MaxPrice)
	assert.Equal(t, 2, *f.MinRooms)
	assert.Nil(t, f.MaxRooms)
	assert.Equal(t, PropertyTypeCondo, *f.PropertyType)
	assert.True(t, *f.Parking)
	assert.Nil(t, f.Furnished)
	assert.False(t, f.IsEmpty())
}

func TestParseFiltersRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
	}{
		{"float", url.Values{"minPrice": {"cheap"}}},
		{"nan", url.Values{"maxPrice": {"NaN"}}},
		{"inf", url.Values{"minArea": {"+Inf"}}},
		{"negative inf", url.Values{"maxArea": {"-inf"}}},
		{"int", url.Values{"maxRooms": {"2.5"}}},
		{"bool", url.Values{"petsAllowed": {"maybe"}}},
		{"type", url.Values{"propertyType": {"castle"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilters(tt.query)
			assert.Error(t, err)
		})
	}
}

func TestValuesRoundTripThroughParse(t *testing.T) {
	in := &PropertyFilters{
		MinArea:      ptr(40.0),
		MaxArea:      ptr(90.0),
		MaxRooms:     ptr(3),
		PropertyType: ptr(PropertyTypeStudio),
		PetsAllowed:  ptr(false),
	}
	out, err := ParseFilters(in.Values())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEmptyFilters(t *testing.T) {
	var nilFilters *PropertyFilters
	assert.True(t, nilFilters.IsEmpty())
	assert.True(t, (&PropertyFilters{}).IsEmpty())
	assert.Empty(t, nilFilters.Values())
	assert.True(t, nilFilters.Matches(Property{}))

	f, err := ParseFilters(url.Values{})
	require.NoError(t, err)
	assert.True(t, f.IsEmpty())
}

func TestMatches(t *testing.T) {
	p := Property{
		Price:        150,
		Area:         55,
		Rooms:        2,
		PropertyType: PropertyTypeApartment,
		Parking:      true,
	}
	tests := []struct {
		name    string
		filters PropertyFilters
		want    bool
	}{
		{"inside price range", PropertyFilters{MinPrice: ptr(100.0), MaxPrice: ptr(200.0)}, true},
		{"bounds are inclusive", PropertyFilters{MinPrice: ptr(150.0), MaxPrice: ptr(150.0)}, true},
		{"below min price", PropertyFilters{MinPrice: ptr(151.0)}, false},
		{"area above max", PropertyFilters{MaxArea: ptr(50.0)}, false},
		{"rooms", PropertyFilters{MinRooms: ptr(2), MaxRooms: ptr(2)}, true},
		{"other type", PropertyFilters{PropertyType: ptr(PropertyTypeHouse)}, false},
		{"parking wanted", PropertyFilters{Parking: ptr(true)}, true},
		{"furnished wanted", PropertyFilters{Furnished: ptr(true)}, false},
		{"unfurnished wanted", PropertyFilters{Furnished: ptr(false)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.Matches(p))
		})
	}
}
