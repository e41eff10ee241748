package models

import (
	"strings"
	"time"
)

type PropertyType string

const (
	PropertyTypeApartment PropertyType = "apartment"
	PropertyTypeHouse     PropertyType = "house"
	PropertyTypeCondo     PropertyType = "condo"
	PropertyTypeStudio    PropertyType = "studio"
)

var PropertyTypes = []PropertyType{
	PropertyTypeApartment,
	PropertyTypeHouse,
	PropertyTypeCondo,
	PropertyTypeStudio,
}

func (t PropertyType) Valid() bool {
	for _, known := range PropertyTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Amenity presets offered by the listing form.
var AmenityPresets = []string{"WiFi", "Air Conditioning", "Gym", "Pool", "Balcony", "Security"}

// Property is a rental listing. Field names are shared by the Mongo,
// Firestore and JSON encodings.
type Property struct {
	ID           string       `bson:"_id,omitempty" json:"id" firestore:"-"`
	Title        string       `bson:"title" json:"title" firestore:"title"`
	Description  string       `bson:"description" json:"description" firestore:"description"`
	Price        float64      `bson:"price" json:"price" firestore:"price"`
	Area         float64      `bson:"area" json:"area" firestore:"area"`
	Size         float64      `bson:"size,omitempty" json:"size,omitempty" firestore:"size,omitempty"`
	Rooms        int          `bson:"rooms" json:"rooms" firestore:"rooms"`
	ImageURL     string       `bson:"imageUrl" json:"imageUrl" firestore:"imageUrl"`
	Location     string       `bson:"location" json:"location" firestore:"location"`
	RealtorID    string       `bson:"realtorId" json:"realtorId" firestore:"realtorId"`
	RealtorEmail string       `bson:"realtorEmail" json:"realtorEmail" firestore:"realtorEmail"`
	CreatedAt    time.Time    `bson:"createdAt" json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time    `bson:"updatedAt" json:"updatedAt" firestore:"updatedAt"`
	IsAvailable  bool         `bson:"isAvailable" json:"isAvailable" firestore:"isAvailable"`
	Amenities    []string     `bson:"amenities" json:"amenities" firestore:"amenities"`
	PropertyType PropertyType `bson:"propertyType" json:"propertyType" firestore:"propertyType"`
	Parking      bool         `bson:"parking" json:"parking" firestore:"parking"`
	Furnished    bool         `bson:"furnished" json:"furnished" firestore:"furnished"`
	PetsAllowed  bool         `bson:"petsAllowed" json:"petsAllowed" firestore:"petsAllowed"`
}

// Clone returns a copy that shares no slices with p.
func (p Property) Clone() Property {
	if p.Amenities != nil {
		p.Amenities = append([]string(nil), p.Amenities...)
	}
	return p
}

type CreatePropertyData struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Price        float64      `json:"price"`
	Area         float64      `json:"area"`
	Rooms        int          `json:"rooms"`
	ImageURL     string       `json:"imageUrl"`
	Location     string       `json:"location"`
	Amenities    []string     `json:"amenities"`
	PropertyType PropertyType `json:"propertyType"`
	Parking      bool         `json:"parking"`
	Furnished    bool         `json:"furnished"`
	PetsAllowed  bool         `json:"petsAllowed"`
}

// NewProperty builds the record persisted for a fresh listing. Timestamps and
// the id are left for the store to assign.
func NewProperty(data CreatePropertyData, realtorID, realtorEmail string) Property {
	return Property{
		Title:        strings.TrimSpace(data.Title),
		Description:  strings.TrimSpace(data.Description),
		Price:        data.Price,
		Area:         data.Area,
		Rooms:        data.Rooms,
		ImageURL:     data.ImageURL,
		Location:     strings.TrimSpace(data.Location),
		RealtorID:    realtorID,
		RealtorEmail: realtorEmail,
		IsAvailable:  true,
		Amenities:    NormalizeAmenities(data.Amenities),
		PropertyType: data.PropertyType,
		Parking:      data.Parking,
		Furnished:    data.Furnished,
		PetsAllowed:  data.PetsAllowed,
	}
}

// UpdatePropertyData is a partial edit. Nil fields are left untouched.
type UpdatePropertyData struct {
	Title        *string       `json:"title,omitempty"`
	Description  *string       `json:"description,omitempty"`
	Price        *float64      `json:"price,omitempty"`
	Area         *float64      `json:"area,omitempty"`
	Rooms        *int          `json:"rooms,omitempty"`
	ImageURL     *string       `json:"imageUrl,omitempty"`
	Location     *string       `json:"location,omitempty"`
	Amenities    *[]string     `json:"amenities,omitempty"`
	PropertyType *PropertyType `json:"propertyType,omitempty"`
	Parking      *bool         `json:"parking,omitempty"`
	Furnished    *bool         `json:"furnished,omitempty"`
	PetsAllowed  *bool         `json:"petsAllowed,omitempty"`
}

func (u UpdatePropertyData) IsEmpty() bool {
	return len(u.Fields()) == 0
}

// Fields returns the supplied fields keyed by their stored name.
func (u UpdatePropertyData) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if u.Title != nil {
		fields["title"] = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		fields["description"] = strings.TrimSpace(*u.Description)
	}
	if u.Price != nil {
		fields["price"] = *u.Price
	}
	if u.Area != nil {
		fields["area"] = *u.Area
	}
	if u.Rooms != nil {
		fields["rooms"] = *u.Rooms
	}
	if u.ImageURL != nil {
		fields["imageUrl"] = *u.ImageURL
	}
	if u.Location != nil {
		fields["location"] = strings.TrimSpace(*u.Location)
	}
	if u.Amenities != nil {
		fields["amenities"] = NormalizeAmenities(*u.Amenities)
	}
	if u.PropertyType != nil {
		fields["propertyType"] = string(*u.PropertyType)
	}
	if u.Parking != nil {
		fields["parking"] = *u.Parking
	}
	if u.Furnished != nil {
		fields["furnished"] = *u.Furnished
	}
	if u.PetsAllowed != nil {
		fields["petsAllowed"] = *u.PetsAllowed
	}
	return fields
}

// Apply merges the supplied fields into p.
func (u UpdatePropertyData) Apply(p *Property) {
	if u.Title != nil {
		p.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		p.Description = strings.TrimSpace(*u.Description)
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Area != nil {
		p.Area = *u.Area
	}
	if u.Rooms != nil {
		p.Rooms = *u.Rooms
	}
	if u.ImageURL != nil {
		p.ImageURL = *u.ImageURL
	}
	if u.Location != nil {
		p.Location = strings.TrimSpace(*u.Location)
	}
	if u.Amenities != nil {
		p.Amenities = NormalizeAmenities(*u.Amenities)
	}
	if u.PropertyType != nil {
		p.PropertyType = *u.PropertyType
	}
	if u.Parking != nil {
		p.Parking = *u.Parking
	}
	if u.Furnished != nil {
		p.Furnished = *u.Furnished
	}
	if u.PetsAllowed != nil {
		p.PetsAllowed = *u.PetsAllowed
	}
}

// NormalizeAmenities trims tags and drops blanks and duplicates, keeping the
// first occurrence of each.
func NormalizeAmenities(amenities []string) []string {
	out := make([]string, 0, len(amenities))
	seen := make(map[string]bool, len(amenities))
	for _, a := range amenities {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
