package domain

import (
	"time"

	"github.com/google/uuid"
)

// Location is a canonical place record tied to an organization.
type Location struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	PostalCode     string    `json:"postal_code"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewLocation creates a new location record for an organization.
func NewLocation(organizationID uuid.UUID, name string) Location {
	now := time.Now()
	return Location{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		Name:           name,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Geocoded reports whether the location carries coordinates.
func (l Location) Geocoded() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// Document renders the location as a generic nested document.
func (l Location) Document() map[string]any {
	doc := map[string]any{
		"id":          l.ID.String(),
		"name":        l.Name,
		"address":     l.Address,
		"city":        l.City,
		"state":       l.State,
		"postal_code": l.PostalCode,
	}
	if l.Latitude != nil {
		doc["latitude"] = *l.Latitude
	}
	if l.Longitude != nil {
		doc["longitude"] = *l.Longitude
	}
	return doc
}
