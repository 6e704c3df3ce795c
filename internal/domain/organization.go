package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the canonical provider record that services hang off.
type Organization struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Email       string    `json:"email"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewOrganization creates a new organization record.
func NewOrganization(name, description, email, url string) Organization {
	now := time.Now()
	return Organization{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Email:       email,
		URL:         url,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Document renders the organization as a generic nested document for
// serialization and diffing.
func (o Organization) Document() map[string]any {
	return map[string]any{
		"id":          o.ID.String(),
		"name":        o.Name,
		"description": o.Description,
		"email":       o.Email,
		"url":         o.URL,
	}
}
