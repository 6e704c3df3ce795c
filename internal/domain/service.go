package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ServiceStatus mirrors the HSDS status vocabulary.
type ServiceStatus string

const (
	StatusActive            ServiceStatus = "active"
	StatusInactive          ServiceStatus = "inactive"
	StatusDefunct           ServiceStatus = "defunct"
	StatusTemporarilyClosed ServiceStatus = "temporarily closed"
)

// Service is the canonical service record. It drives the identity of the
// composite resource document.
type Service struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	LocationID     *uuid.UUID    `json:"location_id,omitempty"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	URL            string        `json:"url"`
	Email          string        `json:"email"`
	Phone          string        `json:"phone"`
	Hours          string        `json:"hours"`
	Status         ServiceStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NewService creates a new service linked to an organization and,
// optionally, a location.
func NewService(organizationID uuid.UUID, locationID *uuid.UUID, name string) Service {
	now := time.Now()
	return Service{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		LocationID:     locationID,
		Name:           name,
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// EditableServiceFields lists the service fields writable through the
// resource PATCH surface, in a stable order.
var EditableServiceFields = []string{"name", "description", "url", "email", "phone", "hours", "status"}

// Field returns the current value of an editable field.
func (s Service) Field(name string) (string, error) {
	switch name {
	case "name":
		return s.Name, nil
	case "description":
		return s.Description, nil
	case "url":
		return s.URL, nil
	case "email":
		return s.Email, nil
	case "phone":
		return s.Phone, nil
	case "hours":
		return s.Hours, nil
	case "status":
		return string(s.Status), nil
	default:
		return "", fmt.Errorf("unknown service field: %q", name)
	}
}

// WithField returns a new service with one editable field replaced.
func (s Service) WithField(name, value string) (Service, error) {
	out := s
	switch name {
	case "name":
		out.Name = value
	case "description":
		out.Description = value
	case "url":
		out.URL = value
	case "email":
		out.Email = value
	case "phone":
		out.Phone = value
	case "hours":
		out.Hours = value
	case "status":
		out.Status = ServiceStatus(value)
	default:
		return s, fmt.Errorf("unknown service field: %q", name)
	}
	out.UpdatedAt = time.Now()
	return out, nil
}

// Document renders the service as a generic nested document.
func (s Service) Document() map[string]any {
	doc := map[string]any{
		"id":          s.ID.String(),
		"name":        s.Name,
		"description": s.Description,
		"url":         s.URL,
		"email":       s.Email,
		"phone":       s.Phone,
		"hours":       s.Hours,
		"status":      string(s.Status),
	}
	return doc
}
