package domain

import (
	"time"

	"github.com/google/uuid"
)

// FieldVersion is a per-field monotonic counter used for optimistic
// concurrency. One row exists per (entity_type, entity_id, field_path)
// once the field has been written at least once.
type FieldVersion struct {
	ID         uuid.UUID  `json:"id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   uuid.UUID  `json:"entity_id"`
	FieldPath  string     `json:"field_path"`
	Version    int        `json:"version"`
	UpdatedBy  uuid.UUID  `json:"updated_by"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
