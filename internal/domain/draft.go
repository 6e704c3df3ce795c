package domain

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus is the lifecycle state of a draft resource.
type DraftStatus string

const (
	DraftPending  DraftStatus = "draft"
	DraftApproved DraftStatus = "approved"
	DraftRejected DraftStatus = "rejected"
)

// DraftResource is a pending composite submission. The payload is stored
// verbatim and only validated for basic shape; canonical rows are created
// at approval time.
type DraftResource struct {
	ID         uuid.UUID      `json:"id"`
	Payload    map[string]any `json:"payload"`
	Status     DraftStatus    `json:"status"`
	CreatedBy  uuid.UUID      `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
	ReviewNote string         `json:"review_note,omitempty"`
	ReviewedBy *uuid.UUID     `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time     `json:"reviewed_at,omitempty"`
}

// NewDraftResource stages a composite payload for review.
func NewDraftResource(createdBy uuid.UUID, payload map[string]any) DraftResource {
	return DraftResource{
		ID:        uuid.New(),
		Payload:   payload,
		Status:    DraftPending,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
}

// Terminal reports whether the draft can no longer be reviewed.
func (d DraftResource) Terminal() bool {
	return d.Status == DraftApproved || d.Status == DraftRejected
}
