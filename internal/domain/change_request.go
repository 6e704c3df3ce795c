package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChangeRequestStatus is the lifecycle state of a proposed edit.
type ChangeRequestStatus string

const (
	ChangePending  ChangeRequestStatus = "pending"
	ChangeApproved ChangeRequestStatus = "approved"
	ChangeRejected ChangeRequestStatus = "rejected"
)

// ChangeRequest is a JSON patch proposed against an existing canonical
// entity, awaiting editorial review.
type ChangeRequest struct {
	ID               uuid.UUID           `json:"id"`
	TargetEntityType EntityType          `json:"target_entity_type"`
	TargetEntityID   uuid.UUID           `json:"target_entity_id"`
	Patch            json.RawMessage     `json:"patch"`
	Note             string              `json:"note,omitempty"`
	Status           ChangeRequestStatus `json:"status"`
	SubmittedBy      uuid.UUID           `json:"submitted_by"`
	SubmittedAt      time.Time           `json:"submitted_at"`
	ReviewedBy       *uuid.UUID          `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time          `json:"reviewed_at,omitempty"`
}

// NewChangeRequest stages a patch against a target entity.
func NewChangeRequest(submittedBy uuid.UUID, targetType EntityType, targetID uuid.UUID, patch json.RawMessage, note string) ChangeRequest {
	return ChangeRequest{
		ID:               uuid.New(),
		TargetEntityType: targetType,
		TargetEntityID:   targetID,
		Patch:            patch,
		Note:             note,
		Status:           ChangePending,
		SubmittedBy:      submittedBy,
		SubmittedAt:      time.Now(),
	}
}

// Terminal reports whether the request can no longer be reviewed.
func (c ChangeRequest) Terminal() bool {
	return c.Status == ChangeApproved || c.Status == ChangeRejected
}
