package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BulkScope names the selection mechanism behind a bulk operation.
// Shelves are the only supported scope today.
type BulkScope string

const ScopeShelf BulkScope = "shelf"

// BulkStatus is the linear lifecycle of a bulk operation.
type BulkStatus string

const (
	BulkStaged    BulkStatus = "staged"
	BulkCommitted BulkStatus = "committed"
	BulkUndone    BulkStatus = "undone"
)

// TargetStatus is the per-target outcome recorded in the preview.
type TargetStatus string

const (
	TargetPending TargetStatus = "pending"
	TargetApplied TargetStatus = "applied"
	TargetFailed  TargetStatus = "failed"
	TargetSkipped TargetStatus = "skipped"
)

// TargetPreview pairs a snapshotted target with its outcome.
type TargetPreview struct {
	Target EntityRef    `json:"target"`
	Status TargetStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// BulkOperation applies one JSON patch to every member of a shelf
// snapshot, with a staged/committed/undone lifecycle. Targets are frozen
// at staging time; later shelf edits do not affect a staged operation.
type BulkOperation struct {
	ID          uuid.UUID       `json:"id"`
	Scope       BulkScope       `json:"scope"`
	ShelfID     uuid.UUID       `json:"shelf_id"`
	Targets     []EntityRef     `json:"targets"`
	Patch       json.RawMessage `json:"patch"`
	Preview     []TargetPreview `json:"preview"`
	Inverses    json.RawMessage `json:"-"`
	Status      BulkStatus      `json:"status"`
	UndoToken   string          `json:"-"`
	CreatedBy   uuid.UUID       `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	CommittedAt *time.Time      `json:"committed_at,omitempty"`
	UndoneAt    *time.Time      `json:"undone_at,omitempty"`
}

// NewBulkOperation stages a patch against a snapshot of shelf members.
func NewBulkOperation(createdBy, shelfID uuid.UUID, targets []EntityRef, patch json.RawMessage) BulkOperation {
	preview := make([]TargetPreview, len(targets))
	for i, target := range targets {
		preview[i] = TargetPreview{Target: target, Status: TargetPending}
	}
	return BulkOperation{
		ID:        uuid.New(),
		Scope:     ScopeShelf,
		ShelfID:   shelfID,
		Targets:   targets,
		Patch:     patch,
		Preview:   preview,
		Status:    BulkStaged,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
}
