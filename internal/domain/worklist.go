package domain

import (
	"time"

	"github.com/google/uuid"
)

// Worklist is a saved search a user steps through while reviewing
// records. Filters are stored verbatim and re-run on each visit, unlike a
// shelf, which snapshots its members.
type Worklist struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	OwnerID   uuid.UUID      `json:"owner_id"`
	Filters   map[string]any `json:"filters"`
	Cursor    int            `json:"cursor"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewWorklist creates a saved search for a user.
func NewWorklist(ownerID uuid.UUID, name string, filters map[string]any) Worklist {
	now := time.Now()
	return Worklist{
		ID:        uuid.New(),
		Name:      name,
		OwnerID:   ownerID,
		Filters:   filters,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
