package domain

import (
	"time"

	"github.com/google/uuid"
)

// Shelf is a user-curated set of entity references, used to scope bulk
// operations and exports.
type Shelf struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	OwnerID   uuid.UUID   `json:"owner_id"`
	Members   []EntityRef `json:"members"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewShelf creates an empty shelf for a user.
func NewShelf(ownerID uuid.UUID, name string) Shelf {
	now := time.Now()
	return Shelf{
		ID:        uuid.New(),
		Name:      name,
		OwnerID:   ownerID,
		Members:   []EntityRef{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Contains reports whether the shelf already holds a reference.
func (s Shelf) Contains(ref EntityRef) bool {
	for _, member := range s.Members {
		if member == ref {
			return true
		}
	}
	return false
}

// WithMember returns a new shelf including the reference. Adding an
// existing member is a no-op.
func (s Shelf) WithMember(ref EntityRef) Shelf {
	if s.Contains(ref) {
		return s
	}
	out := s
	out.Members = append(append([]EntityRef{}, s.Members...), ref)
	out.UpdatedAt = time.Now()
	return out
}

// WithoutMember returns a new shelf without the reference. Removing a
// missing member is a no-op.
func (s Shelf) WithoutMember(ref EntityRef) Shelf {
	out := s
	members := make([]EntityRef, 0, len(s.Members))
	for _, member := range s.Members {
		if member != ref {
			members = append(members, member)
		}
	}
	out.Members = members
	out.UpdatedAt = time.Now()
	return out
}
