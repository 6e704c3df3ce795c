package repository

import (
	"context"
	"errors"

	"github.com/emeraldcitybeacon/conduit/internal/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// OrganizationRepository defines the interface for organization operations
type OrganizationRepository interface {
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error)
	Update(ctx context.Context, org domain.Organization) (domain.Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SearchByName(ctx context.Context, query string, limit int) ([]domain.Organization, error)
}

// ServiceRepository defines the interface for service operations
type ServiceRepository interface {
	Create(ctx context.Context, svc domain.Service) (domain.Service, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Service, error)
	Update(ctx context.Context, svc domain.Service) (domain.Service, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, limit int) ([]domain.Service, error)
	// ListByOrganization and ListByLocation return sibling services
	// ordered by name.
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]domain.Service, error)
	ListByLocation(ctx context.Context, locationID uuid.UUID) ([]domain.Service, error)
}

// LocationRepository defines the interface for location operations
type LocationRepository interface {
	Create(ctx context.Context, loc domain.Location) (domain.Location, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Location, error)
	Update(ctx context.Context, loc domain.Location) (domain.Location, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// SearchByName matches against name, address and city.
	SearchByName(ctx context.Context, query string, limit int) ([]domain.Location, error)
}

// FieldVersionRepository is the per-field version ledger.
type FieldVersionRepository interface {
	// Versions returns the version map for an entity; untouched fields are
	// absent from the map.
	Versions(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (map[string]int, error)
	// Bump creates the row at version 1 or atomically increments it, and
	// returns the new version.
	Bump(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, fieldPath string, actor uuid.UUID) (int, error)
	ListForEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) ([]domain.FieldVersion, error)
}

// VerificationRepository is the append-only verification log.
type VerificationRepository interface {
	Append(ctx context.Context, event domain.VerificationEvent) (domain.VerificationEvent, error)
	ListForEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) ([]domain.VerificationEvent, error)
}

// SensitiveRepository stores at most one overlay per entity.
type SensitiveRepository interface {
	Get(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (domain.SensitiveOverlay, error)
	Upsert(ctx context.Context, overlay domain.SensitiveOverlay) (domain.SensitiveOverlay, error)
}

// DraftRepository stores pending composite submissions.
type DraftRepository interface {
	Create(ctx context.Context, draft domain.DraftResource) (domain.DraftResource, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.DraftResource, error)
	ListByCreator(ctx context.Context, createdBy uuid.UUID) ([]domain.DraftResource, error)
	Update(ctx context.Context, draft domain.DraftResource) (domain.DraftResource, error)
}

// ChangeRequestRepository stores proposed edits awaiting review.
type ChangeRequestRepository interface {
	Create(ctx context.Context, cr domain.ChangeRequest) (domain.ChangeRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ChangeRequest, error)
	ListPending(ctx context.Context) ([]domain.ChangeRequest, error)
	ListBySubmitter(ctx context.Context, submittedBy uuid.UUID) ([]domain.ChangeRequest, error)
	Update(ctx context.Context, cr domain.ChangeRequest) (domain.ChangeRequest, error)
}

// BulkOperationRepository stores staged bulk patches.
type BulkOperationRepository interface {
	Create(ctx context.Context, op domain.BulkOperation) (domain.BulkOperation, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.BulkOperation, error)
	Update(ctx context.Context, op domain.BulkOperation) (domain.BulkOperation, error)
}

// ShelfRepository stores user-curated entity sets.
type ShelfRepository interface {
	Create(ctx context.Context, shelf domain.Shelf) (domain.Shelf, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Shelf, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Shelf, error)
	Update(ctx context.Context, shelf domain.Shelf) (domain.Shelf, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// WorklistRepository stores saved searches.
type WorklistRepository interface {
	Create(ctx context.Context, wl domain.Worklist) (domain.Worklist, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Worklist, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Worklist, error)
	Update(ctx context.Context, wl domain.Worklist) (domain.Worklist, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// HealthStats summarizes data quality across the directory.
type HealthStats struct {
	TotalServices int `json:"total_services"`
	NoPhone       int `json:"no_phone"`
	NoHours       int `json:"no_hours"`
	NotGeocoded   int `json:"not_geocoded"`
	Stale         int `json:"stale"`
}

// HealthRepository aggregates data-quality counters.
type HealthRepository interface {
	Stats(ctx context.Context) (HealthStats, error)
}
