// Package shelves manages user-curated sets of entity references and
// their spreadsheet export.
package shelves

import (
	"context"
	"errors"
	"fmt"

	"github.com/emeraldcitybeacon/conduit/internal/auth"
	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ErrForbidden is returned when a shelf belongs to someone else.
var ErrForbidden = errors.New("shelf not owned by caller")

// ErrBadRef is returned for malformed member references.
var ErrBadRef = errors.New("invalid entity reference")

// Service manages shelves for their owners.
type Service struct {
	shelves  repository.ShelfRepository
	services repository.ServiceRepository
}

// NewService wires the shelf service against its stores.
func NewService(shelves repository.ShelfRepository, services repository.ServiceRepository) *Service {
	return &Service{shelves: shelves, services: services}
}

// Create makes an empty shelf for the caller.
func (s *Service) Create(ctx context.Context, name string) (domain.Shelf, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.Shelf{}, fmt.Errorf("no authenticated actor")
	}
	if name == "" {
		name = "Untitled shelf"
	}
	return s.shelves.Create(ctx, domain.NewShelf(identity.UserID, name))
}

// List returns the caller's shelves.
func (s *Service) List(ctx context.Context) ([]domain.Shelf, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("no authenticated actor")
	}
	return s.shelves.ListByOwner(ctx, identity.UserID)
}

// Get returns one of the caller's shelves.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Shelf, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.Shelf{}, fmt.Errorf("no authenticated actor")
	}
	shelf, err := s.shelves.GetByID(ctx, id)
	if err != nil {
		return domain.Shelf{}, err
	}
	if shelf.OwnerID != identity.UserID {
		return domain.Shelf{}, ErrForbidden
	}
	return shelf, nil
}

// Delete removes one of the caller's shelves.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.shelves.Delete(ctx, id)
}

// Add puts a reference on the shelf. Adding an existing member is a
// no-op.
func (s *Service) Add(ctx context.Context, id uuid.UUID, ref domain.EntityRef) (domain.Shelf, error) {
	shelf, err := s.Get(ctx, id)
	if err != nil {
		return domain.Shelf{}, err
	}
	if _, err := domain.ParseEntityType(string(ref.EntityType)); err != nil {
		return domain.Shelf{}, fmt.Errorf("%w: %v", ErrBadRef, err)
	}
	if _, err := uuid.Parse(ref.EntityID); err != nil {
		return domain.Shelf{}, fmt.Errorf("%w: bad entity_id: %v", ErrBadRef, err)
	}
	return s.shelves.Update(ctx, shelf.WithMember(ref))
}

// Remove drops a reference from the shelf. Removing a missing member is
// a no-op.
func (s *Service) Remove(ctx context.Context, id uuid.UUID, ref domain.EntityRef) (domain.Shelf, error) {
	shelf, err := s.Get(ctx, id)
	if err != nil {
		return domain.Shelf{}, err
	}
	return s.shelves.Update(ctx, shelf.WithoutMember(ref))
}

var exportHeaders = []string{"Entity Type", "Entity ID", "Name", "URL", "Email", "Phone", "Status"}

// Export renders the shelf's members as a spreadsheet. Service members
// get their live record values; other member kinds only their reference.
func (s *Service) Export(ctx context.Context, id uuid.UUID) (*excelize.File, error) {
	shelf, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for i, member := range shelf.Members {
		row := []any{string(member.EntityType), member.EntityID, "", "", "", "", ""}
		if member.EntityType == domain.EntityService {
			if serviceID, err := uuid.Parse(member.EntityID); err == nil {
				svc, err := s.services.GetByID(ctx, serviceID)
				if err == nil {
					row = []any{
						string(member.EntityType), member.EntityID,
						svc.Name, svc.URL, svc.Email, svc.Phone, string(svc.Status),
					}
				}
			}
		}
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}
