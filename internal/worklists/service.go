// Package worklists manages saved searches users step through while
// reviewing records.
package worklists

import (
	"context"
	"errors"
	"fmt"

	"github.com/emeraldcitybeacon/conduit/internal/auth"
	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/repository"

	"github.com/google/uuid"
)

// ErrForbidden is returned when a worklist belongs to someone else.
var ErrForbidden = errors.New("worklist not owned by caller")

// Service manages worklists for their owners.
type Service struct {
	worklists repository.WorklistRepository
	services  repository.ServiceRepository
}

// NewService wires the worklist service against its stores.
func NewService(worklists repository.WorklistRepository, services repository.ServiceRepository) *Service {
	return &Service{worklists: worklists, services: services}
}

// Create saves a search for the caller.
func (s *Service) Create(ctx context.Context, name string, filters map[string]any) (domain.Worklist, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.Worklist{}, fmt.Errorf("no authenticated actor")
	}
	if filters == nil {
		filters = map[string]any{}
	}
	return s.worklists.Create(ctx, domain.NewWorklist(identity.UserID, name, filters))
}

// List returns the caller's worklists.
func (s *Service) List(ctx context.Context) ([]domain.Worklist, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("no authenticated actor")
	}
	return s.worklists.ListByOwner(ctx, identity.UserID)
}

// Get returns one of the caller's worklists.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Worklist, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.Worklist{}, fmt.Errorf("no authenticated actor")
	}
	wl, err := s.worklists.GetByID(ctx, id)
	if err != nil {
		return domain.Worklist{}, err
	}
	if wl.OwnerID != identity.UserID {
		return domain.Worklist{}, ErrForbidden
	}
	return wl, nil
}

// Delete removes one of the caller's worklists.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.worklists.Delete(ctx, id)
}

// Items re-runs the saved search. Unlike shelves, the result is live.
func (s *Service) Items(ctx context.Context, id uuid.UUID) ([]domain.Service, error) {
	wl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	query, _ := wl.Filters["q"].(string)
	limit := 0
	if raw, ok := wl.Filters["limit"].(float64); ok {
		limit = int(raw)
	}
	return s.services.Search(ctx, query, limit)
}

// Advance moves the cursor to the next item.
func (s *Service) Advance(ctx context.Context, id uuid.UUID) (domain.Worklist, error) {
	wl, err := s.Get(ctx, id)
	if err != nil {
		return domain.Worklist{}, err
	}
	wl.Cursor++
	return s.worklists.Update(ctx, wl)
}

// Retreat moves the cursor back to the previous item, stopping at the
// start.
func (s *Service) Retreat(ctx context.Context, id uuid.UUID) (domain.Worklist, error) {
	wl, err := s.Get(ctx, id)
	if err != nil {
		return domain.Worklist{}, err
	}
	if wl.Cursor > 0 {
		wl.Cursor--
	}
	return s.worklists.Update(ctx, wl)
}
