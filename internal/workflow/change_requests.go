package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/emeraldcitybeacon/conduit/internal/auth"
	"github.com/emeraldcitybeacon/conduit/internal/db"
	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/jsonpatch"
	"github.com/emeraldcitybeacon/conduit/internal/repository"

	"github.com/google/uuid"
)

const changeApprovalNote = "change request approved"

// ChangeRequestService stages and reviews proposed edits to canonical
// entities.
type ChangeRequestService struct {
	requests      repository.ChangeRequestRepository
	organizations repository.OrganizationRepository
	locations     repository.LocationRepository
	services      repository.ServiceRepository
	versions      repository.FieldVersionRepository
	verifications repository.VerificationRepository
	tx            db.TxRunner
}

// NewChangeRequestService wires the change request workflow.
func NewChangeRequestService(
	requests repository.ChangeRequestRepository,
	organizations repository.OrganizationRepository,
	locations repository.LocationRepository,
	services repository.ServiceRepository,
	versions repository.FieldVersionRepository,
	verifications repository.VerificationRepository,
	tx db.TxRunner,
) *ChangeRequestService {
	return &ChangeRequestService{
		requests:      requests,
		organizations: organizations,
		locations:     locations,
		services:      services,
		versions:      versions,
		verifications: verifications,
		tx:            tx,
	}
}

// Submit stages a patch against an existing entity. Only the patch's
// well-formedness is validated here, not business rules.
func (s *ChangeRequestService) Submit(ctx context.Context, targetType domain.EntityType, targetID uuid.UUID, patch json.RawMessage, note string) (domain.ChangeRequest, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.ChangeRequest{}, fmt.Errorf("no authenticated actor")
	}
	if _, err := jsonpatch.ParseOps(patch); err != nil {
		return domain.ChangeRequest{}, err
	}
	if _, err := s.entityDocument(ctx, targetType, targetID); err != nil {
		return domain.ChangeRequest{}, err
	}
	return s.requests.Create(ctx, domain.NewChangeRequest(identity.UserID, targetType, targetID, patch, note))
}

// ListPending returns the review queue.
func (s *ChangeRequestService) ListPending(ctx context.Context) ([]domain.ChangeRequest, error) {
	return s.requests.ListPending(ctx)
}

// ListMine returns the caller's submissions.
func (s *ChangeRequestService) ListMine(ctx context.Context) ([]domain.ChangeRequest, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("no authenticated actor")
	}
	return s.requests.ListBySubmitter(ctx, identity.UserID)
}

// Approve applies the stored patch to the target entity, writing only the
// fields whose values differ and bumping their versions, in one
// transaction.
func (s *ChangeRequestService) Approve(ctx context.Context, requestID uuid.UUID) (domain.ChangeRequest, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.ChangeRequest{}, fmt.Errorf("no authenticated actor")
	}
	if !identity.Role.CanReview() {
		return domain.ChangeRequest{}, ErrForbidden
	}

	cr, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return domain.ChangeRequest{}, err
	}
	if cr.Terminal() {
		return domain.ChangeRequest{}, ErrTerminal
	}

	ops, err := jsonpatch.ParseOps(cr.Patch)
	if err != nil {
		return domain.ChangeRequest{}, err
	}

	source, err := s.entityDocument(ctx, cr.TargetEntityType, cr.TargetEntityID)
	if err != nil {
		return domain.ChangeRequest{}, err
	}
	patched, err := jsonpatch.Apply(source, ops)
	if err != nil {
		return domain.ChangeRequest{}, err
	}
	patchedDoc, ok := patched.(map[string]any)
	if !ok {
		return domain.ChangeRequest{}, fmt.Errorf("patch must produce an object")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		changed, err := s.writeChangedFields(ctx, cr.TargetEntityType, cr.TargetEntityID, source, patchedDoc)
		if err != nil {
			return err
		}
		now := time.Now()
		for _, field := range changed {
			path := string(cr.TargetEntityType) + "." + field
			if _, err := s.versions.Bump(ctx, cr.TargetEntityType, cr.TargetEntityID, path, identity.UserID); err != nil {
				return err
			}
			event := domain.VerificationEvent{
				ID:         uuid.New(),
				EntityType: cr.TargetEntityType,
				EntityID:   cr.TargetEntityID,
				FieldPath:  path,
				Method:     domain.MethodOther,
				Note:       changeApprovalNote,
				VerifiedBy: identity.UserID,
				VerifiedAt: now,
			}
			if _, err := s.verifications.Append(ctx, event); err != nil {
				return err
			}
		}

		cr.Status = domain.ChangeApproved
		cr.ReviewedBy = &identity.UserID
		reviewedAt := now
		cr.ReviewedAt = &reviewedAt
		_, err = s.requests.Update(ctx, cr)
		return err
	})
	if err != nil {
		return domain.ChangeRequest{}, err
	}
	return cr, nil
}

// Reject marks a request rejected. No entity writes occur.
func (s *ChangeRequestService) Reject(ctx context.Context, requestID uuid.UUID) (domain.ChangeRequest, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.ChangeRequest{}, fmt.Errorf("no authenticated actor")
	}
	if !identity.Role.CanReview() {
		return domain.ChangeRequest{}, ErrForbidden
	}

	cr, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return domain.ChangeRequest{}, err
	}
	if cr.Terminal() {
		return domain.ChangeRequest{}, ErrTerminal
	}

	now := time.Now()
	cr.Status = domain.ChangeRejected
	cr.ReviewedBy = &identity.UserID
	cr.ReviewedAt = &now
	return s.requests.Update(ctx, cr)
}

// entityDocument builds the flat document a change request patch targets.
func (s *ChangeRequestService) entityDocument(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (map[string]any, error) {
	switch entityType {
	case domain.EntityService:
		svc, err := s.services.GetByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return svc.Document(), nil
	case domain.EntityOrganization:
		org, err := s.organizations.GetByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return org.Document(), nil
	case domain.EntityLocation:
		loc, err := s.locations.GetByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return loc.Document(), nil
	default:
		return nil, fmt.Errorf("unsupported target entity type %q", entityType)
	}
}

// writeChangedFields persists every field whose patched value differs
// from the source document and returns the changed field names.
func (s *ChangeRequestService) writeChangedFields(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, source, patched map[string]any) ([]string, error) {
	switch entityType {
	case domain.EntityService:
		svc, err := s.services.GetByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		var changed []string
		for _, field := range domain.EditableServiceFields {
			value, ok := patched[field].(string)
			if !ok {
				continue
			}
			current, _ := source[field].(string)
			if current == value {
				continue
			}
			svc, err = svc.WithField(field, value)
			if err != nil {
				return nil, err
			}
			changed = append(changed, field)
		}
		if len(changed) > 0 {
			if _, err := s.services.Update(ctx, svc); err != nil {
				return nil, err
			}
		}
		return changed, nil
	case domain.EntityOrganization:
		org, err := s.organizations.GetByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		var changed []string
		set := func(field string, dst *string) {
			value, ok := patched[field].(string)
			if !ok || *dst == value {
				return
			}
			*dst = value
			changed = append(changed, field)
		}
		set("name", &org.Name)
		set("description", &org.Description)
		set("email", &org.Email)
		set("url", &org.URL)
		if len(changed) > 0 {
			org.UpdatedAt = time.Now()
			if _, err := s.organizations.Update(ctx, org); err != nil {
				return nil, err
			}
		}
		return changed, nil
	case domain.EntityLocation:
		loc, err := s.locations.GetByID(ctx, entityID)
		if err != nil {
			return nil, err
		}
		var changed []string
		set := func(field string, dst *string) {
			value, ok := patched[field].(string)
			if !ok || *dst == value {
				return
			}
			*dst = value
			changed = append(changed, field)
		}
		set("name", &loc.Name)
		set("address", &loc.Address)
		set("city", &loc.City)
		set("state", &loc.State)
		set("postal_code", &loc.PostalCode)
		if lat, ok := patched["latitude"].(float64); ok && (loc.Latitude == nil || *loc.Latitude != lat) {
			loc.Latitude = &lat
			changed = append(changed, "latitude")
		}
		if lng, ok := patched["longitude"].(float64); ok && (loc.Longitude == nil || *loc.Longitude != lng) {
			loc.Longitude = &lng
			changed = append(changed, "longitude")
		}
		if len(changed) > 0 {
			loc.UpdatedAt = time.Now()
			if _, err := s.locations.Update(ctx, loc); err != nil {
				return nil, err
			}
		}
		return changed, nil
	default:
		return nil, fmt.Errorf("unsupported target entity type %q", entityType)
	}
}
