// Package workflow implements the editorial staging areas: draft
// resources awaiting first publication and change requests proposing
// edits to canonical records.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emeraldcitybeacon/conduit/internal/auth"
	"github.com/emeraldcitybeacon/conduit/internal/db"
	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/jsonpath"
	"github.com/emeraldcitybeacon/conduit/internal/repository"

	"github.com/google/uuid"
)

// ErrForbidden is returned when the actor's role may not perform a
// review action.
var ErrForbidden = errors.New("editor role required")

// ErrTerminal is returned when a draft or change request has already
// been reviewed.
var ErrTerminal = errors.New("already reviewed")

const draftApprovalNote = "draft approved"

// DraftService stages and reviews composite submissions.
type DraftService struct {
	drafts        repository.DraftRepository
	organizations repository.OrganizationRepository
	locations     repository.LocationRepository
	services      repository.ServiceRepository
	versions      repository.FieldVersionRepository
	verifications repository.VerificationRepository
	tx            db.TxRunner
}

// NewDraftService wires the draft workflow against its stores.
func NewDraftService(
	drafts repository.DraftRepository,
	organizations repository.OrganizationRepository,
	locations repository.LocationRepository,
	services repository.ServiceRepository,
	versions repository.FieldVersionRepository,
	verifications repository.VerificationRepository,
	tx db.TxRunner,
) *DraftService {
	return &DraftService{
		drafts:        drafts,
		organizations: organizations,
		locations:     locations,
		services:      services,
		versions:      versions,
		verifications: verifications,
		tx:            tx,
	}
}

// Create stages a composite payload verbatim. The payload is only
// validated for being a JSON object; canonical validation happens at
// approval.
func (s *DraftService) Create(ctx context.Context, payload map[string]any) (domain.DraftResource, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.DraftResource{}, fmt.Errorf("no authenticated actor")
	}
	if payload == nil {
		return domain.DraftResource{}, fmt.Errorf("payload must be a JSON object")
	}
	return s.drafts.Create(ctx, domain.NewDraftResource(identity.UserID, payload))
}

// List returns the caller's drafts.
func (s *DraftService) List(ctx context.Context) ([]domain.DraftResource, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("no authenticated actor")
	}
	return s.drafts.ListByCreator(ctx, identity.UserID)
}

// ApprovalResult reports the canonical rows a draft materialized into.
type ApprovalResult struct {
	Draft          domain.DraftResource `json:"draft"`
	OrganizationID uuid.UUID            `json:"organization_id"`
	LocationID     *uuid.UUID           `json:"location_id,omitempty"`
	ServiceID      uuid.UUID            `json:"service_id"`
}

// Approve materializes a draft into canonical rows and seeds the version
// ledger and verification log for every leaf path in the payload. The
// whole operation is one transaction.
func (s *DraftService) Approve(ctx context.Context, draftID uuid.UUID) (ApprovalResult, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return ApprovalResult{}, fmt.Errorf("no authenticated actor")
	}
	if !identity.Role.CanReview() {
		return ApprovalResult{}, ErrForbidden
	}

	draft, err := s.drafts.GetByID(ctx, draftID)
	if err != nil {
		return ApprovalResult{}, err
	}
	if draft.Terminal() {
		return ApprovalResult{}, ErrTerminal
	}

	var result ApprovalResult
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		org := domain.NewOrganization(
			stringAt(draft.Payload, "organization.name"),
			stringAt(draft.Payload, "organization.description"),
			stringAt(draft.Payload, "organization.email"),
			stringAt(draft.Payload, "organization.url"),
		)
		if _, err := s.organizations.Create(ctx, org); err != nil {
			return err
		}

		var locationID *uuid.UUID
		if _, ok := draft.Payload["location"].(map[string]any); ok {
			loc := domain.NewLocation(org.ID, stringAt(draft.Payload, "location.name"))
			loc.Address = stringAt(draft.Payload, "location.address")
			loc.City = stringAt(draft.Payload, "location.city")
			loc.State = stringAt(draft.Payload, "location.state")
			loc.PostalCode = stringAt(draft.Payload, "location.postal_code")
			if lat, ok := floatAt(draft.Payload, "location.latitude"); ok {
				loc.Latitude = &lat
			}
			if lng, ok := floatAt(draft.Payload, "location.longitude"); ok {
				loc.Longitude = &lng
			}
			if _, err := s.locations.Create(ctx, loc); err != nil {
				return err
			}
			locationID = &loc.ID
		}

		svc := domain.NewService(org.ID, locationID, stringAt(draft.Payload, "service.name"))
		svc.Description = stringAt(draft.Payload, "service.description")
		svc.URL = stringAt(draft.Payload, "service.url")
		svc.Email = stringAt(draft.Payload, "service.email")
		svc.Phone = stringAt(draft.Payload, "service.phone")
		svc.Hours = stringAt(draft.Payload, "service.hours")
		if status := stringAt(draft.Payload, "service.status"); status != "" {
			svc.Status = domain.ServiceStatus(status)
		}
		if _, err := s.services.Create(ctx, svc); err != nil {
			return err
		}

		owners := map[domain.EntityType]uuid.UUID{
			domain.EntityOrganization: org.ID,
			domain.EntityService:      svc.ID,
		}
		if locationID != nil {
			owners[domain.EntityLocation] = *locationID
		}

		now := time.Now()
		for _, path := range jsonpath.Leaves(draft.Payload) {
			entityType, err := domain.EntityTypeForPath(path)
			if err != nil {
				continue // namespaces outside the canonical model are kept in the payload only
			}
			entityID, ok := owners[entityType]
			if !ok {
				continue
			}
			if _, err := s.versions.Bump(ctx, entityType, entityID, path, identity.UserID); err != nil {
				return err
			}
			event := domain.VerificationEvent{
				ID:         uuid.New(),
				EntityType: entityType,
				EntityID:   entityID,
				FieldPath:  path,
				Method:     domain.MethodOther,
				Note:       draftApprovalNote,
				VerifiedBy: identity.UserID,
				VerifiedAt: now,
			}
			if _, err := s.verifications.Append(ctx, event); err != nil {
				return err
			}
		}

		draft.Status = domain.DraftApproved
		draft.ReviewedBy = &identity.UserID
		reviewedAt := now
		draft.ReviewedAt = &reviewedAt
		if _, err := s.drafts.Update(ctx, draft); err != nil {
			return err
		}

		result = ApprovalResult{
			Draft:          draft,
			OrganizationID: org.ID,
			LocationID:     locationID,
			ServiceID:      svc.ID,
		}
		return nil
	})
	if err != nil {
		return ApprovalResult{}, err
	}
	return result, nil
}

// Reject marks a draft rejected with a review note. No canonical rows
// are written.
func (s *DraftService) Reject(ctx context.Context, draftID uuid.UUID, note string) (domain.DraftResource, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.DraftResource{}, fmt.Errorf("no authenticated actor")
	}
	if !identity.Role.CanReview() {
		return domain.DraftResource{}, ErrForbidden
	}

	draft, err := s.drafts.GetByID(ctx, draftID)
	if err != nil {
		return domain.DraftResource{}, err
	}
	if draft.Terminal() {
		return domain.DraftResource{}, ErrTerminal
	}

	now := time.Now()
	draft.Status = domain.DraftRejected
	draft.ReviewNote = note
	draft.ReviewedBy = &identity.UserID
	draft.ReviewedAt = &now
	return s.drafts.Update(ctx, draft)
}

func stringAt(doc map[string]any, path string) string {
	value, _ := jsonpath.GetDefault(doc, path, "").(string)
	return value
}

func floatAt(doc map[string]any, path string) (float64, bool) {
	value, ok := jsonpath.Get(doc, path)
	if !ok {
		return 0, false
	}
	f, ok := value.(float64)
	return f, ok
}
