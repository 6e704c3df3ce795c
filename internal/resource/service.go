// Package resource assembles one service with its organization and
// primary location into a single composite document, and guards writes to
// it with the field policy and the optimistic-lock protocol.
package resource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emeraldcitybeacon/conduit/internal/auth"
	"github.com/emeraldcitybeacon/conduit/internal/db"
	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/jsonpath"
	"github.com/emeraldcitybeacon/conduit/internal/repository"
	"github.com/emeraldcitybeacon/conduit/internal/versioning"

	"github.com/google/uuid"
)

// ValidationError carries per-field reasons for a rejected write.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, reason := range e.Fields {
		parts = append(parts, field+": "+reason)
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, ", ")
}

// PreconditionError reports a stale If-Match. It carries the current
// etags and the current values of the fields the caller was touching so
// the client can reconcile without another round trip.
type PreconditionError struct {
	ETags   map[string]string
	Current map[string]any
}

func (e *PreconditionError) Error() string { return "resource etag precondition failed" }

// ConflictError reports mismatched per-field version assertions.
type ConflictError struct {
	Paths   []string
	ETags   map[string]string
	Current map[string]any
}

func (e *ConflictError) Error() string {
	return "version assertion failed for: " + strings.Join(e.Paths, ", ")
}

// Service composes and updates resources.
type Service struct {
	services      repository.ServiceRepository
	organizations repository.OrganizationRepository
	locations     repository.LocationRepository
	versions      repository.FieldVersionRepository
	verifications repository.VerificationRepository
	sensitive     repository.SensitiveRepository
	policy        FieldPolicy
	tx            db.TxRunner
}

// NewService wires the composer against its stores.
func NewService(
	services repository.ServiceRepository,
	organizations repository.OrganizationRepository,
	locations repository.LocationRepository,
	versions repository.FieldVersionRepository,
	verifications repository.VerificationRepository,
	sensitive repository.SensitiveRepository,
	policy FieldPolicy,
	tx db.TxRunner,
) *Service {
	return &Service{
		services:      services,
		organizations: organizations,
		locations:     locations,
		versions:      versions,
		verifications: verifications,
		sensitive:     sensitive,
		policy:        policy,
		tx:            tx,
	}
}

// Composite is a composed resource plus its concurrency tokens.
type Composite struct {
	Document map[string]any
	ETag     string
	Versions map[string]int
}

// Get composes the resource for a service id, applying redaction.
func (s *Service) Get(ctx context.Context, serviceID uuid.UUID) (Composite, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return Composite{}, err
	}
	return s.compose(ctx, svc)
}

func (s *Service) compose(ctx context.Context, svc domain.Service) (Composite, error) {
	org, err := s.organizations.GetByID(ctx, svc.OrganizationID)
	if err != nil {
		return Composite{}, fmt.Errorf("load organization: %w", err)
	}

	doc := map[string]any{
		"id":           svc.ID.String(),
		"service":      svc.Document(),
		"organization": org.Document(),
	}

	if svc.LocationID != nil {
		loc, err := s.locations.GetByID(ctx, *svc.LocationID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return Composite{}, fmt.Errorf("load location: %w", err)
		}
		if err == nil {
			doc["location"] = loc.Document()
		}
	}

	versions, err := s.mergedVersions(ctx, svc)
	if err != nil {
		return Composite{}, err
	}
	doc["etags"] = versioning.BuildETagMap(versions)

	doc["sensitive"] = false
	overlay, err := s.sensitive.Get(ctx, domain.EntityService, svc.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Composite{}, fmt.Errorf("load sensitive overlay: %w", err)
	}
	if err == nil && overlay.Sensitive {
		for _, path := range overlay.RedactedPaths() {
			jsonpath.Delete(doc, path)
		}
		doc["sensitive"] = true
	}

	return Composite{
		Document: doc,
		ETag:     versioning.ResourceETag(versions),
		Versions: versions,
	}, nil
}

// mergedVersions unions the ledgers of the service, its organization and
// its location. Paths are namespaced ("service.url") so the maps never
// collide.
func (s *Service) mergedVersions(ctx context.Context, svc domain.Service) (map[string]int, error) {
	merged, err := s.versions.Versions(ctx, domain.EntityService, svc.ID)
	if err != nil {
		return nil, err
	}
	orgVersions, err := s.versions.Versions(ctx, domain.EntityOrganization, svc.OrganizationID)
	if err != nil {
		return nil, err
	}
	for path, version := range orgVersions {
		merged[path] = version
	}
	if svc.LocationID != nil {
		locVersions, err := s.versions.Versions(ctx, domain.EntityLocation, *svc.LocationID)
		if err != nil {
			return nil, err
		}
		for path, version := range locVersions {
			merged[path] = version
		}
	}
	return merged, nil
}

// UpdateRequest is a partial update to the composite resource.
type UpdateRequest struct {
	// Fields maps composite paths like "service.url" to their new value.
	Fields map[string]any
	// IfMatch is the resource-level ETag precondition. Required.
	IfMatch string
	// AssertVersions optionally pins individual field versions.
	AssertVersions map[string]int
}

// Update applies a partial update under the optimistic-lock protocol:
// ETag precondition, then per-field version assertions, then the
// role-based field policy. Only fields whose value actually changes are
// written and bumped.
func (s *Service) Update(ctx context.Context, serviceID uuid.UUID, req UpdateRequest) (Composite, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return Composite{}, fmt.Errorf("no authenticated actor")
	}

	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return Composite{}, err
	}

	versions, err := s.mergedVersions(ctx, svc)
	if err != nil {
		return Composite{}, err
	}
	currentETag := versioning.ResourceETag(versions)

	if req.IfMatch == "" {
		return Composite{}, &ValidationError{Fields: map[string]string{"If-Match": "required"}}
	}
	if req.IfMatch != currentETag {
		return Composite{}, &PreconditionError{
			ETags:   versioning.BuildETagMap(versions),
			Current: s.currentValues(svc, pathsOf(req.Fields)),
		}
	}

	if mismatched := versioning.AssertVersions(versions, req.AssertVersions); len(mismatched) > 0 {
		return Composite{}, &ConflictError{
			Paths:   mismatched,
			ETags:   versioning.BuildETagMap(versions),
			Current: s.currentValues(svc, mismatched),
		}
	}

	changed, err := s.planServiceWrites(svc, identity.Role, req.Fields)
	if err != nil {
		return Composite{}, err
	}

	if len(changed) > 0 {
		updated := svc
		for _, change := range changed {
			updated, err = updated.WithField(change.field, change.value)
			if err != nil {
				return Composite{}, &ValidationError{Fields: map[string]string{change.field: err.Error()}}
			}
		}
		err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
			if _, err := s.services.Update(ctx, updated); err != nil {
				return err
			}
			for _, change := range changed {
				if _, err := s.versions.Bump(ctx, domain.EntityService, svc.ID, change.path, identity.UserID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return Composite{}, err
		}
		svc = updated
	}

	return s.compose(ctx, svc)
}

type fieldWrite struct {
	path  string // composite path, e.g. "service.url"
	field string // service column, e.g. "url"
	value string
}

// planServiceWrites validates the submitted fields against the policy and
// drops no-op writes. All-or-nothing: any rejected field fails the whole
// batch before anything is written.
func (s *Service) planServiceWrites(svc domain.Service, role domain.Role, fields map[string]any) ([]fieldWrite, error) {
	problems := make(map[string]string)
	var writes []fieldWrite

	paths := pathsOf(fields)
	sort.Strings(paths)
	for _, path := range paths {
		field, ok := strings.CutPrefix(path, "service.")
		if !ok {
			problems[path] = "not an editable field"
			continue
		}
		if !s.policy.Known(path) {
			problems[field] = "not an editable field"
			continue
		}
		if !s.policy.Allows(role, path) {
			problems[field] = PolicyReviewRequired
			continue
		}
		raw := fields[path]
		value, ok := raw.(string)
		if !ok {
			problems[field] = "must be a string"
			continue
		}
		current, err := svc.Field(field)
		if err != nil {
			problems[field] = err.Error()
			continue
		}
		if current == value {
			continue // unchanged values do not bump versions
		}
		writes = append(writes, fieldWrite{path: path, field: field, value: value})
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Fields: problems}
	}
	return writes, nil
}

func pathsOf(fields map[string]any) []string {
	paths := make([]string, 0, len(fields))
	for path := range fields {
		paths = append(paths, path)
	}
	return paths
}

// currentValues resolves the live values of composite paths for conflict
// responses. Only service fields are resolvable here.
func (s *Service) currentValues(svc domain.Service, paths []string) map[string]any {
	doc := map[string]any{"service": svc.Document()}
	current := make(map[string]any, len(paths))
	for _, path := range paths {
		if value, ok := jsonpath.Get(doc, path); ok {
			current[path] = value
		}
	}
	return current
}

// VerifyRequest records that a field was confirmed. Either Item or
// FieldPath+Method must be set; Item is resolved through the fixed
// checklist.
type VerifyRequest struct {
	Item      string
	FieldPath string
	Method    string
	Note      string
}

// Verify appends a verification event for a field of the composite.
func (s *Service) Verify(ctx context.Context, serviceID uuid.UUID, req VerifyRequest) (domain.VerificationEvent, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.VerificationEvent{}, fmt.Errorf("no authenticated actor")
	}

	fieldPath := req.FieldPath
	method := domain.VerificationMethod(req.Method)
	if req.Item != "" {
		item, ok := domain.VerificationChecklist[req.Item]
		if !ok {
			return domain.VerificationEvent{}, &ValidationError{Fields: map[string]string{"item": "unknown checklist item"}}
		}
		fieldPath = item.FieldPath
		method = item.Method
	} else {
		if fieldPath == "" {
			return domain.VerificationEvent{}, &ValidationError{Fields: map[string]string{"field_path": "required"}}
		}
		var err error
		method, err = domain.ParseVerificationMethod(req.Method)
		if err != nil {
			return domain.VerificationEvent{}, &ValidationError{Fields: map[string]string{"method": err.Error()}}
		}
	}

	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return domain.VerificationEvent{}, err
	}
	entityType, entityID, err := s.resolveOwner(svc, fieldPath)
	if err != nil {
		return domain.VerificationEvent{}, &ValidationError{Fields: map[string]string{"field_path": err.Error()}}
	}

	event := domain.VerificationEvent{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		FieldPath:  fieldPath,
		Method:     method,
		Note:       req.Note,
		VerifiedBy: identity.UserID,
		VerifiedAt: time.Now(),
	}
	return s.verifications.Append(ctx, event)
}

// resolveOwner maps a composite path to the canonical entity owning it.
func (s *Service) resolveOwner(svc domain.Service, fieldPath string) (domain.EntityType, uuid.UUID, error) {
	entityType, err := domain.EntityTypeForPath(fieldPath)
	if err != nil {
		return "", uuid.Nil, err
	}
	switch entityType {
	case domain.EntityService:
		return entityType, svc.ID, nil
	case domain.EntityOrganization:
		return entityType, svc.OrganizationID, nil
	case domain.EntityLocation:
		if svc.LocationID == nil {
			return "", uuid.Nil, fmt.Errorf("service has no location")
		}
		return entityType, *svc.LocationID, nil
	default:
		return "", uuid.Nil, fmt.Errorf("unsupported entity type %q", entityType)
	}
}

// SiblingRef is a lightweight service reference for sibling lists.
type SiblingRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Siblings groups the services sharing a resource's organization or
// location. PrevID and NextID step through the co-located services in
// name order.
type Siblings struct {
	Organization []SiblingRef `json:"organization"`
	Location     []SiblingRef `json:"location"`
	PrevID       string       `json:"prev_id,omitempty"`
	NextID       string       `json:"next_id,omitempty"`
}

// Siblings lists the services related to a resource by shared
// organization and shared location, excluding the resource itself.
func (s *Service) Siblings(ctx context.Context, serviceID uuid.UUID) (Siblings, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return Siblings{}, err
	}

	orgServices, err := s.services.ListByOrganization(ctx, svc.OrganizationID)
	if err != nil {
		return Siblings{}, err
	}
	siblings := Siblings{Organization: []SiblingRef{}, Location: []SiblingRef{}}
	for _, other := range orgServices {
		if other.ID == svc.ID {
			continue
		}
		siblings.Organization = append(siblings.Organization, SiblingRef{ID: other.ID.String(), Name: other.Name})
	}

	if svc.LocationID == nil {
		return siblings, nil
	}
	locServices, err := s.services.ListByLocation(ctx, *svc.LocationID)
	if err != nil {
		return Siblings{}, err
	}
	for i, other := range locServices {
		if other.ID == svc.ID {
			if i > 0 {
				siblings.PrevID = locServices[i-1].ID.String()
			}
			if i+1 < len(locServices) {
				siblings.NextID = locServices[i+1].ID.String()
			}
			continue
		}
		siblings.Location = append(siblings.Location, SiblingRef{ID: other.ID.String(), Name: other.Name})
	}
	return siblings, nil
}

// SetSensitive creates or replaces the redaction overlay for a resource.
func (s *Service) SetSensitive(ctx context.Context, serviceID uuid.UUID, sensitive bool, rules map[string]string) (domain.SensitiveOverlay, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return domain.SensitiveOverlay{}, fmt.Errorf("no authenticated actor")
	}
	if _, err := s.services.GetByID(ctx, serviceID); err != nil {
		return domain.SensitiveOverlay{}, err
	}
	if rules == nil {
		rules = map[string]string{}
	}
	overlay := domain.SensitiveOverlay{
		ID:              uuid.New(),
		EntityType:      domain.EntityService,
		EntityID:        serviceID,
		Sensitive:       sensitive,
		VisibilityRules: rules,
		UpdatedBy:       identity.UserID,
		UpdatedAt:       time.Now(),
	}
	return s.sensitive.Upsert(ctx, overlay)
}

// Versions lists the full ledger rows behind a resource's etags.
func (s *Service) Versions(ctx context.Context, serviceID uuid.UUID) ([]domain.FieldVersion, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	rows, err := s.versions.ListForEntity(ctx, domain.EntityService, svc.ID)
	if err != nil {
		return nil, err
	}
	orgRows, err := s.versions.ListForEntity(ctx, domain.EntityOrganization, svc.OrganizationID)
	if err != nil {
		return nil, err
	}
	rows = append(rows, orgRows...)
	if svc.LocationID != nil {
		locRows, err := s.versions.ListForEntity(ctx, domain.EntityLocation, *svc.LocationID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, locRows...)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].FieldPath < rows[j].FieldPath })
	return rows, nil
}

// Merge copies selected service fields from the right resource into the
// left through the normal write path, then deletes the right service.
// Runs in one transaction.
func (s *Service) Merge(ctx context.Context, leftID, rightID uuid.UUID, fields []string) (Composite, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return Composite{}, fmt.Errorf("no authenticated actor")
	}

	left, err := s.services.GetByID(ctx, leftID)
	if err != nil {
		return Composite{}, err
	}
	right, err := s.services.GetByID(ctx, rightID)
	if err != nil {
		return Composite{}, err
	}

	problems := make(map[string]string)
	var writes []fieldWrite
	for _, path := range fields {
		field, ok := strings.CutPrefix(path, "service.")
		if !ok || !s.policy.Known(path) {
			problems[path] = "not an editable field"
			continue
		}
		if !s.policy.Allows(identity.Role, path) {
			problems[field] = PolicyReviewRequired
			continue
		}
		value, err := right.Field(field)
		if err != nil {
			problems[field] = err.Error()
			continue
		}
		current, err := left.Field(field)
		if err != nil {
			problems[field] = err.Error()
			continue
		}
		if current == value {
			continue
		}
		writes = append(writes, fieldWrite{path: path, field: field, value: value})
	}
	if len(problems) > 0 {
		return Composite{}, &ValidationError{Fields: problems}
	}

	updated := left
	for _, change := range writes {
		updated, err = updated.WithField(change.field, change.value)
		if err != nil {
			return Composite{}, &ValidationError{Fields: map[string]string{change.field: err.Error()}}
		}
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if len(writes) > 0 {
			if _, err := s.services.Update(ctx, updated); err != nil {
				return err
			}
			for _, change := range writes {
				if _, err := s.versions.Bump(ctx, domain.EntityService, left.ID, change.path, identity.UserID); err != nil {
					return err
				}
			}
		}
		return s.services.Delete(ctx, right.ID)
	})
	if err != nil {
		return Composite{}, err
	}

	return s.compose(ctx, updated)
}
