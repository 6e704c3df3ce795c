// Package memory provides in-memory implementations of the repository
// interfaces, used by service tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/repository"

	"github.com/google/uuid"
)

// Tx satisfies db.TxRunner without transactional semantics; the stores
// below are already atomic per call.
type Tx struct{}

// RunInTx runs fn directly.
func (Tx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// OrganizationStore is an in-memory repository.OrganizationRepository.
type OrganizationStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.Organization
}

// NewOrganizationStore creates an empty store.
func NewOrganizationStore() *OrganizationStore {
	return &OrganizationStore{items: make(map[uuid.UUID]domain.Organization)}
}

func (s *OrganizationStore) Create(_ context.Context, org domain.Organization) (domain.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[org.ID] = org
	return org, nil
}

func (s *OrganizationStore) GetByID(_ context.Context, id uuid.UUID) (domain.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.items[id]
	if !ok {
		return domain.Organization{}, repository.ErrNotFound
	}
	return org, nil
}

func (s *OrganizationStore) Update(_ context.Context, org domain.Organization) (domain.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[org.ID]; !ok {
		return domain.Organization{}, repository.ErrNotFound
	}
	s.items[org.ID] = org
	return org, nil
}

func (s *OrganizationStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *OrganizationStore) SearchByName(_ context.Context, query string, limit int) ([]domain.Organization, error) {
	if limit <= 0 {
		limit = 5
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(query)
	var results []domain.Organization
	for _, org := range s.items {
		if strings.Contains(strings.ToLower(org.Name), needle) {
			results = append(results, org)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Len reports the number of stored organizations.
func (s *OrganizationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// ServiceStore is an in-memory repository.ServiceRepository.
type ServiceStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.Service
}

// NewServiceStore creates an empty store.
func NewServiceStore() *ServiceStore {
	return &ServiceStore{items: make(map[uuid.UUID]domain.Service)}
}

func (s *ServiceStore) Create(_ context.Context, svc domain.Service) (domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[svc.ID] = svc
	return svc, nil
}

func (s *ServiceStore) GetByID(_ context.Context, id uuid.UUID) (domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.items[id]
	if !ok {
		return domain.Service{}, repository.ErrNotFound
	}
	return svc, nil
}

func (s *ServiceStore) Update(_ context.Context, svc domain.Service) (domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[svc.ID]; !ok {
		return domain.Service{}, repository.ErrNotFound
	}
	s.items[svc.ID] = svc
	return svc, nil
}

func (s *ServiceStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *ServiceStore) Search(_ context.Context, query string, limit int) ([]domain.Service, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(query)
	var results []domain.Service
	for _, svc := range s.items {
		haystack := strings.ToLower(svc.Name + " " + svc.URL + " " + svc.Email)
		if strings.Contains(haystack, needle) {
			results = append(results, svc)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *ServiceStore) ListByOrganization(_ context.Context, organizationID uuid.UUID) ([]domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []domain.Service
	for _, svc := range s.items {
		if svc.OrganizationID == organizationID {
			results = append(results, svc)
		}
	}
	sortByName(results)
	return results, nil
}

func (s *ServiceStore) ListByLocation(_ context.Context, locationID uuid.UUID) ([]domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []domain.Service
	for _, svc := range s.items {
		if svc.LocationID != nil && *svc.LocationID == locationID {
			results = append(results, svc)
		}
	}
	sortByName(results)
	return results, nil
}

func sortByName(services []domain.Service) {
	sort.Slice(services, func(i, j int) bool {
		if services[i].Name != services[j].Name {
			return services[i].Name < services[j].Name
		}
		return services[i].ID.String() < services[j].ID.String()
	})
}

// Len reports the number of stored services.
func (s *ServiceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// LocationStore is an in-memory repository.LocationRepository.
type LocationStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.Location
}

// NewLocationStore creates an empty store.
func NewLocationStore() *LocationStore {
	return &LocationStore{items: make(map[uuid.UUID]domain.Location)}
}

func (s *LocationStore) Create(_ context.Context, loc domain.Location) (domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[loc.ID] = loc
	return loc, nil
}

func (s *LocationStore) GetByID(_ context.Context, id uuid.UUID) (domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.items[id]
	if !ok {
		return domain.Location{}, repository.ErrNotFound
	}
	return loc, nil
}

func (s *LocationStore) Update(_ context.Context, loc domain.Location) (domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[loc.ID]; !ok {
		return domain.Location{}, repository.ErrNotFound
	}
	s.items[loc.ID] = loc
	return loc, nil
}

func (s *LocationStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *LocationStore) SearchByName(_ context.Context, query string, limit int) ([]domain.Location, error) {
	if limit <= 0 {
		limit = 5
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(query)
	var results []domain.Location
	for _, loc := range s.items {
		haystack := strings.ToLower(loc.Name + " " + loc.Address + " " + loc.City)
		if strings.Contains(haystack, needle) {
			results = append(results, loc)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// FieldVersionStore is an in-memory repository.FieldVersionRepository.
type FieldVersionStore struct {
	mu   sync.Mutex
	rows map[string]domain.FieldVersion
}

// NewFieldVersionStore creates an empty ledger.
func NewFieldVersionStore() *FieldVersionStore {
	return &FieldVersionStore{rows: make(map[string]domain.FieldVersion)}
}

func versionKey(entityType domain.EntityType, entityID uuid.UUID, path string) string {
	return fmt.Sprintf("%s|%s|%s", entityType, entityID, path)
}

func (s *FieldVersionStore) Versions(_ context.Context, entityType domain.EntityType, entityID uuid.UUID) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := make(map[string]int)
	for _, row := range s.rows {
		if row.EntityType == entityType && row.EntityID == entityID {
			versions[row.FieldPath] = row.Version
		}
	}
	return versions, nil
}

func (s *FieldVersionStore) Bump(_ context.Context, entityType domain.EntityType, entityID uuid.UUID, fieldPath string, actor uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := versionKey(entityType, entityID, fieldPath)
	row, ok := s.rows[key]
	if !ok {
		row = domain.FieldVersion{
			ID:         uuid.New(),
			EntityType: entityType,
			EntityID:   entityID,
			FieldPath:  fieldPath,
		}
	}
	row.Version++
	row.UpdatedBy = actor
	row.UpdatedAt = time.Now()
	s.rows[key] = row
	return row.Version, nil
}

func (s *FieldVersionStore) ListForEntity(_ context.Context, entityType domain.EntityType, entityID uuid.UUID) ([]domain.FieldVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []domain.FieldVersion
	for _, row := range s.rows {
		if row.EntityType == entityType && row.EntityID == entityID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].FieldPath < rows[j].FieldPath })
	return rows, nil
}

// VerificationStore is an in-memory repository.VerificationRepository.
type VerificationStore struct {
	mu     sync.Mutex
	events []domain.VerificationEvent
}

// NewVerificationStore creates an empty log.
func NewVerificationStore() *VerificationStore {
	return &VerificationStore{}
}

func (s *VerificationStore) Append(_ context.Context, event domain.VerificationEvent) (domain.VerificationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return event, nil
}

func (s *VerificationStore) ListForEntity(_ context.Context, entityType domain.EntityType, entityID uuid.UUID) ([]domain.VerificationEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []domain.VerificationEvent
	for _, event := range s.events {
		if event.EntityType == entityType && event.EntityID == entityID {
			events = append(events, event)
		}
	}
	return events, nil
}

// All returns every recorded event.
func (s *VerificationStore) All() []domain.VerificationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.VerificationEvent{}, s.events...)
}

// SensitiveStore is an in-memory repository.SensitiveRepository.
type SensitiveStore struct {
	mu       sync.Mutex
	overlays map[string]domain.SensitiveOverlay
}

// NewSensitiveStore creates an empty overlay store.
func NewSensitiveStore() *SensitiveStore {
	return &SensitiveStore{overlays: make(map[string]domain.SensitiveOverlay)}
}

func overlayKey(entityType domain.EntityType, entityID uuid.UUID) string {
	return fmt.Sprintf("%s|%s", entityType, entityID)
}

func (s *SensitiveStore) Get(_ context.Context, entityType domain.EntityType, entityID uuid.UUID) (domain.SensitiveOverlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	overlay, ok := s.overlays[overlayKey(entityType, entityID)]
	if !ok {
		return domain.SensitiveOverlay{}, repository.ErrNotFound
	}
	return overlay, nil
}

func (s *SensitiveStore) Upsert(_ context.Context, overlay domain.SensitiveOverlay) (domain.SensitiveOverlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlays[overlayKey(overlay.EntityType, overlay.EntityID)] = overlay
	return overlay, nil
}

// DraftStore is an in-memory repository.DraftRepository.
type DraftStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.DraftResource
}

// NewDraftStore creates an empty store.
func NewDraftStore() *DraftStore {
	return &DraftStore{items: make(map[uuid.UUID]domain.DraftResource)}
}

func (s *DraftStore) Create(_ context.Context, draft domain.DraftResource) (domain.DraftResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[draft.ID] = draft
	return draft, nil
}

func (s *DraftStore) GetByID(_ context.Context, id uuid.UUID) (domain.DraftResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.items[id]
	if !ok {
		return domain.DraftResource{}, repository.ErrNotFound
	}
	return draft, nil
}

func (s *DraftStore) ListByCreator(_ context.Context, createdBy uuid.UUID) ([]domain.DraftResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var drafts []domain.DraftResource
	for _, draft := range s.items {
		if draft.CreatedBy == createdBy {
			drafts = append(drafts, draft)
		}
	}
	return drafts, nil
}

func (s *DraftStore) Update(_ context.Context, draft domain.DraftResource) (domain.DraftResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[draft.ID]; !ok {
		return domain.DraftResource{}, repository.ErrNotFound
	}
	s.items[draft.ID] = draft
	return draft, nil
}

// ChangeRequestStore is an in-memory repository.ChangeRequestRepository.
type ChangeRequestStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.ChangeRequest
}

// NewChangeRequestStore creates an empty store.
func NewChangeRequestStore() *ChangeRequestStore {
	return &ChangeRequestStore{items: make(map[uuid.UUID]domain.ChangeRequest)}
}

func (s *ChangeRequestStore) Create(_ context.Context, cr domain.ChangeRequest) (domain.ChangeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[cr.ID] = cr
	return cr, nil
}

func (s *ChangeRequestStore) GetByID(_ context.Context, id uuid.UUID) (domain.ChangeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cr, ok := s.items[id]
	if !ok {
		return domain.ChangeRequest{}, repository.ErrNotFound
	}
	return cr, nil
}

func (s *ChangeRequestStore) ListPending(_ context.Context) ([]domain.ChangeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var requests []domain.ChangeRequest
	for _, cr := range s.items {
		if cr.Status == domain.ChangePending {
			requests = append(requests, cr)
		}
	}
	return requests, nil
}

func (s *ChangeRequestStore) ListBySubmitter(_ context.Context, submittedBy uuid.UUID) ([]domain.ChangeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var requests []domain.ChangeRequest
	for _, cr := range s.items {
		if cr.SubmittedBy == submittedBy {
			requests = append(requests, cr)
		}
	}
	return requests, nil
}

func (s *ChangeRequestStore) Update(_ context.Context, cr domain.ChangeRequest) (domain.ChangeRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[cr.ID]; !ok {
		return domain.ChangeRequest{}, repository.ErrNotFound
	}
	s.items[cr.ID] = cr
	return cr, nil
}

// BulkOperationStore is an in-memory repository.BulkOperationRepository.
type BulkOperationStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.BulkOperation
}

// NewBulkOperationStore creates an empty store.
func NewBulkOperationStore() *BulkOperationStore {
	return &BulkOperationStore{items: make(map[uuid.UUID]domain.BulkOperation)}
}

func (s *BulkOperationStore) Create(_ context.Context, op domain.BulkOperation) (domain.BulkOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[op.ID] = op
	return op, nil
}

func (s *BulkOperationStore) GetByID(_ context.Context, id uuid.UUID) (domain.BulkOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.items[id]
	if !ok {
		return domain.BulkOperation{}, repository.ErrNotFound
	}
	return op, nil
}

func (s *BulkOperationStore) Update(_ context.Context, op domain.BulkOperation) (domain.BulkOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[op.ID]; !ok {
		return domain.BulkOperation{}, repository.ErrNotFound
	}
	s.items[op.ID] = op
	return op, nil
}

// ShelfStore is an in-memory repository.ShelfRepository.
type ShelfStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.Shelf
}

// NewShelfStore creates an empty store.
func NewShelfStore() *ShelfStore {
	return &ShelfStore{items: make(map[uuid.UUID]domain.Shelf)}
}

func (s *ShelfStore) Create(_ context.Context, shelf domain.Shelf) (domain.Shelf, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[shelf.ID] = shelf
	return shelf, nil
}

func (s *ShelfStore) GetByID(_ context.Context, id uuid.UUID) (domain.Shelf, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shelf, ok := s.items[id]
	if !ok {
		return domain.Shelf{}, repository.ErrNotFound
	}
	return shelf, nil
}

func (s *ShelfStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Shelf, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var shelves []domain.Shelf
	for _, shelf := range s.items {
		if shelf.OwnerID == ownerID {
			shelves = append(shelves, shelf)
		}
	}
	return shelves, nil
}

func (s *ShelfStore) Update(_ context.Context, shelf domain.Shelf) (domain.Shelf, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[shelf.ID]; !ok {
		return domain.Shelf{}, repository.ErrNotFound
	}
	s.items[shelf.ID] = shelf
	return shelf, nil
}

func (s *ShelfStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// WorklistStore is an in-memory repository.WorklistRepository.
type WorklistStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.Worklist
}

// NewWorklistStore creates an empty store.
func NewWorklistStore() *WorklistStore {
	return &WorklistStore{items: make(map[uuid.UUID]domain.Worklist)}
}

func (s *WorklistStore) Create(_ context.Context, wl domain.Worklist) (domain.Worklist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[wl.ID] = wl
	return wl, nil
}

func (s *WorklistStore) GetByID(_ context.Context, id uuid.UUID) (domain.Worklist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wl, ok := s.items[id]
	if !ok {
		return domain.Worklist{}, repository.ErrNotFound
	}
	return wl, nil
}

func (s *WorklistStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Worklist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var worklists []domain.Worklist
	for _, wl := range s.items {
		if wl.OwnerID == ownerID {
			worklists = append(worklists, wl)
		}
	}
	return worklists, nil
}

func (s *WorklistStore) Update(_ context.Context, wl domain.Worklist) (domain.Worklist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[wl.ID]; !ok {
		return domain.Worklist{}, repository.ErrNotFound
	}
	s.items[wl.ID] = wl
	return wl, nil
}

func (s *WorklistStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}
