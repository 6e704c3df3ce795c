package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/emeraldcitybeacon/conduit/internal/auth"
	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/repository/memory"

	"github.com/google/uuid"
)

type draftFixture struct {
	service  *DraftService
	drafts   *memory.DraftStore
	orgs     *memory.OrganizationStore
	services *memory.ServiceStore
	versions *memory.FieldVersionStore
	events   *memory.VerificationStore
}

func newDraftFixture(t *testing.T) *draftFixture {
	t.Helper()
	drafts := memory.NewDraftStore()
	orgs := memory.NewOrganizationStore()
	locations := memory.NewLocationStore()
	services := memory.NewServiceStore()
	versions := memory.NewFieldVersionStore()
	events := memory.NewVerificationStore()
	return &draftFixture{
		service: NewDraftService(
			drafts, orgs, locations, services,
			versions, events, memory.Tx{},
		),
		drafts:   drafts,
		orgs:     orgs,
		services: services,
		versions: versions,
		events:   events,
	}
}

func asRole(role domain.Role) context.Context {
	return auth.ContextWithIdentity(context.Background(), auth.Identity{
		UserID: uuid.New(),
		Name:   "tester",
		Role:   role,
	})
}

func draftPayload() map[string]any {
	return map[string]any{
		"organization": map[string]any{"name": "Helping Hands"},
		"service": map[string]any{
			"name":  "Svc",
			"phone": "555-0100",
		},
	}
}

func TestDraftApproveMaterializesCanonicalRows(t *testing.T) {
	f := newDraftFixture(t)

	draft, err := f.service.Create(asRole(domain.RoleVolunteer), draftPayload())
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	result, err := f.service.Approve(asRole(domain.RoleEditor), draft.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if result.Draft.Status != domain.DraftApproved {
		t.Fatalf("draft must be approved, got %s", result.Draft.Status)
	}
	if result.Draft.ReviewedBy == nil || result.Draft.ReviewedAt == nil {
		t.Fatal("approval must stamp the reviewer")
	}

	if f.services.Len() != 1 {
		t.Fatalf("expected exactly one service, got %d", f.services.Len())
	}
	svc, err := f.services.GetByID(context.Background(), result.ServiceID)
	if err != nil {
		t.Fatalf("load service: %v", err)
	}
	if svc.Name != "Svc" || svc.Phone != "555-0100" {
		t.Fatalf("payload fields not materialized: %+v", svc)
	}
	if svc.OrganizationID != result.OrganizationID {
		t.Fatal("service must link to the created organization")
	}
	if result.LocationID != nil {
		t.Fatal("no location payload means no location row")
	}

	versions, err := f.versions.Versions(context.Background(), domain.EntityService, svc.ID)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if versions["service.name"] != 1 || versions["service.phone"] != 1 {
		t.Fatalf("every leaf must seed version 1, got %v", versions)
	}

	var named int
	for _, event := range f.events.All() {
		if event.FieldPath == "service.name" && event.EntityID == svc.ID {
			named++
			if event.Method != domain.MethodOther || event.Note != "draft approved" {
				t.Fatalf("seed event wrong: %+v", event)
			}
		}
	}
	if named != 1 {
		t.Fatalf("expected one verification event for service.name, got %d", named)
	}
}

func TestDraftApproveWithLocation(t *testing.T) {
	f := newDraftFixture(t)

	payload := draftPayload()
	payload["location"] = map[string]any{
		"name":      "Main Site",
		"address":   "100 Pine St",
		"latitude":  47.6,
		"longitude": -122.3,
	}
	draft, err := f.service.Create(asRole(domain.RoleVolunteer), payload)
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	result, err := f.service.Approve(asRole(domain.RoleEditor), draft.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if result.LocationID == nil {
		t.Fatal("location payload must create a location row")
	}
	versions, err := f.versions.Versions(context.Background(), domain.EntityLocation, *result.LocationID)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if versions["location.address"] != 1 {
		t.Fatalf("location leaves must be seeded, got %v", versions)
	}
}

func TestDraftApproveRequiresReviewer(t *testing.T) {
	f := newDraftFixture(t)

	draft, err := f.service.Create(asRole(domain.RoleVolunteer), draftPayload())
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	if _, err := f.service.Approve(asRole(domain.RoleVolunteer), draft.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("volunteer approval must be forbidden, got %v", err)
	}
	if f.services.Len() != 0 || f.orgs.Len() != 0 {
		t.Fatal("forbidden approval must not write canonical rows")
	}
}

func TestDraftRejectWritesNothing(t *testing.T) {
	f := newDraftFixture(t)

	draft, err := f.service.Create(asRole(domain.RoleVolunteer), draftPayload())
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	rejected, err := f.service.Reject(asRole(domain.RoleEditor), draft.ID, "needs a phone number")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.DraftRejected || rejected.ReviewNote != "needs a phone number" {
		t.Fatalf("rejection not recorded: %+v", rejected)
	}
	if f.services.Len() != 0 || f.orgs.Len() != 0 {
		t.Fatal("rejection must not write canonical rows")
	}
	if len(f.events.All()) != 0 {
		t.Fatal("rejection must not write verification events")
	}
}

func TestDraftTerminalStatesAreImmutable(t *testing.T) {
	f := newDraftFixture(t)

	draft, err := f.service.Create(asRole(domain.RoleVolunteer), draftPayload())
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := f.service.Reject(asRole(domain.RoleEditor), draft.ID, "no"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if _, err := f.service.Approve(asRole(domain.RoleEditor), draft.ID); !errors.Is(err, ErrTerminal) {
		t.Fatalf("approving a rejected draft must fail, got %v", err)
	}
	if _, err := f.service.Reject(asRole(domain.RoleEditor), draft.ID, "again"); !errors.Is(err, ErrTerminal) {
		t.Fatalf("re-rejecting must fail, got %v", err)
	}
}

func TestDraftListReturnsOnlyCallersDrafts(t *testing.T) {
	f := newDraftFixture(t)

	mine := asRole(domain.RoleVolunteer)
	theirs := asRole(domain.RoleVolunteer)
	if _, err := f.service.Create(mine, draftPayload()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.service.Create(theirs, draftPayload()); err != nil {
		t.Fatalf("create: %v", err)
	}

	drafts, err := f.service.List(mine)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected one draft for the caller, got %d", len(drafts))
	}
}
