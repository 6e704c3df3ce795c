package resource

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/emeraldcitybeacon/conduit/internal/auth"
	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/repository/memory"

	"github.com/google/uuid"
)

type fixture struct {
	service   *Service
	services  *memory.ServiceStore
	versions  *memory.FieldVersionStore
	events    *memory.VerificationStore
	sensitive *memory.SensitiveStore
	svc       domain.Service
	org       domain.Organization
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	services := memory.NewServiceStore()
	orgs := memory.NewOrganizationStore()
	locations := memory.NewLocationStore()
	versions := memory.NewFieldVersionStore()
	events := memory.NewVerificationStore()
	sensitive := memory.NewSensitiveStore()

	org := domain.NewOrganization("Helping Hands", "Mutual aid hub", "info@hh.org", "http://hh.org")
	if _, err := orgs.Create(context.Background(), org); err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	svc := domain.NewService(org.ID, nil, "Food Pantry")
	svc.URL = "http://old.example.org"
	if _, err := services.Create(context.Background(), svc); err != nil {
		t.Fatalf("seed service: %v", err)
	}

	return &fixture{
		service: NewService(
			services, orgs, locations,
			versions, events, sensitive,
			DefaultFieldPolicy(), memory.Tx{},
		),
		services:  services,
		versions:  versions,
		events:    events,
		sensitive: sensitive,
		svc:       svc,
		org:       org,
	}
}

func ctxAs(role domain.Role) context.Context {
	return auth.ContextWithIdentity(context.Background(), auth.Identity{
		UserID: uuid.New(),
		Name:   "tester",
		Role:   role,
	})
}

func TestVolunteerAutoPublishBumpsVersion(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs(domain.RoleVolunteer)

	before, err := f.service.Get(ctx, f.svc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	composite, err := f.service.Update(ctx, f.svc.ID, UpdateRequest{
		Fields:  map[string]any{"service.url": "http://new.example.org"},
		IfMatch: before.ETag,
	})
	if err != nil {
		t.Fatalf("volunteer url update must succeed: %v", err)
	}
	if composite.Versions["service.url"] != 1 {
		t.Fatalf("expected service.url at version 1, got %d", composite.Versions["service.url"])
	}
	if composite.ETag == before.ETag {
		t.Fatal("etag must change after a write")
	}

	stored, err := f.services.GetByID(ctx, f.svc.ID)
	if err != nil {
		t.Fatalf("reload service: %v", err)
	}
	if stored.URL != "http://new.example.org" {
		t.Fatalf("url not persisted: %q", stored.URL)
	}
}

func TestVolunteerReviewRequiredField(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs(domain.RoleVolunteer)

	before, err := f.service.Get(ctx, f.svc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	_, err = f.service.Update(ctx, f.svc.ID, UpdateRequest{
		Fields:  map[string]any{"service.name": "Renamed"},
		IfMatch: before.ETag,
	})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if validation.Fields["name"] != PolicyReviewRequired {
		t.Fatalf("expected review-required on name, got %v", validation.Fields)
	}

	stored, err := f.services.GetByID(ctx, f.svc.ID)
	if err != nil {
		t.Fatalf("reload service: %v", err)
	}
	if stored.Name != "Food Pantry" {
		t.Fatalf("name must be unchanged, got %q", stored.Name)
	}
	versions, _ := f.versions.Versions(ctx, domain.EntityService, f.svc.ID)
	if len(versions) != 0 {
		t.Fatalf("no versions may be written on rejection, got %v", versions)
	}
}

func TestEditorCanWriteReviewRequiredField(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs(domain.RoleEditor)

	before, err := f.service.Get(ctx, f.svc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	composite, err := f.service.Update(ctx, f.svc.ID, UpdateRequest{
		Fields:  map[string]any{"service.name": "Renamed"},
		IfMatch: before.ETag,
	})
	if err != nil {
		t.Fatalf("editor name update must succeed: %v", err)
	}
	if composite.Versions["service.name"] != 1 {
		t.Fatalf("expected service.name at version 1, got %v", composite.Versions)
	}
}

func TestUpdateRequiresIfMatch(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs(domain.RoleEditor)

	_, err := f.service.Update(ctx, f.svc.ID, UpdateRequest{
		Fields: map[string]any{"service.url": "http://x"},
	})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if validation.Fields["If-Match"] != "required" {
		t.Fatalf("expected If-Match required, got %v", validation.Fields)
	}
}

func TestStaleETagThenRetry(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs(domain.RoleEditor)

	first, err := f.service.Get(ctx, f.svc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// Another actor bumps a field out of band.
	if _, err := f.versions.Bump(ctx, domain.EntityService, f.svc.ID, "service.phone", uuid.New()); err != nil {
		t.Fatalf("out-of-band bump: %v", err)
	}

	_, err = f.service.Update(ctx, f.svc.ID, UpdateRequest{
		Fields:  map[string]any{"service.url": "http://new.example.org"},
		IfMatch: first.ETag,
	})
	var stale *PreconditionError
	if !errors.As(err, &stale) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if stale.ETags["service.phone"] != "v1" {
		t.Fatalf("precondition response must carry fresh etags, got %v", stale.ETags)
	}
	if stale.Current["service.url"] != "http://old.example.org" {
		t.Fatalf("precondition response must carry touched values, got %v", stale.Current)
	}

	// Retry with the fresh etag and a pinned field version.
	fresh, err := f.service.Get(ctx, f.svc.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	composite, err := f.service.Update(ctx, f.svc.ID, UpdateRequest{
		Fields:         map[string]any{"service.url": "http://new.example.org"},
		IfMatch:        fresh.ETag,
		AssertVersions: map[string]int{"service.url": 0},
	})
	if err != nil {
		t.Fatalf("retry must succeed: %v", err)
	}
	if composite.ETag == first.ETag || composite.ETag == fresh.ETag {
		t.Fatal("retry must produce a new etag")
	}
}

func TestAssertVersionsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs(domain.RoleEditor)

	if _, err := f.versions.Bump(ctx, domain.EntityService, f.svc.ID, "service.url", uuid.New()); err != nil {
		t.Fatalf("seed bump: %v", err)
	}
	current, err := f.service.Get(ctx, f.svc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	_, err = f.service.Update(ctx, f.svc.ID, UpdateRequest{
		Fields:         map[string]any{"service.url": "http://new.example.org"},
		IfMatch:        current.ETag,
		AssertVersions: map[string]int{"service.url": 0},
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if len(conflict.Paths) != 1 || conflict.Paths[0] != "service.url" {
		t.Fatalf("expected service.url conflict, got %v", conflict.Paths)
	}
	if conflict.ETags["service.url"] != "v1" {
		t.Fatalf("conflict must carry current etags, got %v", conflict.ETags)
	}
}

func TestUnchangedValueDoesNotBump(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs(domain.RoleEditor)

	before, err := f.service.Get(ctx, f.svc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	composite, err := f.service.Update(ctx, f.svc.ID, UpdateRequest{
		Fields:  map[string]any{"service.url": "http://old.example.org"},
		IfMatch: before.ETag,
	})
	if err != nil {
		t.Fatalf("no-op update must succeed: %v", err)
	}
	if len(composite.Versions) != 0 {
		t.Fatalf("no-op write must not bump, got %v", composite.Versions)
	}
	if composite.ETag != before.ETag {
		t.Fatal("no-op write must not change the etag")
	}
}

func TestSensitiveOverlayRedaction(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs(domain.RoleEditor)

	if _, err := f.service.SetSensitive(ctx, f.svc.ID, true, map[string]string{
		"service.url": domain.VisibilityRedact,
	}); err != nil {
		t.Fatalf("set sensitive: %v", err)
	}

	composite, err := f.service.Get(ctx, f.svc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	svcDoc := composite.Document["service"].(map[string]any)
	if _, ok := svcDoc["url"]; ok {
		t.Fatal("redacted path must be absent from the document")
	}
	if composite.Document["sensitive"] != true {
		t.Fatal("sensitive flag must be set")
	}

	// Turning the flag off restores the field.
	if _, err := f.service.SetSensitive(ctx, f.svc.ID, false, map[string]string{
		"service.url": domain.VisibilityRedact,
	}); err != nil {
		t.Fatalf("clear sensitive: %v", err)
	}
	composite, err = f.service.Get(ctx, f.svc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	svcDoc = composite.Document["service"].(map[string]any)
	if svcDoc["url"] != "http://old.example.org" {
		t.Fatalf("field must reappear when not sensitive, got %v", svcDoc["url"])
	}
	if composite.Document["sensitive"] != false {
		t.Fatal("sensitive flag must be cleared")
	}
}

func TestVerifyChecklistItem(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs(domain.RoleVolunteer)

	event, err := f.service.Verify(ctx, f.svc.ID, VerifyRequest{Item: "phone_answered", Note: "spoke to staff"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if event.FieldPath != "service.phone" || event.Method != domain.MethodCalled {
		t.Fatalf("checklist item resolved wrong: %s via %s", event.FieldPath, event.Method)
	}
	if event.EntityID != f.svc.ID {
		t.Fatalf("event must target the service, got %s", event.EntityID)
	}

	if _, err := f.service.Verify(ctx, f.svc.ID, VerifyRequest{Item: "made_up"}); err == nil {
		t.Fatal("unknown checklist item must be rejected")
	}

	event, err = f.service.Verify(ctx, f.svc.ID, VerifyRequest{FieldPath: "organization.email", Method: "website"})
	if err != nil {
		t.Fatalf("explicit verify: %v", err)
	}
	if event.EntityType != domain.EntityOrganization || event.EntityID != f.org.ID {
		t.Fatalf("organization path must resolve to the organization, got %s %s", event.EntityType, event.EntityID)
	}
}

func TestSiblingsGroupedByOrganizationAndLocation(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs(domain.RoleVolunteer)

	locID := uuid.New()
	at := func(name string, loc *uuid.UUID) domain.Service {
		svc := domain.NewService(f.org.ID, loc, name)
		if _, err := f.services.Create(ctx, svc); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
		return svc
	}
	alpha := at("Alpha Desk", &locID)
	bravo := at("Bravo Desk", &locID)
	charlie := at("Charlie Desk", &locID)
	orphan := at("Zulu Desk", nil)

	siblings, err := f.service.Siblings(ctx, bravo.ID)
	if err != nil {
		t.Fatalf("siblings: %v", err)
	}

	// Everything under the organization except the resource itself,
	// ordered by name. The fixture service "Food Pantry" is included.
	wantOrg := []string{"Alpha Desk", "Charlie Desk", "Food Pantry", "Zulu Desk"}
	var gotOrg []string
	for _, ref := range siblings.Organization {
		gotOrg = append(gotOrg, ref.Name)
	}
	if !reflect.DeepEqual(gotOrg, wantOrg) {
		t.Fatalf("organization siblings mismatch:\n got %v\nwant %v", gotOrg, wantOrg)
	}

	var gotLoc []string
	for _, ref := range siblings.Location {
		gotLoc = append(gotLoc, ref.Name)
	}
	if !reflect.DeepEqual(gotLoc, []string{"Alpha Desk", "Charlie Desk"}) {
		t.Fatalf("location siblings mismatch: %v", gotLoc)
	}
	if siblings.PrevID != alpha.ID.String() || siblings.NextID != charlie.ID.String() {
		t.Fatalf("prev/next mismatch: prev=%s next=%s", siblings.PrevID, siblings.NextID)
	}

	// Edges of the co-located list leave the cursor ids empty.
	first, err := f.service.Siblings(ctx, alpha.ID)
	if err != nil {
		t.Fatalf("siblings: %v", err)
	}
	if first.PrevID != "" || first.NextID != bravo.ID.String() {
		t.Fatalf("first item must have no prev, got prev=%s next=%s", first.PrevID, first.NextID)
	}

	// A service without a location has no location siblings or cursor.
	alone, err := f.service.Siblings(ctx, orphan.ID)
	if err != nil {
		t.Fatalf("siblings: %v", err)
	}
	if len(alone.Location) != 0 || alone.PrevID != "" || alone.NextID != "" {
		t.Fatalf("unlocated service must have empty location data: %+v", alone)
	}
}

func TestMergeCopiesFieldsAndDeletesRight(t *testing.T) {
	f := newFixture(t)
	ctx := ctxAs(domain.RoleEditor)

	right := domain.NewService(f.org.ID, nil, "Duplicate Pantry")
	right.Phone = "555-0100"
	if _, err := f.services.Create(ctx, right); err != nil {
		t.Fatalf("seed right: %v", err)
	}

	composite, err := f.service.Merge(ctx, f.svc.ID, right.ID, []string{"service.phone"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	svcDoc := composite.Document["service"].(map[string]any)
	if svcDoc["phone"] != "555-0100" {
		t.Fatalf("phone must be copied from the right resource, got %v", svcDoc["phone"])
	}
	if composite.Versions["service.phone"] != 1 {
		t.Fatalf("merged field must be bumped, got %v", composite.Versions)
	}
	if _, err := f.services.GetByID(ctx, right.ID); err == nil {
		t.Fatal("right service must be deleted after merge")
	}
}
