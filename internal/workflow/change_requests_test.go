package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/repository/memory"
)

type changeFixture struct {
	service  *ChangeRequestService
	requests *memory.ChangeRequestStore
	orgs     *memory.OrganizationStore
	services *memory.ServiceStore
	versions *memory.FieldVersionStore
	events   *memory.VerificationStore
	svc      domain.Service
}

func newChangeFixture(t *testing.T) *changeFixture {
	t.Helper()
	requests := memory.NewChangeRequestStore()
	orgs := memory.NewOrganizationStore()
	locations := memory.NewLocationStore()
	services := memory.NewServiceStore()
	versions := memory.NewFieldVersionStore()
	events := memory.NewVerificationStore()

	org := domain.NewOrganization("Helping Hands", "", "", "")
	if _, err := orgs.Create(context.Background(), org); err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	svc := domain.NewService(org.ID, nil, "Food Pantry")
	svc.Phone = "555-0100"
	if _, err := services.Create(context.Background(), svc); err != nil {
		t.Fatalf("seed service: %v", err)
	}

	return &changeFixture{
		service: NewChangeRequestService(
			requests, orgs, locations, services,
			versions, events, memory.Tx{},
		),
		requests: requests,
		orgs:     orgs,
		services: services,
		versions: versions,
		events:   events,
		svc:      svc,
	}
}

func TestChangeRequestSubmitValidatesPatchAndTarget(t *testing.T) {
	f := newChangeFixture(t)
	ctx := asRole(domain.RoleVolunteer)

	patch := json.RawMessage(`[{"op":"replace","path":"/phone","value":"555-0199"}]`)
	cr, err := f.service.Submit(ctx, domain.EntityService, f.svc.ID, patch, "new number on voicemail")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if cr.Status != domain.ChangePending {
		t.Fatalf("new request must be pending, got %s", cr.Status)
	}

	if _, err := f.service.Submit(ctx, domain.EntityService, f.svc.ID, json.RawMessage(`{"op":"x"}`), ""); err == nil {
		t.Fatal("malformed patch must be rejected")
	}
	missing := domain.NewService(f.svc.OrganizationID, nil, "ghost")
	if _, err := f.service.Submit(ctx, domain.EntityService, missing.ID, patch, ""); err == nil {
		t.Fatal("unknown target must be rejected")
	}
}

func TestChangeRequestApproveAppliesPatch(t *testing.T) {
	f := newChangeFixture(t)

	patch := json.RawMessage(`[
		{"op":"replace","path":"/phone","value":"555-0199"},
		{"op":"replace","path":"/name","value":"Food Pantry"}
	]`)
	cr, err := f.service.Submit(asRole(domain.RoleVolunteer), domain.EntityService, f.svc.ID, patch, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	approved, err := f.service.Approve(asRole(domain.RoleEditor), cr.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.ChangeApproved || approved.ReviewedBy == nil {
		t.Fatalf("approval not recorded: %+v", approved)
	}

	svc, err := f.services.GetByID(context.Background(), f.svc.ID)
	if err != nil {
		t.Fatalf("reload service: %v", err)
	}
	if svc.Phone != "555-0199" {
		t.Fatalf("patched phone not written, got %q", svc.Phone)
	}

	// Only the field that actually changed is bumped; the no-op name
	// replace writes nothing.
	versions, err := f.versions.Versions(context.Background(), domain.EntityService, f.svc.ID)
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if versions["service.phone"] != 1 {
		t.Fatalf("expected service.phone at version 1, got %v", versions)
	}
	if _, ok := versions["service.name"]; ok {
		t.Fatalf("unchanged field must not be bumped, got %v", versions)
	}

	events := f.events.All()
	if len(events) != 1 || events[0].FieldPath != "service.phone" || events[0].Note != "change request approved" {
		t.Fatalf("expected one approval event for service.phone, got %v", events)
	}
}

func TestChangeRequestApproveOrganizationTarget(t *testing.T) {
	f := newChangeFixture(t)

	patch := json.RawMessage(`[{"op":"replace","path":"/email","value":"hello@hh.org"}]`)
	cr, err := f.service.Submit(asRole(domain.RoleVolunteer), domain.EntityOrganization, f.svc.OrganizationID, patch, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.service.Approve(asRole(domain.RoleEditor), cr.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	org, err := f.orgs.GetByID(context.Background(), f.svc.OrganizationID)
	if err != nil {
		t.Fatalf("reload organization: %v", err)
	}
	if org.Email != "hello@hh.org" {
		t.Fatalf("organization email not written, got %q", org.Email)
	}
	versions, _ := f.versions.Versions(context.Background(), domain.EntityOrganization, org.ID)
	if versions["organization.email"] != 1 {
		t.Fatalf("expected organization.email bump, got %v", versions)
	}
}

func TestChangeRequestApproveGatedAndTerminal(t *testing.T) {
	f := newChangeFixture(t)

	patch := json.RawMessage(`[{"op":"replace","path":"/phone","value":"555-0199"}]`)
	cr, err := f.service.Submit(asRole(domain.RoleVolunteer), domain.EntityService, f.svc.ID, patch, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.service.Approve(asRole(domain.RoleVolunteer), cr.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("volunteer approval must be forbidden, got %v", err)
	}

	if _, err := f.service.Reject(asRole(domain.RoleEditor), cr.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.service.Approve(asRole(domain.RoleEditor), cr.ID); !errors.Is(err, ErrTerminal) {
		t.Fatalf("approving a rejected request must fail, got %v", err)
	}

	// Rejection leaves the entity untouched.
	svc, err := f.services.GetByID(context.Background(), f.svc.ID)
	if err != nil {
		t.Fatalf("reload service: %v", err)
	}
	if svc.Phone != "555-0100" {
		t.Fatalf("rejected patch must not be applied, got %q", svc.Phone)
	}
}
