package shelves

import (
	"context"
	"errors"
	"testing"

	"github.com/emeraldcitybeacon/conduit/internal/auth"
	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/repository"
	"github.com/emeraldcitybeacon/conduit/internal/repository/memory"

	"github.com/google/uuid"
)

func ownerContext() (context.Context, auth.Identity) {
	identity := auth.Identity{UserID: uuid.New(), Name: "owner", Role: domain.RoleVolunteer}
	return auth.ContextWithIdentity(context.Background(), identity), identity
}

func newShelfService() (*Service, *memory.ShelfStore, *memory.ServiceStore) {
	shelves := memory.NewShelfStore()
	services := memory.NewServiceStore()
	return NewService(shelves, services), shelves, services
}

func TestCreateDefaultsName(t *testing.T) {
	service, _, _ := newShelfService()
	ctx, identity := ownerContext()

	shelf, err := service.Create(ctx, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if shelf.Name != "Untitled shelf" {
		t.Fatalf("expected default name, got %q", shelf.Name)
	}
	if shelf.OwnerID != identity.UserID {
		t.Fatal("shelf must belong to the caller")
	}
	if len(shelf.Members) != 0 {
		t.Fatalf("new shelf must be empty, got %v", shelf.Members)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	service, _, _ := newShelfService()
	ctx, _ := ownerContext()

	shelf, err := service.Create(ctx, "Pantries")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ref := domain.EntityRef{EntityType: domain.EntityService, EntityID: uuid.New().String()}

	shelf, err = service.Add(ctx, shelf.ID, ref)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	shelf, err = service.Add(ctx, shelf.ID, ref)
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if len(shelf.Members) != 1 {
		t.Fatalf("duplicate add must be a no-op, got %d members", len(shelf.Members))
	}
}

func TestAddRejectsBadRefs(t *testing.T) {
	service, _, _ := newShelfService()
	ctx, _ := ownerContext()

	shelf, err := service.Create(ctx, "Pantries")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = service.Add(ctx, shelf.ID, domain.EntityRef{EntityType: "building", EntityID: uuid.New().String()})
	if !errors.Is(err, ErrBadRef) {
		t.Fatalf("unknown entity type must be rejected, got %v", err)
	}
	_, err = service.Add(ctx, shelf.ID, domain.EntityRef{EntityType: domain.EntityService, EntityID: "not-a-uuid"})
	if !errors.Is(err, ErrBadRef) {
		t.Fatalf("bad entity id must be rejected, got %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	service, _, _ := newShelfService()
	ctx, _ := ownerContext()

	shelf, err := service.Create(ctx, "Pantries")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ref := domain.EntityRef{EntityType: domain.EntityService, EntityID: uuid.New().String()}
	if _, err := service.Add(ctx, shelf.ID, ref); err != nil {
		t.Fatalf("add: %v", err)
	}

	shelf, err = service.Remove(ctx, shelf.ID, ref)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(shelf.Members) != 0 {
		t.Fatalf("member must be gone, got %v", shelf.Members)
	}
	if _, err := service.Remove(ctx, shelf.ID, ref); err != nil {
		t.Fatalf("removing a missing member must be a no-op, got %v", err)
	}
}

func TestOwnershipGate(t *testing.T) {
	service, _, _ := newShelfService()
	ownerCtx, _ := ownerContext()
	strangerCtx, _ := ownerContext()

	shelf, err := service.Create(ownerCtx, "Mine")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := service.Get(strangerCtx, shelf.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger get must be forbidden, got %v", err)
	}
	ref := domain.EntityRef{EntityType: domain.EntityService, EntityID: uuid.New().String()}
	if _, err := service.Add(strangerCtx, shelf.ID, ref); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger add must be forbidden, got %v", err)
	}
	if err := service.Delete(strangerCtx, shelf.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger delete must be forbidden, got %v", err)
	}

	if err := service.Delete(ownerCtx, shelf.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := service.Get(ownerCtx, shelf.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("deleted shelf must be gone, got %v", err)
	}
}

func TestExportIncludesLiveServiceRows(t *testing.T) {
	service, _, services := newShelfService()
	ctx, _ := ownerContext()

	svc := domain.NewService(uuid.New(), nil, "Food Pantry")
	svc.URL = "http://pantry.org"
	svc.Phone = "555-0100"
	if _, err := services.Create(ctx, svc); err != nil {
		t.Fatalf("seed service: %v", err)
	}

	shelf, err := service.Create(ctx, "Pantries")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.Add(ctx, shelf.ID, domain.EntityRef{
		EntityType: domain.EntityService, EntityID: svc.ID.String(),
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	file, err := service.Export(ctx, shelf.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	sheet := file.GetSheetName(0)

	header, err := file.GetCellValue(sheet, "A1")
	if err != nil || header != "Entity Type" {
		t.Fatalf("expected header row, got %q (%v)", header, err)
	}
	name, err := file.GetCellValue(sheet, "C2")
	if err != nil || name != "Food Pantry" {
		t.Fatalf("expected live service name, got %q (%v)", name, err)
	}
	phone, err := file.GetCellValue(sheet, "F2")
	if err != nil || phone != "555-0100" {
		t.Fatalf("expected live phone, got %q (%v)", phone, err)
	}
}
