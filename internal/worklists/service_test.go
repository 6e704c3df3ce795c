package worklists

import (
	"context"
	"errors"
	"testing"

	"github.com/emeraldcitybeacon/conduit/internal/auth"
	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/repository/memory"

	"github.com/google/uuid"
)

func callerContext() context.Context {
	return auth.ContextWithIdentity(context.Background(), auth.Identity{
		UserID: uuid.New(), Name: "caller", Role: domain.RoleVolunteer,
	})
}

func TestItemsReRunSavedSearch(t *testing.T) {
	worklists := memory.NewWorklistStore()
	services := memory.NewServiceStore()
	service := NewService(worklists, services)
	ctx := callerContext()

	orgID := uuid.New()
	pantry := domain.NewService(orgID, nil, "Food Pantry")
	clinic := domain.NewService(orgID, nil, "Free Clinic")
	for _, svc := range []domain.Service{pantry, clinic} {
		if _, err := services.Create(ctx, svc); err != nil {
			t.Fatalf("seed service: %v", err)
		}
	}

	wl, err := service.Create(ctx, "pantries", map[string]any{"q": "pantry"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	items, err := service.Items(ctx, wl.ID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 1 || items[0].ID != pantry.ID {
		t.Fatalf("expected the pantry only, got %v", items)
	}

	// The search is live: a new match shows up without editing the list.
	late := domain.NewService(orgID, nil, "Second Pantry")
	if _, err := services.Create(ctx, late); err != nil {
		t.Fatalf("seed late service: %v", err)
	}
	items, err = service.Items(ctx, wl.ID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected the late match to appear, got %d items", len(items))
	}
}

func TestAdvanceMovesCursor(t *testing.T) {
	service := NewService(memory.NewWorklistStore(), memory.NewServiceStore())
	ctx := callerContext()

	wl, err := service.Create(ctx, "review queue", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if wl.Cursor != 0 {
		t.Fatalf("new worklist must start at 0, got %d", wl.Cursor)
	}

	wl, err = service.Advance(ctx, wl.ID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	wl, err = service.Advance(ctx, wl.ID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if wl.Cursor != 2 {
		t.Fatalf("expected cursor 2, got %d", wl.Cursor)
	}
}

func TestRetreatStopsAtStart(t *testing.T) {
	service := NewService(memory.NewWorklistStore(), memory.NewServiceStore())
	ctx := callerContext()

	wl, err := service.Create(ctx, "review queue", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.Advance(ctx, wl.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := service.Advance(ctx, wl.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}

	wl, err = service.Retreat(ctx, wl.ID)
	if err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if wl.Cursor != 1 {
		t.Fatalf("expected cursor 1 after retreat, got %d", wl.Cursor)
	}

	// Stepping past the start clamps at 0.
	for i := 0; i < 3; i++ {
		wl, err = service.Retreat(ctx, wl.ID)
		if err != nil {
			t.Fatalf("retreat: %v", err)
		}
	}
	if wl.Cursor != 0 {
		t.Fatalf("cursor must floor at 0, got %d", wl.Cursor)
	}
}

func TestWorklistOwnershipGate(t *testing.T) {
	service := NewService(memory.NewWorklistStore(), memory.NewServiceStore())
	ownerCtx := callerContext()
	strangerCtx := callerContext()

	wl, err := service.Create(ownerCtx, "mine", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := service.Get(strangerCtx, wl.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger get must be forbidden, got %v", err)
	}
	if _, err := service.Advance(strangerCtx, wl.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger advance must be forbidden, got %v", err)
	}
	if err := service.Delete(ownerCtx, wl.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
}
