package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/repository/memory"

	"github.com/google/uuid"
)

func seedHandler(t *testing.T) *Handler {
	t.Helper()
	orgs := memory.NewOrganizationStore()
	services := memory.NewServiceStore()
	locations := memory.NewLocationStore()
	ctx := context.Background()

	org := domain.NewOrganization("Harbor Light Center", "", "", "")
	if _, err := orgs.Create(ctx, org); err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	svc := domain.NewService(org.ID, nil, "Harbor Meal Program")
	if _, err := services.Create(ctx, svc); err != nil {
		t.Fatalf("seed service: %v", err)
	}
	loc := domain.NewLocation(org.ID, "")
	loc.Address = "12 Harbor Way"
	loc.City = "Seattle"
	if _, err := locations.Create(ctx, loc); err != nil {
		t.Fatalf("seed location: %v", err)
	}
	other := domain.NewService(org.ID, nil, "Dental Clinic")
	if _, err := services.Create(ctx, other); err != nil {
		t.Fatalf("seed service: %v", err)
	}

	return NewHTTPHandler(orgs, services, locations)
}

func doSearch(t *testing.T, h *Handler, target string) (*httptest.ResponseRecorder, []Hit) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body struct {
		Results []Hit `json:"results"`
	}
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, body.Results
}

func TestSearchSpansEntityKinds(t *testing.T) {
	h := seedHandler(t)

	rec, results := doSearch(t, h, "/search?q=harbor")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	kinds := map[string]int{}
	for _, hit := range results {
		kinds[hit.Type]++
		if hit.ID == "" || hit.Name == "" {
			t.Fatalf("hits must carry id and name: %+v", hit)
		}
		if _, err := uuid.Parse(hit.ID); err != nil {
			t.Fatalf("hit id must be a uuid: %q", hit.ID)
		}
	}
	if kinds["organization"] != 1 || kinds["service"] != 1 || kinds["location"] != 1 {
		t.Fatalf("expected one hit per kind, got %v", kinds)
	}

	for _, hit := range results {
		if hit.Type == "location" {
			if hit.Address != "12 Harbor Way, Seattle" {
				t.Fatalf("location hit must carry its address, got %q", hit.Address)
			}
			if hit.Name != hit.Address {
				t.Fatalf("nameless location must fall back to its address, got %q", hit.Name)
			}
		}
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	h := seedHandler(t)

	rec, _ := doSearch(t, h, "/search")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing q must get 400, got %d", rec.Code)
	}
}

func TestSearchExcludesNonMatches(t *testing.T) {
	h := seedHandler(t)

	rec, results := doSearch(t, h, "/search?q=dental")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(results) != 1 || results[0].Type != "service" || results[0].Name != "Dental Clinic" {
		t.Fatalf("expected the dental service only, got %v", results)
	}
}
