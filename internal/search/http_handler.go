// Package search serves the duplicate-hint lookup used while entering
// new resources.
package search

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/emeraldcitybeacon/conduit/internal/problem"
	"github.com/emeraldcitybeacon/conduit/internal/repository"
)

// Hit is one lightweight candidate match.
type Hit struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Handler answers search queries across organizations, services and
// locations.
type Handler struct {
	organizations repository.OrganizationRepository
	services      repository.ServiceRepository
	locations     repository.LocationRepository
}

// NewHTTPHandler wraps the entity stores.
func NewHTTPHandler(
	organizations repository.OrganizationRepository,
	services repository.ServiceRepository,
	locations repository.LocationRepository,
) *Handler {
	return &Handler{organizations: organizations, services: services, locations: locations}
}

// Register mounts the search route on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /search", h.search)
}

// perKindLimit caps each entity kind so the hint list stays fast.
const perKindLimit = 5

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		problem.Write(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > perKindLimit {
		limit = perKindLimit
	}

	results := []Hit{}

	orgs, err := h.organizations.SearchByName(r.Context(), query, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	for _, org := range orgs {
		results = append(results, Hit{Type: "organization", ID: org.ID.String(), Name: org.Name})
	}

	services, err := h.services.Search(r.Context(), query, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	for _, svc := range services {
		results = append(results, Hit{Type: "service", ID: svc.ID.String(), Name: svc.Name})
	}

	locations, err := h.locations.SearchByName(r.Context(), query, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	for _, loc := range locations {
		address := loc.Address
		if loc.City != "" {
			if address != "" {
				address += ", "
			}
			address += loc.City
		}
		name := loc.Name
		if name == "" {
			name = address
		}
		results = append(results, Hit{Type: "location", ID: loc.ID.String(), Name: name, Address: address})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{"results": results})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	log.Printf("[SEARCH] query failed: %v", err)
	problem.Write(w, http.StatusInternalServerError, "internal error")
}
