package worklists

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/problem"
	"github.com/emeraldcitybeacon/conduit/internal/repository"

	"github.com/google/uuid"
)

// Handler exposes the worklist endpoints.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the worklist service.
func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the worklist routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /worklists", h.create)
	mux.HandleFunc("GET /worklists", h.list)
	mux.HandleFunc("GET /worklists/{id}", h.get)
	mux.HandleFunc("DELETE /worklists/{id}", h.delete)
	mux.HandleFunc("GET /worklists/{id}/items", h.items)
	mux.HandleFunc("POST /worklists/{id}/advance", h.advance)
	mux.HandleFunc("POST /worklists/{id}/retreat", h.retreat)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string         `json:"name"`
		Filters map[string]any `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	wl, err := h.service.Create(r.Context(), body.Name, body.Filters)
	if err != nil {
		writeWorklistError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wl)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	worklists, err := h.service.List(r.Context())
	if err != nil {
		writeWorklistError(w, err)
		return
	}
	if worklists == nil {
		worklists = []domain.Worklist{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"worklists": worklists})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid worklist id")
		return
	}
	wl, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeWorklistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wl)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid worklist id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeWorklistError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) items(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid worklist id")
		return
	}
	items, err := h.service.Items(r.Context(), id)
	if err != nil {
		writeWorklistError(w, err)
		return
	}
	if items == nil {
		items = []domain.Service{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid worklist id")
		return
	}
	wl, err := h.service.Advance(r.Context(), id)
	if err != nil {
		writeWorklistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wl)
}

func (h *Handler) retreat(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid worklist id")
		return
	}
	wl, err := h.service.Retreat(r.Context(), id)
	if err != nil {
		writeWorklistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wl)
}

func writeWorklistError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		problem.Write(w, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		problem.Write(w, http.StatusNotFound, "worklist not found")
	default:
		log.Printf("[WORKLISTS] internal error: %v", err)
		problem.Write(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
