package shelves

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

// Handler exposes the shelf endpoints.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the shelf service.
func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the shelf routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /shelves", h.create)
	mux.HandleFunc("GET /shelves", h.list)
	mux.HandleFunc("GET /shelves/{id}", h.get)
	mux.HandleFunc("DELETE /shelves/{id}", h.delete)
	mux.HandleFunc("POST /shelves/{id}/add", h.add)
	mux.HandleFunc("POST /shelves/{id}/remove", h.remove)
	mux.HandleFunc("GET /shelves/{id}/export", h.export)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	shelf, err := h.service.Create(r.Context(), body.Name)
	if err != nil {
		writeShelfError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shelf)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	shelves, err := h.service.List(r.Context())
	if err != nil {
		writeShelfError(w, err)
		return
	}
	if shelves == nil {
		shelves = []domain.Shelf{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"shelves": shelves})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid shelf id")
		return
	}
	shelf, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeShelfError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shelf)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid shelf id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeShelfError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid shelf id")
		return
	}
	ref, ok := decodeRef(w, r)
	if !ok {
		return
	}
	shelf, err := h.service.Add(r.Context(), id, ref)
	if err != nil {
		writeShelfError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shelf)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid shelf id")
		return
	}
	ref, ok := decodeRef(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Remove(r.Context(), id, ref); err != nil {
		writeShelfError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeRef(w http.ResponseWriter, r *http.Request) (domain.EntityRef, bool) {
	var ref domain.EntityRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		problem.Write(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return domain.EntityRef{}, false
	}
	return ref, true
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid shelf id")
		return
	}
	f, err := h.service.Export(r.Context(), id)
	if err != nil {
		writeShelfError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="shelf.xlsx"`)
	if err := f.Write(w); err != nil {
		log.Printf("[SHELVES] export write failed: %v", err)
	}
}

func writeShelfError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		problem.Write(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrBadRef):
		problem.Write(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		problem.Write(w, http.StatusNotFound, "shelf not found")
	default:
		log.Printf("[SHELVES] internal error: %v", err)
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
