package bulk

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/jsonpatch"
	"github.com/emeraldcitybeacon/conduit/internal/problem"
	"github.com/emeraldcitybeacon/conduit/internal/repository"

	"github.com/google/uuid"
)

// Handler exposes the bulk operation endpoints.
type Handler struct {
	engine *Engine
}

// NewHTTPHandler wraps the bulk engine.
func NewHTTPHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Register mounts the bulk operation routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /bulk-ops", h.stage)
	mux.HandleFunc("GET /bulk-ops/{id}/preview", h.preview)
	mux.HandleFunc("POST /bulk-ops/{id}/commit", h.commit)
	mux.HandleFunc("POST /bulk-ops/{id}/undo", h.undo)
}

// stagedView hides the undo token but exposes everything else.
type operationView struct {
	domain.BulkOperation
	UndoToken string `json:"undo_token,omitempty"`
}

func (h *Handler) stage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Scope   string          `json:"scope"`
		ShelfID string          `json:"shelf_id"`
		Patch   json.RawMessage `json:"patch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	shelfID, err := uuid.Parse(body.ShelfID)
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid shelf_id")
		return
	}

	op, err := h.engine.Stage(r.Context(), domain.BulkScope(body.Scope), shelfID, body.Patch)
	if err != nil {
		writeBulkError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, operationView{BulkOperation: op})
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid bulk operation id")
		return
	}
	op, err := h.engine.Get(r.Context(), id)
	if err != nil {
		writeBulkError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      op.ID,
		"status":  op.Status,
		"targets": op.Targets,
		"preview": op.Preview,
	})
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid bulk operation id")
		return
	}
	op, err := h.engine.Commit(r.Context(), id)
	if err != nil {
		writeBulkError(w, err)
		return
	}
	// The undo token is disclosed exactly once, on commit.
	writeJSON(w, http.StatusOK, operationView{BulkOperation: op, UndoToken: op.UndoToken})
}

func (h *Handler) undo(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid bulk operation id")
		return
	}
	var body struct {
		UndoToken string `json:"undo_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	op, err := h.engine.Undo(r.Context(), id, body.UndoToken)
	if err != nil {
		writeBulkError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, operationView{BulkOperation: op})
}

func writeBulkError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		problem.Write(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrState), errors.Is(err, ErrBadToken), errors.Is(err, ErrBadRequest):
		problem.Write(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		problem.Write(w, http.StatusNotFound, "not found")
	default:
		var patchErr *jsonpatch.PatchError
		var unsupported *jsonpatch.ErrUnsupportedOp
		if errors.As(err, &patchErr) || errors.As(err, &unsupported) {
			problem.Write(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[BULK] internal error: %v", err)
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
