package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/emeraldcitybeacon/conduit/internal/auth"
	"github.com/emeraldcitybeacon/conduit/internal/domain"
	"github.com/emeraldcitybeacon/conduit/internal/jsonpatch"
	"github.com/emeraldcitybeacon/conduit/internal/problem"
	"github.com/emeraldcitybeacon/conduit/internal/repository"

	"github.com/google/uuid"
)

// Handler exposes the draft and change request endpoints.
type Handler struct {
	drafts   *DraftService
	requests *ChangeRequestService
}

// NewHTTPHandler wraps both editorial workflows.
func NewHTTPHandler(drafts *DraftService, requests *ChangeRequestService) *Handler {
	return &Handler{drafts: drafts, requests: requests}
}

// Register mounts the workflow routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /resource", h.createDraft)
	mux.HandleFunc("GET /drafts", h.listDrafts)
	mux.HandleFunc("POST /drafts/{id}/approve", h.approveDraft)
	mux.HandleFunc("POST /drafts/{id}/reject", h.rejectDraft)
	mux.HandleFunc("POST /change-requests", h.submitChangeRequest)
	mux.HandleFunc("GET /change-requests", h.listChangeRequests)
	mux.HandleFunc("POST /change-requests/{id}/approve", h.approveChangeRequest)
	mux.HandleFunc("POST /change-requests/{id}/reject", h.rejectChangeRequest)
}

func (h *Handler) createDraft(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		problem.Write(w, http.StatusBadRequest, fmt.Sprintf("payload must be a JSON object: %v", err))
		return
	}
	draft, err := h.drafts.Create(r.Context(), payload)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, draft)
}

func (h *Handler) listDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.drafts.List(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	if drafts == nil {
		drafts = []domain.DraftResource{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": drafts})
}

func (h *Handler) approveDraft(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid draft id")
		return
	}
	result, err := h.drafts.Approve(r.Context(), id)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) rejectDraft(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid draft id")
		return
	}
	var body struct {
		ReviewNote string `json:"review_note"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	draft, err := h.drafts.Reject(r.Context(), id, body.ReviewNote)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *Handler) submitChangeRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetEntityType string          `json:"target_entity_type"`
		TargetEntityID   string          `json:"target_entity_id"`
		Patch            json.RawMessage `json:"patch"`
		Note             string          `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	targetType, err := domain.ParseEntityType(body.TargetEntityType)
	if err != nil {
		problem.Write(w, http.StatusBadRequest, err.Error())
		return
	}
	targetID, err := uuid.Parse(body.TargetEntityID)
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid target_entity_id")
		return
	}
	if _, err := jsonpatch.ParseOps(body.Patch); err != nil {
		problem.Write(w, http.StatusBadRequest, err.Error())
		return
	}

	cr, err := h.requests.Submit(r.Context(), targetType, targetID, body.Patch, body.Note)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cr)
}

// listChangeRequests serves the review queue to reviewers and the
// caller's own submissions to everyone else.
func (h *Handler) listChangeRequests(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	var (
		requests []domain.ChangeRequest
		err      error
	)
	if identity.Role.CanReview() && r.URL.Query().Get("mine") == "" {
		requests, err = h.requests.ListPending(r.Context())
	} else {
		requests, err = h.requests.ListMine(r.Context())
	}
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	if requests == nil {
		requests = []domain.ChangeRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"change_requests": requests})
}

func (h *Handler) approveChangeRequest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid change request id")
		return
	}
	cr, err := h.requests.Approve(r.Context(), id)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cr)
}

func (h *Handler) rejectChangeRequest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid change request id")
		return
	}
	cr, err := h.requests.Reject(r.Context(), id)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cr)
}

func writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		problem.Write(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrTerminal):
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
		log.Printf("[WORKFLOW] internal error: %v", err)
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
