package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/emeraldcitybeacon/conduit/internal/auth"
	"github.com/emeraldcitybeacon/conduit/internal/jsonpath"
	"github.com/emeraldcitybeacon/conduit/internal/problem"
	"github.com/emeraldcitybeacon/conduit/internal/repository"

	"github.com/google/uuid"
)

// Handler exposes the composite resource endpoints.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the resource service.
func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register mounts the resource routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /resource/{id}", h.get)
	mux.HandleFunc("PATCH /resource/{id}", h.patch)
	mux.HandleFunc("GET /resource/{id}/versions", h.versions)
	mux.HandleFunc("GET /resource/{id}/siblings", h.siblings)
	mux.HandleFunc("PATCH /resource/{id}/sensitive", h.patchSensitive)
	mux.HandleFunc("POST /resource/{id}/verify", h.verify)
	mux.HandleFunc("POST /merge", h.merge)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid resource id")
		return
	}
	composite, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("ETag", composite.ETag)
	writeJSON(w, http.StatusOK, composite.Document)
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid resource id")
		return
	}

	req := UpdateRequest{IfMatch: r.Header.Get("If-Match")}
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			problem.Write(w, http.StatusBadRequest, fmt.Sprintf("invalid form data: %v", err))
			return
		}
		req.Fields = make(map[string]any, len(r.PostForm))
		for key := range r.PostForm {
			req.Fields[key] = r.PostForm.Get(key)
		}
	default:
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			problem.Write(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
			return
		}
		req.AssertVersions = parseAssertVersions(body)
		delete(body, "assert_versions")
		req.Fields = flattenFields(body)
	}

	composite, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("ETag", composite.ETag)
	writeJSON(w, http.StatusOK, composite.Document)
}

// parseAssertVersions pulls the optional assert_versions member out of
// the request body. Versions arrive as JSON numbers or "v<n>" strings.
func parseAssertVersions(body map[string]any) map[string]int {
	raw, ok := body["assert_versions"].(map[string]any)
	if !ok {
		return nil
	}
	asserted := make(map[string]int, len(raw))
	for path, value := range raw {
		switch typed := value.(type) {
		case float64:
			asserted[path] = int(typed)
		case string:
			var n int
			if _, err := fmt.Sscanf(typed, "v%d", &n); err == nil {
				asserted[path] = n
			}
		}
	}
	return asserted
}

// flattenFields turns a nested body into dotted composite paths.
func flattenFields(body map[string]any) map[string]any {
	fields := make(map[string]any)
	for _, path := range jsonpath.Leaves(body) {
		if value, ok := jsonpath.Get(body, path); ok {
			fields[path] = value
		}
	}
	return fields
}

func (h *Handler) versions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid resource id")
		return
	}
	versions, err := h.service.Versions(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (h *Handler) siblings(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid resource id")
		return
	}
	siblings, err := h.service.Siblings(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, siblings)
}

func (h *Handler) patchSensitive(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || !identity.Role.CanReview() {
		problem.Write(w, http.StatusForbidden, "editor role required")
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid resource id")
		return
	}

	var body struct {
		Sensitive       bool              `json:"sensitive"`
		VisibilityRules map[string]string `json:"visibility_rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	overlay, err := h.service.SetSensitive(r.Context(), id, body.Sensitive, body.VisibilityRules)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overlay)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid resource id")
		return
	}

	var body struct {
		Item      string `json:"item"`
		FieldPath string `json:"field_path"`
		Method    string `json:"method"`
		Note      string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	event, err := h.service.Verify(r.Context(), id, VerifyRequest{
		Item:      body.Item,
		FieldPath: body.FieldPath,
		Method:    body.Method,
		Note:      body.Note,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *Handler) merge(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || !identity.Role.CanReview() {
		problem.Write(w, http.StatusForbidden, "editor role required")
		return
	}

	var body struct {
		LeftID  string   `json:"left_id"`
		RightID string   `json:"right_id"`
		Fields  []string `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	leftID, err := uuid.Parse(body.LeftID)
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid left_id")
		return
	}
	rightID, err := uuid.Parse(body.RightID)
	if err != nil {
		problem.Write(w, http.StatusBadRequest, "invalid right_id")
		return
	}

	composite, err := h.service.Merge(r.Context(), leftID, rightID, body.Fields)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("ETag", composite.ETag)
	writeJSON(w, http.StatusOK, composite.Document)
}

// writeServiceError maps service errors onto the status-code contract.
func writeServiceError(w http.ResponseWriter, err error) {
	var validation *ValidationError
	if errors.As(err, &validation) {
		problem.WriteDetails(w, problem.Details{
			Status:     http.StatusBadRequest,
			Detail:     "validation failed",
			Extensions: map[string]any{"errors": validation.Fields},
		})
		return
	}
	var precondition *PreconditionError
	if errors.As(err, &precondition) {
		problem.WriteDetails(w, problem.Details{
			Status: http.StatusPreconditionFailed,
			Detail: "resource has changed since it was read",
			Extensions: map[string]any{
				"etags":   precondition.ETags,
				"current": precondition.Current,
			},
		})
		return
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		problem.WriteDetails(w, problem.Details{
			Status: http.StatusConflict,
			Detail: "field version assertions failed",
			Extensions: map[string]any{
				"conflicts": conflict.Paths,
				"etags":     conflict.ETags,
				"current":   conflict.Current,
			},
		})
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		problem.Write(w, http.StatusNotFound, "resource not found")
		return
	}
	log.Printf("[RESOURCE] internal error: %v", err)
	problem.Write(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
