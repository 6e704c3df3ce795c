// Package health reports data-quality statistics over the directory.
package health

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/emeraldcitybeacon/conduit/internal/problem"
	"github.com/emeraldcitybeacon/conduit/internal/repository"
)

// Handler serves the data-health dashboard numbers.
type Handler struct {
	health repository.HealthRepository
}

// NewHTTPHandler wraps the health aggregator.
func NewHTTPHandler(health repository.HealthRepository) *Handler {
	return &Handler{health: health}
}

// Register mounts the health routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health/stats", h.stats)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.health.Stats(r.Context())
	if err != nil {
		log.Printf("[HEALTH] stats failed: %v", err)
		problem.Write(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(stats)
}
