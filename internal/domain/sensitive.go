package domain

import (
	"time"

	"github.com/google/uuid"
)

// VisibilityRedact is the only visibility rule currently understood:
// matching paths are removed from serialized documents.
const VisibilityRedact = "redact"

// SensitiveOverlay is the per-entity redaction ruleset. At most one row
// exists per (entity_type, entity_id).
type SensitiveOverlay struct {
	ID              uuid.UUID         `json:"id"`
	EntityType      EntityType        `json:"entity_type"`
	EntityID        uuid.UUID         `json:"entity_id"`
	Sensitive       bool              `json:"sensitive"`
	VisibilityRules map[string]string `json:"visibility_rules"`
	UpdatedBy       uuid.UUID         `json:"updated_by"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// RedactedPaths returns the paths to drop from output. Empty when the
// overlay is not marked sensitive.
func (o SensitiveOverlay) RedactedPaths() []string {
	if !o.Sensitive {
		return nil
	}
	paths := make([]string, 0, len(o.VisibilityRules))
	for path, rule := range o.VisibilityRules {
		if rule == VisibilityRedact {
			paths = append(paths, path)
		}
	}
	return paths
}
