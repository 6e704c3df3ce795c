package domain

import (
	"fmt"
	"strings"
)

// EntityType enumerates the canonical record kinds that carry field
// versions, verification events and sensitive overlays.
type EntityType string

const (
	EntityOrganization      EntityType = "organization"
	EntityLocation          EntityType = "location"
	EntityService           EntityType = "service"
	EntityServiceAtLocation EntityType = "service_at_location"
)

// ParseEntityType validates a raw entity type string.
func ParseEntityType(raw string) (EntityType, error) {
	switch EntityType(raw) {
	case EntityOrganization, EntityLocation, EntityService, EntityServiceAtLocation:
		return EntityType(raw), nil
	default:
		return "", fmt.Errorf("unknown entity type: %q", raw)
	}
}

// EntityTypeForPath derives the owning entity type from the root namespace
// of a dotted field path, e.g. "service.url" -> EntityService.
func EntityTypeForPath(fieldPath string) (EntityType, error) {
	root := fieldPath
	if i := strings.IndexAny(fieldPath, ".["); i >= 0 {
		root = fieldPath[:i]
	}
	return ParseEntityType(root)
}

// EntityRef identifies one canonical record.
type EntityRef struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
}
