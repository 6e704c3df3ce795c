package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/emeraldcitybeacon/conduit/internal/db"
	"github.com/emeraldcitybeacon/conduit/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type sensitiveRepository struct {
	pool db.Querier
}

// NewSensitiveRepository creates a pgx-backed overlay store.
func NewSensitiveRepository(pool db.Querier) SensitiveRepository {
	return &sensitiveRepository{pool: pool}
}

func (r *sensitiveRepository) Get(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (domain.SensitiveOverlay, error) {
	q := db.QuerierFrom(ctx, r.pool)
	var overlay domain.SensitiveOverlay
	var rulesJSON []byte
	err := q.QueryRow(ctx, `
		SELECT id, entity_type, entity_id, sensitive, visibility_rules, updated_by, updated_at
		FROM sensitive_overlays
		WHERE entity_type = $1 AND entity_id = $2`, entityType, entityID,
	).Scan(&overlay.ID, &overlay.EntityType, &overlay.EntityID, &overlay.Sensitive, &rulesJSON, &overlay.UpdatedBy, &overlay.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SensitiveOverlay{}, ErrNotFound
		}
		return domain.SensitiveOverlay{}, fmt.Errorf("get sensitive overlay: %w", err)
	}
	if err := json.Unmarshal(rulesJSON, &overlay.VisibilityRules); err != nil {
		return domain.SensitiveOverlay{}, fmt.Errorf("unmarshal visibility rules: %w", err)
	}
	return overlay, nil
}

func (r *sensitiveRepository) Upsert(ctx context.Context, overlay domain.SensitiveOverlay) (domain.SensitiveOverlay, error) {
	rulesJSON, err := json.Marshal(overlay.VisibilityRules)
	if err != nil {
		return domain.SensitiveOverlay{}, fmt.Errorf("marshal visibility rules: %w", err)
	}
	q := db.QuerierFrom(ctx, r.pool)
	_, err = q.Exec(ctx, `
		INSERT INTO sensitive_overlays (id, entity_type, entity_id, sensitive, visibility_rules, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (entity_type, entity_id)
		DO UPDATE SET sensitive = $4, visibility_rules = $5, updated_by = $6, updated_at = $7`,
		overlay.ID, overlay.EntityType, overlay.EntityID,
		overlay.Sensitive, rulesJSON, overlay.UpdatedBy, overlay.UpdatedAt,
	)
	if err != nil {
		return domain.SensitiveOverlay{}, fmt.Errorf("upsert sensitive overlay: %w", err)
	}
	return overlay, nil
}
