package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/emeraldcitybeacon/conduit/internal/db"
	"github.com/emeraldcitybeacon/conduit/internal/domain"

	"github.com/google/uuid"
)

type fieldVersionRepository struct {
	pool db.Querier
}

// NewFieldVersionRepository creates a pgx-backed version ledger.
func NewFieldVersionRepository(pool db.Querier) FieldVersionRepository {
	return &fieldVersionRepository{pool: pool}
}

func (r *fieldVersionRepository) Versions(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) (map[string]int, error) {
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT field_path, version FROM field_versions
		WHERE entity_type = $1 AND entity_id = $2`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("load versions: %w", err)
	}
	defer rows.Close()

	versions := make(map[string]int)
	for rows.Next() {
		var path string
		var version int
		if err := rows.Scan(&path, &version); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions[path] = version
	}
	return versions, rows.Err()
}

// Bump relies on the upsert being a single statement so concurrent
// writers serialize on the row and never produce duplicate versions.
func (r *fieldVersionRepository) Bump(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, fieldPath string, actor uuid.UUID) (int, error) {
	q := db.QuerierFrom(ctx, r.pool)
	var version int
	err := q.QueryRow(ctx, `
		INSERT INTO field_versions (id, entity_type, entity_id, field_path, version, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $6)
		ON CONFLICT (entity_type, entity_id, field_path)
		DO UPDATE SET version = field_versions.version + 1, updated_by = $5, updated_at = $6
		RETURNING version`,
		uuid.New(), entityType, entityID, fieldPath, actor, time.Now(),
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("bump field version: %w", err)
	}
	return version, nil
}

func (r *fieldVersionRepository) ListForEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) ([]domain.FieldVersion, error) {
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, entity_type, entity_id, field_path, version, updated_by, updated_at
		FROM field_versions
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY field_path`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list field versions: %w", err)
	}
	defer rows.Close()

	var versions []domain.FieldVersion
	for rows.Next() {
		var fv domain.FieldVersion
		if err := rows.Scan(&fv.ID, &fv.EntityType, &fv.EntityID, &fv.FieldPath, &fv.Version, &fv.UpdatedBy, &fv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan field version: %w", err)
		}
		versions = append(versions, fv)
	}
	return versions, rows.Err()
}
