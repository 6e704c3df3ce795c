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

type worklistRepository struct {
	pool db.Querier
}

// NewWorklistRepository creates a pgx-backed worklist store.
func NewWorklistRepository(pool db.Querier) WorklistRepository {
	return &worklistRepository{pool: pool}
}

func (r *worklistRepository) Create(ctx context.Context, wl domain.Worklist) (domain.Worklist, error) {
	filtersJSON, err := json.Marshal(wl.Filters)
	if err != nil {
		return domain.Worklist{}, fmt.Errorf("marshal worklist filters: %w", err)
	}
	q := db.QuerierFrom(ctx, r.pool)
	_, err = q.Exec(ctx, `
		INSERT INTO worklists (id, name, owner_id, filters, cursor, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		wl.ID, wl.Name, wl.OwnerID, filtersJSON, wl.Cursor, wl.CreatedAt, wl.UpdatedAt,
	)
	if err != nil {
		return domain.Worklist{}, fmt.Errorf("create worklist: %w", err)
	}
	return wl, nil
}

func scanWorklist(row pgx.Row) (domain.Worklist, error) {
	var wl domain.Worklist
	var filtersJSON []byte
	err := row.Scan(&wl.ID, &wl.Name, &wl.OwnerID, &filtersJSON, &wl.Cursor, &wl.CreatedAt, &wl.UpdatedAt)
	if err != nil {
		return domain.Worklist{}, err
	}
	if err := json.Unmarshal(filtersJSON, &wl.Filters); err != nil {
		return domain.Worklist{}, fmt.Errorf("unmarshal worklist filters: %w", err)
	}
	return wl, nil
}

func (r *worklistRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Worklist, error) {
	q := db.QuerierFrom(ctx, r.pool)
	wl, err := scanWorklist(q.QueryRow(ctx, `
		SELECT id, name, owner_id, filters, cursor, created_at, updated_at
		FROM worklists WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Worklist{}, ErrNotFound
		}
		return domain.Worklist{}, fmt.Errorf("get worklist: %w", err)
	}
	return wl, nil
}

func (r *worklistRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Worklist, error) {
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, name, owner_id, filters, cursor, created_at, updated_at
		FROM worklists
		WHERE owner_id = $1
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list worklists: %w", err)
	}
	defer rows.Close()

	var worklists []domain.Worklist
	for rows.Next() {
		wl, err := scanWorklist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worklist: %w", err)
		}
		worklists = append(worklists, wl)
	}
	return worklists, rows.Err()
}

func (r *worklistRepository) Update(ctx context.Context, wl domain.Worklist) (domain.Worklist, error) {
	filtersJSON, err := json.Marshal(wl.Filters)
	if err != nil {
		return domain.Worklist{}, fmt.Errorf("marshal worklist filters: %w", err)
	}
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE worklists
		SET name = $2, filters = $3, cursor = $4, updated_at = $5
		WHERE id = $1`,
		wl.ID, wl.Name, filtersJSON, wl.Cursor, wl.UpdatedAt,
	)
	if err != nil {
		return domain.Worklist{}, fmt.Errorf("update worklist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Worklist{}, ErrNotFound
	}
	return wl, nil
}

func (r *worklistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `DELETE FROM worklists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete worklist: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
