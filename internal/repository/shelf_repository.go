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

type shelfRepository struct {
	pool db.Querier
}

// NewShelfRepository creates a pgx-backed shelf store.
func NewShelfRepository(pool db.Querier) ShelfRepository {
	return &shelfRepository{pool: pool}
}

func (r *shelfRepository) Create(ctx context.Context, shelf domain.Shelf) (domain.Shelf, error) {
	membersJSON, err := json.Marshal(shelf.Members)
	if err != nil {
		return domain.Shelf{}, fmt.Errorf("marshal shelf members: %w", err)
	}
	q := db.QuerierFrom(ctx, r.pool)
	_, err = q.Exec(ctx, `
		INSERT INTO shelves (id, name, owner_id, members, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		shelf.ID, shelf.Name, shelf.OwnerID, membersJSON, shelf.CreatedAt, shelf.UpdatedAt,
	)
	if err != nil {
		return domain.Shelf{}, fmt.Errorf("create shelf: %w", err)
	}
	return shelf, nil
}

func scanShelf(row pgx.Row) (domain.Shelf, error) {
	var shelf domain.Shelf
	var membersJSON []byte
	err := row.Scan(&shelf.ID, &shelf.Name, &shelf.OwnerID, &membersJSON, &shelf.CreatedAt, &shelf.UpdatedAt)
	if err != nil {
		return domain.Shelf{}, err
	}
	if err := json.Unmarshal(membersJSON, &shelf.Members); err != nil {
		return domain.Shelf{}, fmt.Errorf("unmarshal shelf members: %w", err)
	}
	return shelf, nil
}

func (r *shelfRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Shelf, error) {
	q := db.QuerierFrom(ctx, r.pool)
	shelf, err := scanShelf(q.QueryRow(ctx, `
		SELECT id, name, owner_id, members, created_at, updated_at
		FROM shelves WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Shelf{}, ErrNotFound
		}
		return domain.Shelf{}, fmt.Errorf("get shelf: %w", err)
	}
	return shelf, nil
}

func (r *shelfRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Shelf, error) {
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, name, owner_id, members, created_at, updated_at
		FROM shelves
		WHERE owner_id = $1
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list shelves: %w", err)
	}
	defer rows.Close()

	var shelves []domain.Shelf
	for rows.Next() {
		shelf, err := scanShelf(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shelf: %w", err)
		}
		shelves = append(shelves, shelf)
	}
	return shelves, rows.Err()
}

func (r *shelfRepository) Update(ctx context.Context, shelf domain.Shelf) (domain.Shelf, error) {
	membersJSON, err := json.Marshal(shelf.Members)
	if err != nil {
		return domain.Shelf{}, fmt.Errorf("marshal shelf members: %w", err)
	}
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE shelves
		SET name = $2, members = $3, updated_at = $4
		WHERE id = $1`,
		shelf.ID, shelf.Name, membersJSON, shelf.UpdatedAt,
	)
	if err != nil {
		return domain.Shelf{}, fmt.Errorf("update shelf: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Shelf{}, ErrNotFound
	}
	return shelf, nil
}

func (r *shelfRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `DELETE FROM shelves WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete shelf: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
