package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/emeraldcitybeacon/conduit/internal/db"
	"github.com/emeraldcitybeacon/conduit/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type locationRepository struct {
	pool db.Querier
}

// NewLocationRepository creates a pgx-backed location repository.
func NewLocationRepository(pool db.Querier) LocationRepository {
	return &locationRepository{pool: pool}
}

const locationColumns = `id, organization_id, name, address, city, state, postal_code, latitude, longitude, created_at, updated_at`

func scanLocation(row pgx.Row) (domain.Location, error) {
	var loc domain.Location
	err := row.Scan(
		&loc.ID, &loc.OrganizationID, &loc.Name,
		&loc.Address, &loc.City, &loc.State, &loc.PostalCode,
		&loc.Latitude, &loc.Longitude,
		&loc.CreatedAt, &loc.UpdatedAt,
	)
	return loc, err
}

func (r *locationRepository) Create(ctx context.Context, loc domain.Location) (domain.Location, error) {
	q := db.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO locations (`+locationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		loc.ID, loc.OrganizationID, loc.Name,
		loc.Address, loc.City, loc.State, loc.PostalCode,
		loc.Latitude, loc.Longitude,
		loc.CreatedAt, loc.UpdatedAt,
	)
	if err != nil {
		return domain.Location{}, fmt.Errorf("create location: %w", err)
	}
	return loc, nil
}

func (r *locationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Location, error) {
	q := db.QuerierFrom(ctx, r.pool)
	loc, err := scanLocation(q.QueryRow(ctx, `
		SELECT `+locationColumns+` FROM locations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Location{}, ErrNotFound
		}
		return domain.Location{}, fmt.Errorf("get location: %w", err)
	}
	return loc, nil
}

func (r *locationRepository) Update(ctx context.Context, loc domain.Location) (domain.Location, error) {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE locations
		SET organization_id = $2, name = $3, address = $4, city = $5, state = $6,
		    postal_code = $7, latitude = $8, longitude = $9, updated_at = $10
		WHERE id = $1`,
		loc.ID, loc.OrganizationID, loc.Name,
		loc.Address, loc.City, loc.State, loc.PostalCode,
		loc.Latitude, loc.Longitude, loc.UpdatedAt,
	)
	if err != nil {
		return domain.Location{}, fmt.Errorf("update location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Location{}, ErrNotFound
	}
	return loc, nil
}

func (r *locationRepository) SearchByName(ctx context.Context, query string, limit int) ([]domain.Location, error) {
	if limit <= 0 {
		limit = 5
	}
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+locationColumns+` FROM locations
		WHERE name ILIKE '%' || $1 || '%' OR address ILIKE '%' || $1 || '%' OR city ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search locations: %w", err)
	}
	defer rows.Close()

	var results []domain.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		results = append(results, loc)
	}
	return results, rows.Err()
}

func (r *locationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
