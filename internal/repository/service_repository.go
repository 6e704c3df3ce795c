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

type serviceRepository struct {
	pool db.Querier
}

// NewServiceRepository creates a pgx-backed service repository.
func NewServiceRepository(pool db.Querier) ServiceRepository {
	return &serviceRepository{pool: pool}
}

const serviceColumns = `id, organization_id, location_id, name, description, url, email, phone, hours, status, created_at, updated_at`

func scanService(row pgx.Row) (domain.Service, error) {
	var svc domain.Service
	err := row.Scan(
		&svc.ID, &svc.OrganizationID, &svc.LocationID,
		&svc.Name, &svc.Description, &svc.URL, &svc.Email,
		&svc.Phone, &svc.Hours, &svc.Status,
		&svc.CreatedAt, &svc.UpdatedAt,
	)
	return svc, err
}

func (r *serviceRepository) Create(ctx context.Context, svc domain.Service) (domain.Service, error) {
	q := db.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO services (`+serviceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		svc.ID, svc.OrganizationID, svc.LocationID,
		svc.Name, svc.Description, svc.URL, svc.Email,
		svc.Phone, svc.Hours, svc.Status,
		svc.CreatedAt, svc.UpdatedAt,
	)
	if err != nil {
		return domain.Service{}, fmt.Errorf("create service: %w", err)
	}
	return svc, nil
}

func (r *serviceRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Service, error) {
	q := db.QuerierFrom(ctx, r.pool)
	svc, err := scanService(q.QueryRow(ctx, `
		SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Service{}, ErrNotFound
		}
		return domain.Service{}, fmt.Errorf("get service: %w", err)
	}
	return svc, nil
}

func (r *serviceRepository) Update(ctx context.Context, svc domain.Service) (domain.Service, error) {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE services
		SET organization_id = $2, location_id = $3, name = $4, description = $5,
		    url = $6, email = $7, phone = $8, hours = $9, status = $10, updated_at = $11
		WHERE id = $1`,
		svc.ID, svc.OrganizationID, svc.LocationID,
		svc.Name, svc.Description, svc.URL, svc.Email,
		svc.Phone, svc.Hours, svc.Status, svc.UpdatedAt,
	)
	if err != nil {
		return domain.Service{}, fmt.Errorf("update service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Service{}, ErrNotFound
	}
	return svc, nil
}

func (r *serviceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *serviceRepository) Search(ctx context.Context, query string, limit int) ([]domain.Service, error) {
	if limit <= 0 {
		limit = 20
	}
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+serviceColumns+` FROM services
		WHERE name ILIKE '%' || $1 || '%' OR url ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search services: %w", err)
	}
	defer rows.Close()

	var results []domain.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		results = append(results, svc)
	}
	return results, rows.Err()
}

func (r *serviceRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]domain.Service, error) {
	return r.listWhere(ctx, `organization_id = $1`, organizationID)
}

func (r *serviceRepository) ListByLocation(ctx context.Context, locationID uuid.UUID) ([]domain.Service, error) {
	return r.listWhere(ctx, `location_id = $1`, locationID)
}

func (r *serviceRepository) listWhere(ctx context.Context, where string, arg any) ([]domain.Service, error) {
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+serviceColumns+` FROM services
		WHERE `+where+`
		ORDER BY name, id`, arg)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var results []domain.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		results = append(results, svc)
	}
	return results, rows.Err()
}
