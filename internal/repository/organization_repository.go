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

type organizationRepository struct {
	pool db.Querier
}

// NewOrganizationRepository creates a pgx-backed organization repository.
func NewOrganizationRepository(pool db.Querier) OrganizationRepository {
	return &organizationRepository{pool: pool}
}

func (r *organizationRepository) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	q := db.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO organizations (id, name, description, email, url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		org.ID, org.Name, org.Description, org.Email, org.URL, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("create organization: %w", err)
	}
	return org, nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	q := db.QuerierFrom(ctx, r.pool)
	var org domain.Organization
	err := q.QueryRow(ctx, `
		SELECT id, name, description, email, url, created_at, updated_at
		FROM organizations WHERE id = $1`, id,
	).Scan(&org.ID, &org.Name, &org.Description, &org.Email, &org.URL, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Organization{}, ErrNotFound
		}
		return domain.Organization{}, fmt.Errorf("get organization: %w", err)
	}
	return org, nil
}

func (r *organizationRepository) Update(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE organizations
		SET name = $2, description = $3, email = $4, url = $5, updated_at = $6
		WHERE id = $1`,
		org.ID, org.Name, org.Description, org.Email, org.URL, org.UpdatedAt,
	)
	if err != nil {
		return domain.Organization{}, fmt.Errorf("update organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Organization{}, ErrNotFound
	}
	return org, nil
}

func (r *organizationRepository) SearchByName(ctx context.Context, query string, limit int) ([]domain.Organization, error) {
	if limit <= 0 {
		limit = 5
	}
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, name, description, email, url, created_at, updated_at
		FROM organizations
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search organizations: %w", err)
	}
	defer rows.Close()

	var results []domain.Organization
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Description, &org.Email, &org.URL, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		results = append(results, org)
	}
	return results, rows.Err()
}

func (r *organizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
