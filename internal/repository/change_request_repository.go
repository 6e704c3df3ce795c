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

type changeRequestRepository struct {
	pool db.Querier
}

// NewChangeRequestRepository creates a pgx-backed change request store.
func NewChangeRequestRepository(pool db.Querier) ChangeRequestRepository {
	return &changeRequestRepository{pool: pool}
}

const changeRequestColumns = `id, target_entity_type, target_entity_id, patch, note, status, submitted_by, submitted_at, reviewed_by, reviewed_at`

func scanChangeRequest(row pgx.Row) (domain.ChangeRequest, error) {
	var cr domain.ChangeRequest
	err := row.Scan(
		&cr.ID, &cr.TargetEntityType, &cr.TargetEntityID, &cr.Patch, &cr.Note,
		&cr.Status, &cr.SubmittedBy, &cr.SubmittedAt, &cr.ReviewedBy, &cr.ReviewedAt,
	)
	return cr, err
}

func (r *changeRequestRepository) Create(ctx context.Context, cr domain.ChangeRequest) (domain.ChangeRequest, error) {
	q := db.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO change_requests (`+changeRequestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		cr.ID, cr.TargetEntityType, cr.TargetEntityID, []byte(cr.Patch), cr.Note,
		cr.Status, cr.SubmittedBy, cr.SubmittedAt, cr.ReviewedBy, cr.ReviewedAt,
	)
	if err != nil {
		return domain.ChangeRequest{}, fmt.Errorf("create change request: %w", err)
	}
	return cr, nil
}

func (r *changeRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ChangeRequest, error) {
	q := db.QuerierFrom(ctx, r.pool)
	cr, err := scanChangeRequest(q.QueryRow(ctx, `
		SELECT `+changeRequestColumns+` FROM change_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ChangeRequest{}, ErrNotFound
		}
		return domain.ChangeRequest{}, fmt.Errorf("get change request: %w", err)
	}
	return cr, nil
}

func (r *changeRequestRepository) ListPending(ctx context.Context) ([]domain.ChangeRequest, error) {
	return r.list(ctx, `
		SELECT `+changeRequestColumns+` FROM change_requests
		WHERE status = 'pending'
		ORDER BY submitted_at`)
}

func (r *changeRequestRepository) ListBySubmitter(ctx context.Context, submittedBy uuid.UUID) ([]domain.ChangeRequest, error) {
	return r.list(ctx, `
		SELECT `+changeRequestColumns+` FROM change_requests
		WHERE submitted_by = $1
		ORDER BY submitted_at DESC`, submittedBy)
}

func (r *changeRequestRepository) list(ctx context.Context, sql string, args ...any) ([]domain.ChangeRequest, error) {
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.ChangeRequest
	for rows.Next() {
		cr, err := scanChangeRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan change request: %w", err)
		}
		requests = append(requests, cr)
	}
	return requests, rows.Err()
}

func (r *changeRequestRepository) Update(ctx context.Context, cr domain.ChangeRequest) (domain.ChangeRequest, error) {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE change_requests
		SET status = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $1`,
		cr.ID, cr.Status, cr.ReviewedBy, cr.ReviewedAt,
	)
	if err != nil {
		return domain.ChangeRequest{}, fmt.Errorf("update change request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ChangeRequest{}, ErrNotFound
	}
	return cr, nil
}
