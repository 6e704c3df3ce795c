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

type draftRepository struct {
	pool db.Querier
}

// NewDraftRepository creates a pgx-backed draft store.
func NewDraftRepository(pool db.Querier) DraftRepository {
	return &draftRepository{pool: pool}
}

func (r *draftRepository) Create(ctx context.Context, draft domain.DraftResource) (domain.DraftResource, error) {
	payloadJSON, err := json.Marshal(draft.Payload)
	if err != nil {
		return domain.DraftResource{}, fmt.Errorf("marshal draft payload: %w", err)
	}
	q := db.QuerierFrom(ctx, r.pool)
	_, err = q.Exec(ctx, `
		INSERT INTO draft_resources (id, payload, status, created_by, created_at, review_note, reviewed_by, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		draft.ID, payloadJSON, draft.Status, draft.CreatedBy, draft.CreatedAt,
		draft.ReviewNote, draft.ReviewedBy, draft.ReviewedAt,
	)
	if err != nil {
		return domain.DraftResource{}, fmt.Errorf("create draft: %w", err)
	}
	return draft, nil
}

func scanDraft(row pgx.Row) (domain.DraftResource, error) {
	var draft domain.DraftResource
	var payloadJSON []byte
	err := row.Scan(&draft.ID, &payloadJSON, &draft.Status, &draft.CreatedBy, &draft.CreatedAt,
		&draft.ReviewNote, &draft.ReviewedBy, &draft.ReviewedAt)
	if err != nil {
		return domain.DraftResource{}, err
	}
	if err := json.Unmarshal(payloadJSON, &draft.Payload); err != nil {
		return domain.DraftResource{}, fmt.Errorf("unmarshal draft payload: %w", err)
	}
	return draft, nil
}

func (r *draftRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.DraftResource, error) {
	q := db.QuerierFrom(ctx, r.pool)
	draft, err := scanDraft(q.QueryRow(ctx, `
		SELECT id, payload, status, created_by, created_at, review_note, reviewed_by, reviewed_at
		FROM draft_resources WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DraftResource{}, ErrNotFound
		}
		return domain.DraftResource{}, fmt.Errorf("get draft: %w", err)
	}
	return draft, nil
}

func (r *draftRepository) ListByCreator(ctx context.Context, createdBy uuid.UUID) ([]domain.DraftResource, error) {
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, payload, status, created_by, created_at, review_note, reviewed_by, reviewed_at
		FROM draft_resources
		WHERE created_by = $1
		ORDER BY created_at DESC`, createdBy)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []domain.DraftResource
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		drafts = append(drafts, draft)
	}
	return drafts, rows.Err()
}

func (r *draftRepository) Update(ctx context.Context, draft domain.DraftResource) (domain.DraftResource, error) {
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE draft_resources
		SET status = $2, review_note = $3, reviewed_by = $4, reviewed_at = $5
		WHERE id = $1`,
		draft.ID, draft.Status, draft.ReviewNote, draft.ReviewedBy, draft.ReviewedAt,
	)
	if err != nil {
		return domain.DraftResource{}, fmt.Errorf("update draft: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.DraftResource{}, ErrNotFound
	}
	return draft, nil
}
