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

type bulkOperationRepository struct {
	pool db.Querier
}

// NewBulkOperationRepository creates a pgx-backed bulk operation store.
func NewBulkOperationRepository(pool db.Querier) BulkOperationRepository {
	return &bulkOperationRepository{pool: pool}
}

const bulkOperationColumns = `id, scope, shelf_id, targets, patch, preview, inverses, status, undo_token, created_by, created_at, committed_at, undone_at`

func (r *bulkOperationRepository) Create(ctx context.Context, op domain.BulkOperation) (domain.BulkOperation, error) {
	targetsJSON, previewJSON, err := marshalBulkDocs(op)
	if err != nil {
		return domain.BulkOperation{}, err
	}
	q := db.QuerierFrom(ctx, r.pool)
	_, err = q.Exec(ctx, `
		INSERT INTO bulk_operations (`+bulkOperationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		op.ID, op.Scope, op.ShelfID, targetsJSON, []byte(op.Patch), previewJSON,
		[]byte(op.Inverses), op.Status, op.UndoToken, op.CreatedBy, op.CreatedAt,
		op.CommittedAt, op.UndoneAt,
	)
	if err != nil {
		return domain.BulkOperation{}, fmt.Errorf("create bulk operation: %w", err)
	}
	return op, nil
}

func (r *bulkOperationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.BulkOperation, error) {
	q := db.QuerierFrom(ctx, r.pool)
	var op domain.BulkOperation
	var targetsJSON, previewJSON, inversesJSON, patchJSON []byte
	err := q.QueryRow(ctx, `
		SELECT `+bulkOperationColumns+` FROM bulk_operations WHERE id = $1`, id,
	).Scan(
		&op.ID, &op.Scope, &op.ShelfID, &targetsJSON, &patchJSON, &previewJSON,
		&inversesJSON, &op.Status, &op.UndoToken, &op.CreatedBy, &op.CreatedAt,
		&op.CommittedAt, &op.UndoneAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BulkOperation{}, ErrNotFound
		}
		return domain.BulkOperation{}, fmt.Errorf("get bulk operation: %w", err)
	}
	op.Patch = patchJSON
	op.Inverses = inversesJSON
	if err := json.Unmarshal(targetsJSON, &op.Targets); err != nil {
		return domain.BulkOperation{}, fmt.Errorf("unmarshal targets: %w", err)
	}
	if err := json.Unmarshal(previewJSON, &op.Preview); err != nil {
		return domain.BulkOperation{}, fmt.Errorf("unmarshal preview: %w", err)
	}
	return op, nil
}

func (r *bulkOperationRepository) Update(ctx context.Context, op domain.BulkOperation) (domain.BulkOperation, error) {
	_, previewJSON, err := marshalBulkDocs(op)
	if err != nil {
		return domain.BulkOperation{}, err
	}
	q := db.QuerierFrom(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE bulk_operations
		SET preview = $2, inverses = $3, status = $4, undo_token = $5, committed_at = $6, undone_at = $7
		WHERE id = $1`,
		op.ID, previewJSON, []byte(op.Inverses), op.Status, op.UndoToken, op.CommittedAt, op.UndoneAt,
	)
	if err != nil {
		return domain.BulkOperation{}, fmt.Errorf("update bulk operation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.BulkOperation{}, ErrNotFound
	}
	return op, nil
}

func marshalBulkDocs(op domain.BulkOperation) (targetsJSON, previewJSON []byte, err error) {
	targetsJSON, err = json.Marshal(op.Targets)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal targets: %w", err)
	}
	previewJSON, err = json.Marshal(op.Preview)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal preview: %w", err)
	}
	return targetsJSON, previewJSON, nil
}
