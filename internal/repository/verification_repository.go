package repository

import (
	"context"
	"fmt"

	"github.com/emeraldcitybeacon/conduit/internal/db"
	"github.com/emeraldcitybeacon/conduit/internal/domain"

	"github.com/google/uuid"
)

type verificationRepository struct {
	pool db.Querier
}

// NewVerificationRepository creates a pgx-backed verification log.
func NewVerificationRepository(pool db.Querier) VerificationRepository {
	return &verificationRepository{pool: pool}
}

func (r *verificationRepository) Append(ctx context.Context, event domain.VerificationEvent) (domain.VerificationEvent, error) {
	q := db.QuerierFrom(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO verification_events (id, entity_type, entity_id, field_path, method, note, verified_by, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.EntityType, event.EntityID, event.FieldPath,
		event.Method, event.Note, event.VerifiedBy, event.VerifiedAt,
	)
	if err != nil {
		return domain.VerificationEvent{}, fmt.Errorf("append verification event: %w", err)
	}
	return event, nil
}

func (r *verificationRepository) ListForEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID) ([]domain.VerificationEvent, error) {
	q := db.QuerierFrom(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT id, entity_type, entity_id, field_path, method, note, verified_by, verified_at
		FROM verification_events
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY verified_at DESC`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list verification events: %w", err)
	}
	defer rows.Close()

	var events []domain.VerificationEvent
	for rows.Next() {
		var event domain.VerificationEvent
		if err := rows.Scan(&event.ID, &event.EntityType, &event.EntityID, &event.FieldPath, &event.Method, &event.Note, &event.VerifiedBy, &event.VerifiedAt); err != nil {
			return nil, fmt.Errorf("scan verification event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
