package repository

import (
	"context"
	"fmt"

	"github.com/emeraldcitybeacon/conduit/internal/db"
)

type healthRepository struct {
	pool db.Querier
}

// NewHealthRepository creates a pgx-backed data-quality aggregator.
func NewHealthRepository(pool db.Querier) HealthRepository {
	return &healthRepository{pool: pool}
}

// Stats counts services missing phone or hours, services whose location
// lacks coordinates, and services not updated in the last 90 days.
func (r *healthRepository) Stats(ctx context.Context) (HealthStats, error) {
	q := db.QuerierFrom(ctx, r.pool)
	var stats HealthStats
	err := q.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE s.phone = ''),
			count(*) FILTER (WHERE s.hours = ''),
			count(*) FILTER (WHERE l.id IS NULL OR l.latitude IS NULL OR l.longitude IS NULL),
			count(*) FILTER (WHERE s.updated_at < now() - interval '90 days')
		FROM services s
		LEFT JOIN locations l ON l.id = s.location_id`,
	).Scan(&stats.TotalServices, &stats.NoPhone, &stats.NoHours, &stats.NotGeocoded, &stats.Stale)
	if err != nil {
		return HealthStats{}, fmt.Errorf("health stats: %w", err)
	}
	return stats, nil
}
