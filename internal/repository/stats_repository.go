package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
)

// StatsRepository aggregates queue health counters.
type StatsRepository struct {
	db sqlx.QueryerContext
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db sqlx.QueryerContext) *StatsRepository {
	return &StatsRepository{db: db}
}

// Snapshot computes every counter in one statement so they share a point in time.
func (r *StatsRepository) Snapshot(ctx context.Context) (*models.StatsSnapshot, error) {
	const query = `SELECT
	COUNT(*) FILTER (WHERE status = 'PENDING') AS pending_count,
	COUNT(*) FILTER (WHERE status = 'PENDING' AND priority = 'URGENT') AS urgent_pending_count,
	COUNT(*) FILTER (WHERE status = 'RESOLVED' AND resolved_at >= NOW() - INTERVAL '24 hours') AS resolved_last_24h,
	COUNT(DISTINCT target_type || ':' || target_id) FILTER (WHERE status IN ('PENDING', 'IN_REVIEW')) AS active_flag_count,
	(SELECT COUNT(*) FROM users WHERE is_suspended) AS suspended_user_count,
	COUNT(*) AS total_report_count,
	NOW() AS generated_at
FROM moderation_reports`
	var snapshot models.StatsSnapshot
	if err := sqlx.GetContext(ctx, r.db, &snapshot, query); err != nil {
		return nil, fmt.Errorf("stats snapshot: %w", err)
	}
	return &snapshot, nil
}
