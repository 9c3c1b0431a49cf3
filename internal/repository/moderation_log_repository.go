package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
)

// ModerationLogRepository appends and reads the moderation audit trail.
type ModerationLogRepository struct {
	db sqlx.ExtContext
}

// NewModerationLogRepository constructs the repository over a DB handle or a transaction.
func NewModerationLogRepository(db sqlx.ExtContext) *ModerationLogRepository {
	return &ModerationLogRepository{db: db}
}

// Create appends a log entry.
func (r *ModerationLogRepository) Create(ctx context.Context, entry *models.ModerationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO moderation_logs (id, moderator_id, target_type, target_id, action, reason, metadata, created_at)
	VALUES (:id, :moderator_id, :target_type, :target_id, :action, :reason, :metadata, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, entry); err != nil {
		return fmt.Errorf("create moderation log: %w", err)
	}
	return nil
}

// List returns log entries matching the filter, newest first.
func (r *ModerationLogRepository) List(ctx context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, error) {
	where, args := buildLogFilter(filter)
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, moderator_id, target_type, target_id, action, reason, metadata, created_at
	FROM moderation_logs` + where + fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", limit, offset)

	var entries []models.ModerationLog
	if err := sqlx.SelectContext(ctx, r.db, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list moderation logs: %w", err)
	}
	return entries, nil
}

// Count returns the number of log entries matching the filter.
func (r *ModerationLogRepository) Count(ctx context.Context, filter models.ModerationLogFilter) (int, error) {
	where, args := buildLogFilter(filter)
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(*) FROM moderation_logs`+where, args...); err != nil {
		return 0, fmt.Errorf("count moderation logs: %w", err)
	}
	return total, nil
}

func buildLogFilter(filter models.ModerationLogFilter) (string, []interface{}) {
	args := make([]interface{}, 0, 6)
	conditions := make([]string, 0, 6)
	add := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if filter.ModeratorID != "" {
		add("moderator_id = $%d", filter.ModeratorID)
	}
	if filter.TargetType != "" {
		add("target_type = $%d", filter.TargetType)
	}
	if filter.TargetID != "" {
		add("target_id = $%d", filter.TargetID)
	}
	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.Since != nil {
		add("created_at >= $%d", *filter.Since)
	}
	if filter.Until != nil {
		add("created_at < $%d", *filter.Until)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
