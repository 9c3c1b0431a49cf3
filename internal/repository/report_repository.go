package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
)

// ErrDuplicateOpenReport is returned when the reporter already has an open report for the target.
var ErrDuplicateOpenReport = errors.New("open report already exists for reporter and target")

const reportColumns = `id, reporter_id, target_type, target_id, reason_code, description, status, priority,
       geo_weight, ai_urgency, claimed_by, claimed_at, resolved_by, resolved_at, moderator_notes,
       action_taken, created_at, updated_at`

// priorityRankSQL orders URGENT > HIGH > MEDIUM > LOW.
const priorityRankSQL = `CASE priority WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END`

// ReportRepository persists moderation reports.
type ReportRepository struct {
	db sqlx.ExtContext
}

// NewReportRepository constructs the repository over a DB handle or a transaction.
func NewReportRepository(db sqlx.ExtContext) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a PENDING report. The partial unique index on open reports is
// the reservation: when it rejects the row nothing is inserted and
// ErrDuplicateOpenReport is returned.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Status == "" {
		report.Status = models.ReportStatusPending
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = report.CreatedAt

	const query = `INSERT INTO moderation_reports
	(id, reporter_id, target_type, target_id, reason_code, description, status, priority, geo_weight, ai_urgency, created_at, updated_at)
	VALUES (:id, :reporter_id, :target_type, :target_id, :reason_code, :description, :status, :priority, :geo_weight, :ai_urgency, :created_at, :updated_at)
	ON CONFLICT (reporter_id, target_type, target_id) WHERE status IN ('PENDING', 'IN_REVIEW') DO NOTHING`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, report)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOpenReport
		}
		return fmt.Errorf("create report: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check report insert rows: %w", err)
	}
	if rows == 0 {
		return ErrDuplicateOpenReport
	}
	return nil
}

// HasOpen reports whether reporterID already has a PENDING or IN_REVIEW report on the target.
func (r *ReportRepository) HasOpen(ctx context.Context, reporterID string, kind models.TargetType, targetID string) (bool, error) {
	const query = `SELECT EXISTS (
	SELECT 1 FROM moderation_reports
	WHERE reporter_id = $1 AND target_type = $2 AND target_id = $3 AND status IN ('PENDING', 'IN_REVIEW'))`
	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, reporterID, kind, targetID); err != nil {
		return false, fmt.Errorf("check open report: %w", err)
	}
	return exists, nil
}

// GetByID fetches a report by identifier.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM moderation_reports WHERE id = $1`
	var report models.Report
	if err := sqlx.GetContext(ctx, r.db, &report, query, id); err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// List returns reports matching the filter ordered by priority tier, then age.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	where, args := buildReportFilter(filter)
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + reportColumns + ` FROM moderation_reports`)
	builder.WriteString(where)
	builder.WriteString(" ORDER BY " + priorityRankSQL + " DESC, created_at ASC, id ASC")

	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size))

	var reports []models.Report
	if err := sqlx.SelectContext(ctx, r.db, &reports, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// Count returns the number of reports matching the filter.
func (r *ReportRepository) Count(ctx context.Context, filter models.ReportFilter) (int, error) {
	where, args := buildReportFilter(filter)
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(*) FROM moderation_reports`+where, args...); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return total, nil
}

func buildReportFilter(filter models.ReportFilter) (string, []interface{}) {
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.TargetType != "" {
		args = append(args, filter.TargetType)
		conditions = append(conditions, fmt.Sprintf("target_type = $%d", len(args)))
	}
	if filter.ReporterID != "" {
		args = append(args, filter.ReporterID)
		conditions = append(conditions, fmt.Sprintf("reporter_id = $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// Claim moves a PENDING report to IN_REVIEW. It returns sql.ErrNoRows when the
// report is missing or no longer pending.
func (r *ReportRepository) Claim(ctx context.Context, id, moderatorID string, claimedAt time.Time) (*models.Report, error) {
	query := `UPDATE moderation_reports
	SET status = 'IN_REVIEW', claimed_by = $2, claimed_at = $3, updated_at = $3
	WHERE id = $1 AND status = 'PENDING'
	RETURNING ` + reportColumns
	var report models.Report
	if err := sqlx.GetContext(ctx, r.db, &report, query, id, moderatorID, claimedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("claim report: %w", err)
	}
	return &report, nil
}

// ResolveReportParams groups the resolution metadata written with the status change.
type ResolveReportParams struct {
	ID         string
	ResolvedBy string
	ResolvedAt time.Time
	Notes      *string
	Action     models.ActionCode
}

// MarkResolved is the compare-and-set transition to RESOLVED. It returns
// sql.ErrNoRows when no row changed, meaning the report is missing or was
// already resolved.
func (r *ReportRepository) MarkResolved(ctx context.Context, params ResolveReportParams) (*models.Report, error) {
	query := `UPDATE moderation_reports
	SET status = 'RESOLVED', resolved_by = $2, resolved_at = $3, moderator_notes = $4, action_taken = $5, updated_at = $3
	WHERE id = $1 AND status <> 'RESOLVED'
	RETURNING ` + reportColumns
	var report models.Report
	err := sqlx.GetContext(ctx, r.db, &report, query, params.ID, params.ResolvedBy, params.ResolvedAt, params.Notes, params.Action)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("mark report resolved: %w", err)
	}
	return &report, nil
}
