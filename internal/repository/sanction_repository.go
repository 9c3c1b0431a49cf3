package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
)

const suspensionColumns = `id, user_id, moderator_id, type, reason, is_active, ends_at, report_id, lifted_at, lifted_by, created_at`

// SanctionRepository persists warnings and suspensions and maintains the
// users.is_suspended projection.
type SanctionRepository struct {
	db sqlx.ExtContext
}

// NewSanctionRepository constructs the repository over a DB handle or a transaction.
func NewSanctionRepository(db sqlx.ExtContext) *SanctionRepository {
	return &SanctionRepository{db: db}
}

// CreateWarning inserts an immutable warning row.
func (r *SanctionRepository) CreateWarning(ctx context.Context, warning *models.Warning) error {
	if warning.ID == "" {
		warning.ID = uuid.NewString()
	}
	if warning.CreatedAt.IsZero() {
		warning.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO user_warnings (id, user_id, moderator_id, severity, reason, report_id, created_at)
	VALUES (:id, :user_id, :moderator_id, :severity, :reason, :report_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, warning); err != nil {
		return fmt.Errorf("create warning: %w", err)
	}
	return nil
}

// CreateSuspension inserts an active suspension row.
func (r *SanctionRepository) CreateSuspension(ctx context.Context, suspension *models.Suspension) error {
	if suspension.ID == "" {
		suspension.ID = uuid.NewString()
	}
	if suspension.CreatedAt.IsZero() {
		suspension.CreatedAt = time.Now().UTC()
	}
	suspension.IsActive = true
	const query = `INSERT INTO user_suspensions (id, user_id, moderator_id, type, reason, is_active, ends_at, report_id, created_at)
	VALUES (:id, :user_id, :moderator_id, :type, :reason, :is_active, :ends_at, :report_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, suspension); err != nil {
		return fmt.Errorf("create suspension: %w", err)
	}
	return nil
}

// LiftSuspension deactivates one suspension. Lifting an inactive suspension is
// a no-op reported as lifted=false; a missing suspension yields sql.ErrNoRows.
func (r *SanctionRepository) LiftSuspension(ctx context.Context, id, liftedBy string, liftedAt time.Time) (string, bool, error) {
	const query = `UPDATE user_suspensions SET is_active = FALSE, lifted_at = $2, lifted_by = $3
	WHERE id = $1 AND is_active
	RETURNING user_id`
	var userID string
	err := sqlx.GetContext(ctx, r.db, &userID, query, id, liftedAt, liftedBy)
	if err == nil {
		return userID, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("lift suspension: %w", err)
	}
	if err := sqlx.GetContext(ctx, r.db, &userID, `SELECT user_id FROM user_suspensions WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, sql.ErrNoRows
		}
		return "", false, fmt.Errorf("lookup suspension: %w", err)
	}
	return userID, false, nil
}

// LiftUserSuspensions deactivates every active suspension of a user.
func (r *SanctionRepository) LiftUserSuspensions(ctx context.Context, userID, liftedBy string, liftedAt time.Time) (int64, error) {
	const query = `UPDATE user_suspensions SET is_active = FALSE, lifted_at = $2, lifted_by = $3
	WHERE user_id = $1 AND is_active`
	result, err := r.db.ExecContext(ctx, query, userID, liftedAt, liftedBy)
	if err != nil {
		return 0, fmt.Errorf("lift user suspensions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check lifted rows: %w", err)
	}
	return rows, nil
}

// LockExpired selects up to limit expired TEMPORARY suspensions, skipping rows
// locked by concurrent lifts or sweeps. Must run inside a transaction.
func (r *SanctionRepository) LockExpired(ctx context.Context, now time.Time, limit int) ([]models.ExpiredSuspension, error) {
	const query = `SELECT id, user_id FROM user_suspensions
	WHERE is_active AND type = 'TEMPORARY' AND ends_at <= $1
	ORDER BY ends_at ASC
	LIMIT $2
	FOR UPDATE SKIP LOCKED`
	var expired []models.ExpiredSuspension
	if err := sqlx.SelectContext(ctx, r.db, &expired, query, now, limit); err != nil {
		return nil, fmt.Errorf("select expired suspensions: %w", err)
	}
	return expired, nil
}

// DeactivateSuspensions marks the given TEMPORARY suspensions inactive. Rows
// already inactive are left untouched.
func (r *SanctionRepository) DeactivateSuspensions(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE user_suspensions SET is_active = FALSE
	WHERE id = ANY($1) AND is_active AND type = 'TEMPORARY'`
	result, err := r.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("deactivate suspensions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check deactivated rows: %w", err)
	}
	return rows, nil
}

// RefreshSuspendedFlags recomputes users.is_suspended from the active full
// restrictions of each user.
func (r *SanctionRepository) RefreshSuspendedFlags(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	const query = `UPDATE users u SET is_suspended = EXISTS (
		SELECT 1 FROM user_suspensions s
		WHERE s.user_id = u.id AND s.is_active AND s.type IN ('TEMPORARY', 'PERMANENT'))
	WHERE u.id = ANY($1)`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(userIDs)); err != nil {
		return fmt.Errorf("refresh suspended flags: %w", err)
	}
	return nil
}

// IsSuspended reads the projected flag of a user.
func (r *SanctionRepository) IsSuspended(ctx context.Context, userID string) (bool, error) {
	var suspended bool
	if err := sqlx.GetContext(ctx, r.db, &suspended, `SELECT is_suspended FROM users WHERE id = $1`, userID); err != nil {
		return false, fmt.Errorf("get suspended flag: %w", err)
	}
	return suspended, nil
}

// ListWarnings returns a user's warnings, newest first.
func (r *SanctionRepository) ListWarnings(ctx context.Context, userID string) ([]models.Warning, error) {
	const query = `SELECT id, user_id, moderator_id, severity, reason, report_id, created_at
	FROM user_warnings WHERE user_id = $1 ORDER BY created_at DESC`
	var warnings []models.Warning
	if err := sqlx.SelectContext(ctx, r.db, &warnings, query, userID); err != nil {
		return nil, fmt.Errorf("list warnings: %w", err)
	}
	return warnings, nil
}

// ListSuspensions returns a user's suspensions, newest first.
func (r *SanctionRepository) ListSuspensions(ctx context.Context, userID string) ([]models.Suspension, error) {
	query := `SELECT ` + suspensionColumns + ` FROM user_suspensions WHERE user_id = $1 ORDER BY created_at DESC`
	var suspensions []models.Suspension
	if err := sqlx.SelectContext(ctx, r.db, &suspensions, query, userID); err != nil {
		return nil, fmt.Errorf("list suspensions: %w", err)
	}
	return suspensions, nil
}
