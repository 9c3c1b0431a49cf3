package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
)

func TestSanctionRepositoryCreateRecords(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSanctionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_warnings")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_suspensions")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	warning := &models.Warning{UserID: "user-1", ModeratorID: "mod-1", Severity: models.WarningModerate, Reason: "spam"}
	require.NoError(t, repo.CreateWarning(context.Background(), warning))
	require.NotEmpty(t, warning.ID)

	suspension := &models.Suspension{UserID: "user-1", ModeratorID: "mod-1", Type: models.SuspensionPermanent, Reason: "hate speech"}
	require.NoError(t, repo.CreateSuspension(context.Background(), suspension))
	require.True(t, suspension.IsActive)
	require.Nil(t, suspension.EndsAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSanctionRepositoryLiftSuspensionIsIdempotent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSanctionRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND is_active")).
		WithArgs("s-1", now, "mod-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND is_active")).
		WithArgs("s-1", now, "mod-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM user_suspensions WHERE id = $1")).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND is_active")).
		WithArgs("missing", now, "mod-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM user_suspensions WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	userID, lifted, err := repo.LiftSuspension(context.Background(), "s-1", "mod-1", now)
	require.NoError(t, err)
	require.True(t, lifted)
	require.Equal(t, "user-1", userID)

	userID, lifted, err = repo.LiftSuspension(context.Background(), "s-1", "mod-1", now)
	require.NoError(t, err)
	require.False(t, lifted)
	require.Equal(t, "user-1", userID)

	_, _, err = repo.LiftSuspension(context.Background(), "missing", "mod-1", now)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSanctionRepositoryLiftUserSuspensions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSanctionRepository(db)
	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("WHERE user_id = $1 AND is_active")).
		WithArgs("user-1", now, "mod-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	lifted, err := repo.LiftUserSuspensions(context.Background(), "user-1", "mod-1", now)
	require.NoError(t, err)
	require.Equal(t, int64(2), lifted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSanctionRepositorySweepStatements(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSanctionRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_active AND type = 'TEMPORARY' AND ends_at <= $1")).
		WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow("s-1", "user-1").AddRow("s-2", "user-2"))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ANY($1) AND is_active AND type = 'TEMPORARY'")).
		WithArgs("{\"s-1\",\"s-2\"}").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("WHERE s.user_id = u.id AND s.is_active AND s.type IN ('TEMPORARY', 'PERMANENT'))")).
		WithArgs("{\"user-1\",\"user-2\"}").
		WillReturnResult(sqlmock.NewResult(0, 2))

	expired, err := repo.LockExpired(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, expired, 2)

	deactivated, err := repo.DeactivateSuspensions(context.Background(), []string{"s-1", "s-2"})
	require.NoError(t, err)
	require.Equal(t, int64(2), deactivated)

	require.NoError(t, repo.RefreshSuspendedFlags(context.Background(), []string{"user-1", "user-2"}))

	deactivated, err = repo.DeactivateSuspensions(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, deactivated)
	require.NoError(t, repo.RefreshSuspendedFlags(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSanctionRepositoryHistoryQueries(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSanctionRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_warnings WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "moderator_id", "severity", "reason", "report_id", "created_at"}).
			AddRow("w-1", "user-1", "mod-1", "MODERATE", "spam", "r-1", now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_suspensions WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "moderator_id", "type", "reason", "is_active", "ends_at", "report_id", "lifted_at", "lifted_by", "created_at"}).
			AddRow("s-1", "user-1", "mod-1", "TEMPORARY", "abuse", true, now.Add(time.Hour), nil, nil, nil, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT is_suspended FROM users WHERE id = $1")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"is_suspended"}).AddRow(true))

	warnings, err := repo.ListWarnings(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, models.WarningModerate, warnings[0].Severity)

	suspensions, err := repo.ListSuspensions(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, suspensions, 1)
	require.NotNil(t, suspensions[0].EndsAt)

	suspended, err := repo.IsSuspended(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, suspended)
	require.NoError(t, mock.ExpectationsWereMet())
}
