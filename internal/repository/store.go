package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
)

// ErrTxAborted signals that the surrounding transaction can no longer be used.
var ErrTxAborted = errors.New("transaction aborted")

var savepointName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ModerationTx is the unit of work used while resolving a report. Every call
// runs on the same database transaction.
type ModerationTx interface {
	GetReport(ctx context.Context, id string) (*models.Report, error)
	MarkResolved(ctx context.Context, params ResolveReportParams) (*models.Report, error)
	ResolveTarget(ctx context.Context, kind models.TargetType, id string) (*models.TargetDescriptor, error)
	HideContent(ctx context.Context, kind models.TargetType, id string) error
	DeleteContent(ctx context.Context, kind models.TargetType, id string) error
	CreateWarning(ctx context.Context, warning *models.Warning) error
	CreateSuspension(ctx context.Context, suspension *models.Suspension) error
	RefreshSuspendedFlags(ctx context.Context, userIDs []string) error
	CreateLog(ctx context.Context, entry *models.ModerationLog) error
	Savepoint(ctx context.Context, name string, fn func() error) error
}

// SanctionTx is the unit of work used by explicit lifts and the expiry sweep.
type SanctionTx interface {
	LiftSuspension(ctx context.Context, id, liftedBy string, liftedAt time.Time) (string, bool, error)
	LiftUserSuspensions(ctx context.Context, userID, liftedBy string, liftedAt time.Time) (int64, error)
	LockExpired(ctx context.Context, now time.Time, limit int) ([]models.ExpiredSuspension, error)
	DeactivateSuspensions(ctx context.Context, ids []string) (int64, error)
	RefreshSuspendedFlags(ctx context.Context, userIDs []string) error
	IsSuspended(ctx context.Context, userID string) (bool, error)
}

// ModerationStore opens transactions spanning the moderation tables.
type ModerationStore struct {
	db *sqlx.DB
}

// NewModerationStore constructs the store.
func NewModerationStore(db *sqlx.DB) *ModerationStore {
	return &ModerationStore{db: db}
}

// WithinTx runs fn in a single transaction, committing when fn returns nil.
func (s *ModerationStore) WithinTx(ctx context.Context, fn func(tx ModerationTx) error) error {
	return s.run(ctx, func(tx *sqlx.Tx) error {
		return fn(newModerationTx(tx))
	})
}

// WithinSanctionTx runs fn in a single transaction scoped to sanction tables.
func (s *ModerationStore) WithinSanctionTx(ctx context.Context, fn func(tx SanctionTx) error) error {
	return s.run(ctx, func(tx *sqlx.Tx) error {
		return fn(NewSanctionRepository(tx))
	})
}

func (s *ModerationStore) run(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type moderationTx struct {
	tx        *sqlx.Tx
	reports   *ReportRepository
	targets   *TargetRepository
	sanctions *SanctionRepository
	logs      *ModerationLogRepository
}

func newModerationTx(tx *sqlx.Tx) *moderationTx {
	return &moderationTx{
		tx:        tx,
		reports:   NewReportRepository(tx),
		targets:   NewTargetRepository(tx),
		sanctions: NewSanctionRepository(tx),
		logs:      NewModerationLogRepository(tx),
	}
}

func (t *moderationTx) GetReport(ctx context.Context, id string) (*models.Report, error) {
	return t.reports.GetByID(ctx, id)
}

func (t *moderationTx) MarkResolved(ctx context.Context, params ResolveReportParams) (*models.Report, error) {
	return t.reports.MarkResolved(ctx, params)
}

func (t *moderationTx) ResolveTarget(ctx context.Context, kind models.TargetType, id string) (*models.TargetDescriptor, error) {
	return t.targets.Resolve(ctx, kind, id)
}

func (t *moderationTx) HideContent(ctx context.Context, kind models.TargetType, id string) error {
	return t.targets.Hide(ctx, kind, id)
}

func (t *moderationTx) DeleteContent(ctx context.Context, kind models.TargetType, id string) error {
	return t.targets.Delete(ctx, kind, id)
}

func (t *moderationTx) CreateWarning(ctx context.Context, warning *models.Warning) error {
	return t.sanctions.CreateWarning(ctx, warning)
}

func (t *moderationTx) CreateSuspension(ctx context.Context, suspension *models.Suspension) error {
	return t.sanctions.CreateSuspension(ctx, suspension)
}

func (t *moderationTx) RefreshSuspendedFlags(ctx context.Context, userIDs []string) error {
	return t.sanctions.RefreshSuspendedFlags(ctx, userIDs)
}

func (t *moderationTx) CreateLog(ctx context.Context, entry *models.ModerationLog) error {
	return t.logs.Create(ctx, entry)
}

// Savepoint isolates fn so that its failure rolls back only its own writes.
// The error returned by fn is passed through untouched; failures of the
// savepoint statements themselves are wrapped with ErrTxAborted.
func (t *moderationTx) Savepoint(ctx context.Context, name string, fn func() error) error {
	if !savepointName.MatchString(name) {
		return fmt.Errorf("%w: invalid savepoint name %q", ErrTxAborted, name)
	}
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("%w: savepoint %s: %v", ErrTxAborted, name, err)
	}
	if fnErr := fn(); fnErr != nil {
		if _, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
			return fmt.Errorf("%w: rollback to savepoint %s: %v (after %v)", ErrTxAborted, name, err, fnErr)
		}
		return fnErr
	}
	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("%w: release savepoint %s: %v", ErrTxAborted, name, err)
	}
	return nil
}
