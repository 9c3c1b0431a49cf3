package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
	"github.com/noah-isme/trust-enforcement-api/internal/repository"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
)

type openReportStore interface {
	HasOpen(ctx context.Context, reporterID string, kind models.TargetType, targetID string) (bool, error)
	Create(ctx context.Context, report *models.Report) error
}

// DuplicateGuard keeps at most one open report per reporter and target.
// Check is an early exit; Reserve is authoritative because the insert itself
// is rejected by the partial unique index when a concurrent submission won.
type DuplicateGuard struct {
	reports openReportStore
	logger  *zap.Logger
}

// NewDuplicateGuard constructs the guard.
func NewDuplicateGuard(reports openReportStore, logger *zap.Logger) *DuplicateGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuplicateGuard{reports: reports, logger: logger}
}

// Check returns ErrAlreadyReported when an open report already exists.
func (g *DuplicateGuard) Check(ctx context.Context, reporterID string, kind models.TargetType, targetID string) error {
	open, err := g.reports.HasOpen(ctx, reporterID, kind, targetID)
	if err != nil {
		// Reserve still enforces uniqueness.
		g.logger.Warn("duplicate pre-check failed", zap.String("reporter_id", reporterID), zap.Error(err))
		return nil
	}
	if open {
		return appErrors.ErrAlreadyReported
	}
	return nil
}

// Reserve inserts the report, translating a lost race into ErrAlreadyReported.
func (g *DuplicateGuard) Reserve(ctx context.Context, report *models.Report) error {
	if err := g.reports.Create(ctx, report); err != nil {
		if errors.Is(err, repository.ErrDuplicateOpenReport) {
			return appErrors.ErrAlreadyReported
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}
	return nil
}
