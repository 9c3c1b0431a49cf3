package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/trust-enforcement-api/internal/dto"
	"github.com/noah-isme/trust-enforcement-api/internal/models"
	"github.com/noah-isme/trust-enforcement-api/internal/repository"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
)

type sanctionStore interface {
	WithinSanctionTx(ctx context.Context, fn func(tx repository.SanctionTx) error) error
}

type sanctionReader interface {
	IsSuspended(ctx context.Context, userID string) (bool, error)
	ListWarnings(ctx context.Context, userID string) ([]models.Warning, error)
	ListSuspensions(ctx context.Context, userID string) ([]models.Suspension, error)
}

// SanctionService handles explicit lifts and sanction history reads.
type SanctionService struct {
	store  sanctionStore
	reader sanctionReader
	stats  statsInvalidator
	logger *zap.Logger
	now    func() time.Time
}

// NewSanctionService constructs the service. stats may be nil.
func NewSanctionService(store sanctionStore, reader sanctionReader, stats statsInvalidator, logger *zap.Logger) *SanctionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SanctionService{store: store, reader: reader, stats: stats, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// LiftSuspension deactivates one suspension. Lifting an inactive suspension
// is a no-op that still reports the user's current flag.
func (s *SanctionService) LiftSuspension(ctx context.Context, suspensionID, moderatorID string) (*dto.LiftSuspensionsResponse, error) {
	var resp dto.LiftSuspensionsResponse
	err := s.store.WithinSanctionTx(ctx, func(tx repository.SanctionTx) error {
		userID, lifted, err := tx.LiftSuspension(ctx, suspensionID, moderatorID, s.now())
		if err != nil {
			return err
		}
		if err := tx.RefreshSuspendedFlags(ctx, []string{userID}); err != nil {
			return err
		}
		suspended, err := tx.IsSuspended(ctx, userID)
		if err != nil {
			return err
		}
		resp = dto.LiftSuspensionsResponse{UserID: userID, IsSuspended: suspended}
		if lifted {
			resp.Lifted = 1
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSuspensionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lift suspension")
	}
	if resp.Lifted > 0 && s.stats != nil {
		s.stats.Invalidate(ctx)
	}
	s.logger.Info("suspension lifted",
		zap.String("suspension_id", suspensionID),
		zap.String("user_id", resp.UserID),
		zap.Int("lifted", resp.Lifted),
	)
	return &resp, nil
}

// LiftUserSuspensions deactivates every active suspension of a user.
func (s *SanctionService) LiftUserSuspensions(ctx context.Context, userID, moderatorID string) (*dto.LiftSuspensionsResponse, error) {
	resp := dto.LiftSuspensionsResponse{UserID: userID}
	err := s.store.WithinSanctionTx(ctx, func(tx repository.SanctionTx) error {
		lifted, err := tx.LiftUserSuspensions(ctx, userID, moderatorID, s.now())
		if err != nil {
			return err
		}
		if err := tx.RefreshSuspendedFlags(ctx, []string{userID}); err != nil {
			return err
		}
		suspended, err := tx.IsSuspended(ctx, userID)
		if err != nil {
			return err
		}
		resp.Lifted = int(lifted)
		resp.IsSuspended = suspended
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lift suspensions")
	}
	if resp.Lifted > 0 && s.stats != nil {
		s.stats.Invalidate(ctx)
	}
	s.logger.Info("user suspensions lifted", zap.String("user_id", userID), zap.Int("lifted", resp.Lifted))
	return &resp, nil
}

// History returns a user's warnings and suspensions.
func (s *SanctionService) History(ctx context.Context, userID string) (*models.SanctionHistory, error) {
	suspended, err := s.reader.IsSuspended(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	warnings, err := s.reader.ListWarnings(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list warnings")
	}
	suspensions, err := s.reader.ListSuspensions(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list suspensions")
	}
	if warnings == nil {
		warnings = []models.Warning{}
	}
	if suspensions == nil {
		suspensions = []models.Suspension{}
	}
	return &models.SanctionHistory{
		UserID:       userID,
		IsSuspended:  suspended,
		WarningCount: len(warnings),
		Warnings:     warnings,
		Suspensions:  suspensions,
	}, nil
}

// SweeperConfig parameterizes the expiry sweep.
type SweeperConfig struct {
	Interval     time.Duration
	BatchSize    int
	BatchTimeout time.Duration
}

// SanctionSweeper periodically deactivates TEMPORARY suspensions whose end
// time has passed. PERMANENT suspensions are never touched.
type SanctionSweeper struct {
	store   sanctionStore
	stats   statsInvalidator
	metrics *MetricsService
	logger  *zap.Logger
	cfg     SweeperConfig
	now     func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSanctionSweeper constructs the sweeper.
func NewSanctionSweeper(store sanctionStore, stats statsInvalidator, metrics *MetricsService, cfg SweeperConfig, logger *zap.Logger) *SanctionSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SanctionSweeper{store: store, stats: stats, metrics: metrics, logger: logger, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Start runs the sweep on every tick until ctx is cancelled or Stop is called.
func (s *SanctionSweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		s.logger.Info("sanction sweeper started", zap.Duration("interval", s.cfg.Interval), zap.Int("batch_size", s.cfg.BatchSize))
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("sanction sweeper stopped")
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
					s.logger.Warn("sanction sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *SanctionSweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunOnce sweeps expired suspensions page by page and returns how many were
// deactivated. Each page commits on its own.
func (s *SanctionSweeper) RunOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		expired, err := s.sweepPage(ctx)
		total += expired
		if err != nil {
			s.metrics.RecordSweep(total, err)
			s.invalidateStats(ctx, total)
			return total, err
		}
		if expired < s.cfg.BatchSize {
			break
		}
	}
	s.metrics.RecordSweep(total, nil)
	s.invalidateStats(ctx, total)
	if total > 0 {
		s.logger.Info("expired suspensions deactivated", zap.Int("count", total))
	}
	return total, nil
}

// invalidateStats drops the cached snapshot once committed pages changed rows.
func (s *SanctionSweeper) invalidateStats(ctx context.Context, changed int) {
	if changed == 0 || s.stats == nil {
		return
	}
	s.stats.Invalidate(ctx)
}

func (s *SanctionSweeper) sweepPage(ctx context.Context) (int, error) {
	pageCtx, cancel := context.WithTimeout(ctx, s.cfg.BatchTimeout)
	defer cancel()

	var deactivated int
	err := s.store.WithinSanctionTx(pageCtx, func(tx repository.SanctionTx) error {
		expired, err := tx.LockExpired(pageCtx, s.now(), s.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}
		ids := lo.Map(expired, func(item models.ExpiredSuspension, _ int) string { return item.ID })
		users := lo.Uniq(lo.Map(expired, func(item models.ExpiredSuspension, _ int) string { return item.UserID }))
		if _, err := tx.DeactivateSuspensions(pageCtx, ids); err != nil {
			return err
		}
		if err := tx.RefreshSuspendedFlags(pageCtx, users); err != nil {
			return err
		}
		deactivated = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deactivated, nil
}
