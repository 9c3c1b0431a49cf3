package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/trust-enforcement-api/internal/dto"
	"github.com/noah-isme/trust-enforcement-api/internal/models"
	"github.com/noah-isme/trust-enforcement-api/internal/repository"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
)

type reportStore interface {
	HasOpen(ctx context.Context, reporterID string, kind models.TargetType, targetID string) (bool, error)
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
	Count(ctx context.Context, filter models.ReportFilter) (int, error)
	Claim(ctx context.Context, id, moderatorID string, claimedAt time.Time) (*models.Report, error)
}

type resolutionStore interface {
	WithinTx(ctx context.Context, fn func(tx repository.ModerationTx) error) error
}

type signalSource interface {
	Get(ctx context.Context, kind models.TargetType, id string) (models.ScoringSignals, error)
}

type targetResolver interface {
	Resolve(ctx context.Context, kind models.TargetType, id string) (*models.TargetDescriptor, error)
}

type notificationDispatcher interface {
	Dispatch(notification models.Notification)
}

type statsInvalidator interface {
	Invalidate(ctx context.Context)
}

// ReportServiceConfig tunes queue reads.
type ReportServiceConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// ReportServiceParams groups the collaborators of ReportService.
type ReportServiceParams struct {
	Reports    reportStore
	Store      resolutionStore
	Resolver   targetResolver
	Signals    signalSource
	Scorer     *PriorityScorer
	Dispatcher *ActionDispatcher
	Notifier   notificationDispatcher
	Stats      statsInvalidator
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
	Config     ReportServiceConfig
}

// ReportService owns the report lifecycle: submission, queue reads, claiming
// and resolution.
type ReportService struct {
	reports    reportStore
	store      resolutionStore
	resolver   targetResolver
	guard      *DuplicateGuard
	signals    signalSource
	scorer     *PriorityScorer
	dispatcher *ActionDispatcher
	notifier   notificationDispatcher
	stats      statsInvalidator
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ReportServiceConfig
	now        func() time.Time
}

// NewReportService constructs the service.
func NewReportService(params ReportServiceParams) *ReportService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	registerModerationValidations(params.Validator)
	if params.Scorer == nil {
		params.Scorer = NewPriorityScorer(nil, 0)
	}
	if params.Dispatcher == nil {
		params.Dispatcher = NewActionDispatcher(0, params.Logger)
	}
	if params.Config.DefaultPageSize <= 0 {
		params.Config.DefaultPageSize = 20
	}
	if params.Config.MaxPageSize <= 0 {
		params.Config.MaxPageSize = 100
	}
	return &ReportService{
		reports:    params.Reports,
		store:      params.Store,
		resolver:   params.Resolver,
		guard:      NewDuplicateGuard(params.Reports, params.Logger),
		signals:    params.Signals,
		scorer:     params.Scorer,
		dispatcher: params.Dispatcher,
		notifier:   params.Notifier,
		stats:      params.Stats,
		metrics:    params.Metrics,
		validator:  params.Validator,
		logger:     params.Logger,
		cfg:        params.Config,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates a report, checks for duplicates, resolves the target,
// scores it and places it in the queue as PENDING.
func (s *ReportService) Submit(ctx context.Context, req dto.SubmitReportRequest, reporterID string) (*models.Report, error) {
	report, err := s.submit(ctx, req, reporterID)
	if err != nil {
		s.metrics.RecordReportRejected(appErrors.FromError(err).Code)
		return nil, err
	}
	s.metrics.RecordReportSubmitted(report)
	return report, nil
}

func (s *ReportService) submit(ctx context.Context, req dto.SubmitReportRequest, reporterID string) (*models.Report, error) {
	req.TargetID = strings.TrimSpace(req.TargetID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if reporterID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.guard.Check(ctx, reporterID, req.TargetType, req.TargetID); err != nil {
		return nil, err
	}
	if _, err := s.resolver.Resolve(ctx, req.TargetType, req.TargetID); err != nil {
		return nil, err
	}

	signals := s.loadSignals(ctx, req.TargetType, req.TargetID)
	report := &models.Report{
		ReporterID:  reporterID,
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		ReasonCode:  req.ReasonCode,
		Description: normalizeOptional(req.Description),
		Status:      models.ReportStatusPending,
		Priority:    s.scorer.Score(req.ReasonCode, req.TargetType, signals),
		GeoWeight:   signals.GeoWeight,
		AIUrgency:   signals.AIUrgency,
		CreatedAt:   s.now(),
	}
	if err := s.guard.Reserve(ctx, report); err != nil {
		return nil, err
	}
	s.logger.Info("report submitted",
		zap.String("report_id", report.ID),
		zap.String("target_type", string(report.TargetType)),
		zap.String("priority", string(report.Priority)),
	)
	return report, nil
}

func (s *ReportService) loadSignals(ctx context.Context, kind models.TargetType, id string) models.ScoringSignals {
	if s.signals == nil {
		return models.ScoringSignals{}
	}
	signals, err := s.signals.Get(ctx, kind, id)
	if err != nil {
		s.logger.Warn("scoring signals unavailable", zap.String("target_type", string(kind)), zap.String("target_id", id), zap.Error(err))
		return models.ScoringSignals{}
	}
	return signals
}

// List returns the moderation queue. Without a status filter only open
// reports are returned.
func (s *ReportService) List(ctx context.Context, query dto.ReportQuery) ([]models.Report, *models.Pagination, error) {
	filter := models.ReportFilter{
		Status:     query.Status,
		Priority:   query.Priority,
		TargetType: query.TargetType,
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	if len(filter.Status) == 0 {
		filter.Status = []models.ReportStatus{models.ReportStatusPending, models.ReportStatusInReview}
	}
	for _, status := range filter.Status {
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
		}
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown priority %q", filter.Priority))
	}
	if filter.TargetType != "" && !filter.TargetType.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown target type %q", filter.TargetType))
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = s.cfg.DefaultPageSize
	}
	if filter.PageSize > s.cfg.MaxPageSize {
		filter.PageSize = s.cfg.MaxPageSize
	}

	reports, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	total, err := s.reports.Count(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count reports")
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return reports, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a report by id.
func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrReportNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	return report, nil
}

// Claim moves a PENDING report to IN_REVIEW for the moderator.
func (s *ReportService) Claim(ctx context.Context, id, moderatorID string) (*models.Report, error) {
	report, err := s.reports.Claim(ctx, id, moderatorID, s.now())
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim report")
	}
	if _, getErr := s.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, appErrors.ErrAlreadyClaimed
}

// Resolve applies a moderator decision exactly once. The status change, the
// decision's effects and the log entry commit together; a repeated call
// returns the resolved report with AlreadyResolved set and changes nothing.
func (s *ReportService) Resolve(ctx context.Context, id string, req dto.ResolveReportRequest, moderatorID string) (*dto.ResolveReportResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolution payload")
	}
	if req.DurationHours != nil && req.Action != models.ActionUserSuspended {
		return nil, appErrors.Clone(appErrors.ErrValidation, "durationHours only applies to USER_SUSPENDED")
	}
	notes := normalizeOptional(req.Notes)

	var resp *dto.ResolveReportResponse
	start := time.Now()
	err := s.store.WithinTx(ctx, func(tx repository.ModerationTx) error {
		report, err := tx.MarkResolved(ctx, repository.ResolveReportParams{
			ID:         id,
			ResolvedBy: moderatorID,
			ResolvedAt: s.now(),
			Notes:      notes,
			Action:     req.Action,
		})
		if errors.Is(err, sql.ErrNoRows) {
			existing, getErr := tx.GetReport(ctx, id)
			if errors.Is(getErr, sql.ErrNoRows) {
				return appErrors.ErrReportNotFound
			}
			if getErr != nil {
				return appErrors.Wrap(getErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
			}
			resp = &dto.ResolveReportResponse{Report: existing, AlreadyResolved: true}
			return nil
		}
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve report")
		}

		decision := Decision{
			Action:      req.Action,
			TargetType:  report.TargetType,
			TargetID:    report.TargetID,
			ModeratorID: moderatorID,
			Reason:      decisionReason(report.ReasonCode, notes),
			ReportID:    report.ID,
		}
		if req.DurationHours != nil {
			decision.Duration = time.Duration(*req.DurationHours) * time.Hour
		}
		outcome, err := s.dispatcher.Execute(ctx, tx, decision)
		if err != nil {
			return err
		}
		resp = &dto.ResolveReportResponse{
			Report:     report,
			LogID:      outcome.LogID,
			SanctionID: outcome.SanctionID,
			Effects:    outcome.Effects,
			Partial:    outcome.Partial,
		}
		return nil
	})
	s.metrics.ObserveDBOperation("resolve_report", time.Since(start))
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve report")
	}
	if resp.AlreadyResolved {
		s.logger.Info("report already resolved", zap.String("report_id", id), zap.String("moderator_id", moderatorID))
		return resp, nil
	}

	s.metrics.RecordAction(req.Action, resp.Partial)
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
	if s.notifier != nil {
		s.notifier.Dispatch(models.Notification{
			ReportID:    resp.Report.ID,
			RecipientID: resp.Report.ReporterID,
			TargetType:  resp.Report.TargetType,
			TargetID:    resp.Report.TargetID,
			Action:      req.Action,
			ResolvedAt:  s.now().Format(time.RFC3339),
		})
	}
	s.logger.Info("report resolved",
		zap.String("report_id", id),
		zap.String("action", string(req.Action)),
		zap.Bool("partial", resp.Partial),
	)
	return resp, nil
}

func registerModerationValidations(validate *validator.Validate) {
	validate.RegisterValidation("target_type", func(fl validator.FieldLevel) bool {
		return models.TargetType(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("reason_code", func(fl validator.FieldLevel) bool {
		return models.ReasonCode(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("action_code", func(fl validator.FieldLevel) bool {
		return models.ActionCode(fl.Field().String()).Valid()
	})
}

func decisionReason(reason models.ReasonCode, notes *string) string {
	if notes == nil {
		return string(reason)
	}
	return fmt.Sprintf("%s: %s", reason, *notes)
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
