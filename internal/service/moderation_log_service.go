package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/trust-enforcement-api/internal/dto"
	"github.com/noah-isme/trust-enforcement-api/internal/models"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
	"github.com/noah-isme/trust-enforcement-api/pkg/export"
)

// DefaultExportLimit bounds the number of entries rendered into one export.
const DefaultExportLimit = 5000

type moderationLogReader interface {
	List(ctx context.Context, filter models.ModerationLogFilter) ([]models.ModerationLog, error)
	Count(ctx context.Context, filter models.ModerationLogFilter) (int, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ModerationLogService serves the audit trail and renders it for hand-off.
type ModerationLogService struct {
	repo        moderationLogReader
	csv         tableRenderer
	pdf         tableRenderer
	logger      *zap.Logger
	maxPageSize int
	exportLimit int
	now         func() time.Time
}

// NewModerationLogService constructs the service.
func NewModerationLogService(repo moderationLogReader, csv, pdf tableRenderer, maxPageSize int, logger *zap.Logger) *ModerationLogService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModerationLogService{
		repo:        repo,
		csv:         csv,
		pdf:         pdf,
		logger:      logger,
		maxPageSize: maxPageSize,
		exportLimit: DefaultExportLimit,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// List returns a page of log entries, newest first.
func (s *ModerationLogService) List(ctx context.Context, query dto.ModerationLogQuery) ([]models.ModerationLog, *models.Pagination, error) {
	filter, err := s.filter(query)
	if err != nil {
		return nil, nil, err
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = 50
	}
	if size > s.maxPageSize {
		size = s.maxPageSize
	}
	filter.Limit = size
	filter.Offset = (page - 1) * size

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list moderation logs")
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count moderation logs")
	}
	if entries == nil {
		entries = []models.ModerationLog{}
	}
	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Export renders every matching entry, up to the export limit, as CSV or PDF.
func (s *ModerationLogService) Export(ctx context.Context, query dto.ModerationLogQuery, format dto.LogExportFormat) (*dto.LogExport, error) {
	filter, err := s.filter(query)
	if err != nil {
		return nil, err
	}
	filter.Limit = s.exportLimit

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load moderation logs")
	}
	table := logTable(entries)
	stamp := s.now().Format("20060102T150405Z")

	var out dto.LogExport
	switch format {
	case "", dto.LogExportCSV:
		data, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		out = dto.LogExport{Filename: "moderation-log-" + stamp + ".csv", ContentType: "text/csv", Data: data}
	case dto.LogExportPDF:
		data, err := s.pdf.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		out = dto.LogExport{Filename: "moderation-log-" + stamp + ".pdf", ContentType: "application/pdf", Data: data}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	s.logger.Info("moderation log exported", zap.String("format", string(format)), zap.Int("entries", len(entries)))
	return &out, nil
}

func (s *ModerationLogService) filter(query dto.ModerationLogQuery) (models.ModerationLogFilter, error) {
	if query.TargetType != "" && !query.TargetType.Valid() {
		return models.ModerationLogFilter{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown target type %q", query.TargetType))
	}
	if query.Action != "" && !query.Action.Valid() {
		return models.ModerationLogFilter{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown action %q", query.Action))
	}
	if query.Since != nil && query.Until != nil && !query.Since.Before(*query.Until) {
		return models.ModerationLogFilter{}, appErrors.Clone(appErrors.ErrValidation, "since must be before until")
	}
	return models.ModerationLogFilter{
		ModeratorID: query.ModeratorID,
		TargetType:  query.TargetType,
		TargetID:    query.TargetID,
		Action:      query.Action,
		Since:       query.Since,
		Until:       query.Until,
	}, nil
}

func logTable(entries []models.ModerationLog) export.Table {
	table := export.Table{
		Title: "Moderation log",
		Columns: []export.Column{
			{Header: "created_at", Width: 3},
			{Header: "moderator_id", Width: 3},
			{Header: "target_type", Width: 2},
			{Header: "target_id", Width: 3},
			{Header: "action", Width: 2.5},
			{Header: "partial", Width: 1},
			{Header: "effects", Width: 4},
			{Header: "reason", Width: 5},
		},
		Rows:      make([][]string, 0, len(entries)),
		Landscape: true,
	}
	for _, entry := range entries {
		table.Rows = append(table.Rows, []string{
			entry.CreatedAt.UTC().Format(time.RFC3339),
			entry.ModeratorID,
			string(entry.TargetType),
			entry.TargetID,
			string(entry.Action),
			fmt.Sprintf("%t", entry.Metadata.Partial),
			summarizeEffects(entry.Metadata.Effects),
			entry.Reason,
		})
	}
	return table
}

func summarizeEffects(effects []models.EffectResult) string {
	parts := make([]string, 0, len(effects))
	for _, effect := range effects {
		parts = append(parts, effect.Effect+"="+string(effect.Status))
	}
	return strings.Join(parts, ";")
}
