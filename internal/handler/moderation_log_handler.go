package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/trust-enforcement-api/internal/dto"
	"github.com/noah-isme/trust-enforcement-api/internal/models"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
	"github.com/noah-isme/trust-enforcement-api/pkg/response"
)

type moderationLogService interface {
	List(ctx context.Context, query dto.ModerationLogQuery) ([]models.ModerationLog, *models.Pagination, error)
	Export(ctx context.Context, query dto.ModerationLogQuery, format dto.LogExportFormat) (*dto.LogExport, error)
}

// ModerationLogHandler exposes the moderation audit trail.
type ModerationLogHandler struct {
	service moderationLogService
}

// NewModerationLogHandler constructs handler.
func NewModerationLogHandler(service moderationLogService) *ModerationLogHandler {
	return &ModerationLogHandler{service: service}
}

// List godoc
// @Summary List moderation log entries
// @Tags Moderation Log
// @Produce json
// @Param moderatorId query string false "Moderator ID"
// @Param targetType query string false "Target type"
// @Param targetId query string false "Target ID"
// @Param action query string false "Action code"
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /moderation/logs [get]
func (h *ModerationLogHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	query, err := logQueryFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Export godoc
// @Summary Export the moderation log
// @Tags Moderation Log
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Success 200 {file} file
// @Router /moderation/logs/export [get]
func (h *ModerationLogHandler) Export(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	query, err := logQueryFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := dto.LogExportFormat(strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", string(dto.LogExportCSV)))))

	doc, err := h.service.Export(c.Request.Context(), query, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}

func logQueryFromRequest(c *gin.Context) (dto.ModerationLogQuery, error) {
	query := dto.ModerationLogQuery{
		ModeratorID: strings.TrimSpace(c.Query("moderatorId")),
		TargetType:  models.TargetType(strings.ToUpper(strings.TrimSpace(c.Query("targetType")))),
		TargetID:    strings.TrimSpace(c.Query("targetId")),
		Action:      models.ActionCode(strings.ToUpper(strings.TrimSpace(c.Query("action")))),
		Page:        parseQueryInt(c, "page", 1),
		PageSize:    parseQueryInt(c, "pageSize", 0),
	}
	since, err := parseTimeParam(c, "since")
	if err != nil {
		return query, err
	}
	until, err := parseTimeParam(c, "until")
	if err != nil {
		return query, err
	}
	query.Since = since
	query.Until = until
	return query, nil
}
