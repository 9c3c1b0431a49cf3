package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/trust-enforcement-api/internal/dto"
	"github.com/noah-isme/trust-enforcement-api/internal/middleware"
	"github.com/noah-isme/trust-enforcement-api/internal/models"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
	"github.com/noah-isme/trust-enforcement-api/pkg/response"
)

type moderationQueue interface {
	List(ctx context.Context, query dto.ReportQuery) ([]models.Report, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Report, error)
	Claim(ctx context.Context, id, moderatorID string) (*models.Report, error)
	Resolve(ctx context.Context, id string, req dto.ResolveReportRequest, moderatorID string) (*dto.ResolveReportResponse, error)
}

// ModerationHandler exposes the moderator work queue.
type ModerationHandler struct {
	service moderationQueue
}

// NewModerationHandler constructs handler.
func NewModerationHandler(service moderationQueue) *ModerationHandler {
	return &ModerationHandler{service: service}
}

// List godoc
// @Summary List the moderation queue
// @Description Ordered by priority (URGENT first) then oldest first. Defaults to open reports.
// @Tags Moderation
// @Produce json
// @Param status query string false "Comma separated statuses (PENDING, IN_REVIEW, RESOLVED)"
// @Param priority query string false "Priority filter"
// @Param targetType query string false "Target type filter"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /moderation/reports [get]
func (h *ModerationHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	query := dto.ReportQuery{
		Priority:   models.Priority(firstOf(parseQueryList(c, "priority"))),
		TargetType: models.TargetType(firstOf(parseQueryList(c, "targetType"))),
		Page:       parseQueryInt(c, "page", 1),
		PageSize:   parseQueryInt(c, "pageSize", 0),
	}
	for _, status := range parseQueryList(c, "status") {
		query.Status = append(query.Status, models.ReportStatus(status))
	}

	reports, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, pagination)
}

// Get godoc
// @Summary Get a report
// @Tags Moderation
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /moderation/reports/{id} [get]
func (h *ModerationHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	report, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Claim godoc
// @Summary Claim a pending report for review
// @Tags Moderation
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /moderation/reports/{id}/claim [post]
func (h *ModerationHandler) Claim(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	report, err := h.service.Claim(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Resolve godoc
// @Summary Resolve a report with a moderation action
// @Description Resolving an already resolved report returns 200 with meta.alreadyResolved and no further side effects.
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body dto.ResolveReportRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /moderation/reports/{id}/resolve [post]
func (h *ModerationHandler) Resolve(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ResolveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resolve payload"))
		return
	}

	result, err := h.service.Resolve(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "alreadyResolved", result.AlreadyResolved)
	middleware.SetMeta(c, "partial", result.Partial)
	if result.AlreadyResolved {
		middleware.SetMeta(c, "code", appErrors.ErrAlreadyResolved.Code)
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
