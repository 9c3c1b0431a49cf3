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

type reportSubmitter interface {
	Submit(ctx context.Context, req dto.SubmitReportRequest, reporterID string) (*models.Report, error)
}

// ReportHandler accepts abuse reports from authenticated users.
type ReportHandler struct {
	service reportSubmitter
}

// NewReportHandler constructs handler.
func NewReportHandler(service reportSubmitter) *ReportHandler {
	return &ReportHandler{service: service}
}

// Submit godoc
// @Summary Report a piece of content or a user
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.SubmitReportRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Submit(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}

	report, err := h.service.Submit(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.SubmitReportResponse{ID: report.ID, Status: report.Status, Priority: report.Priority})
}
