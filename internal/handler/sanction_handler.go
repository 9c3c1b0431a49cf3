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

type sanctionManager interface {
	LiftSuspension(ctx context.Context, suspensionID, moderatorID string) (*dto.LiftSuspensionsResponse, error)
	LiftUserSuspensions(ctx context.Context, userID, moderatorID string) (*dto.LiftSuspensionsResponse, error)
	History(ctx context.Context, userID string) (*models.SanctionHistory, error)
}

// SanctionHandler exposes manual sanction management.
type SanctionHandler struct {
	service sanctionManager
}

// NewSanctionHandler constructs handler.
func NewSanctionHandler(service sanctionManager) *SanctionHandler {
	return &SanctionHandler{service: service}
}

// LiftSuspension godoc
// @Summary Lift a single suspension
// @Tags Sanctions
// @Produce json
// @Param id path string true "Suspension ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /moderation/suspensions/{id}/lift [post]
func (h *SanctionHandler) LiftSuspension(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	h.lift(c, h.service.LiftSuspension)
}

// LiftUserSuspensions godoc
// @Summary Lift every active suspension of a user
// @Tags Sanctions
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /moderation/users/{id}/lift-suspensions [post]
func (h *SanctionHandler) LiftUserSuspensions(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	h.lift(c, h.service.LiftUserSuspensions)
}

func (h *SanctionHandler) lift(c *gin.Context, fn func(ctx context.Context, id, moderatorID string) (*dto.LiftSuspensionsResponse, error)) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := fn(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary Sanction history of a user
// @Tags Sanctions
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /moderation/users/{id}/sanctions [get]
func (h *SanctionHandler) History(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	history, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
