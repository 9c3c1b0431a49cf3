package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
	"github.com/noah-isme/trust-enforcement-api/pkg/response"
)

type statsProvider interface {
	Snapshot(ctx context.Context) (*models.StatsSnapshot, error)
}

// StatsHandler exposes queue health counters.
type StatsHandler struct {
	service statsProvider
}

// NewStatsHandler constructs handler.
func NewStatsHandler(service statsProvider) *StatsHandler {
	return &StatsHandler{service: service}
}

// Get godoc
// @Summary Moderation queue statistics
// @Tags Moderation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /moderation/stats [get]
func (h *StatsHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrServiceUnavailable)
		return
	}
	snapshot, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}
