package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trust-enforcement-api/internal/dto"
	"github.com/noah-isme/trust-enforcement-api/internal/middleware"
	"github.com/noah-isme/trust-enforcement-api/internal/models"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
)

type moderationQueueMock struct {
	lastQuery   dto.ReportQuery
	lastResolve dto.ResolveReportRequest
	moderatorID string
	resolveResp *dto.ResolveReportResponse
	err         error
}

func (m *moderationQueueMock) List(ctx context.Context, query dto.ReportQuery) ([]models.Report, *models.Pagination, error) {
	m.lastQuery = query
	if m.err != nil {
		return nil, nil, m.err
	}
	return []models.Report{{ID: "report-1"}}, &models.Pagination{Page: query.Page, PageSize: 20, TotalCount: 1}, nil
}

func (m *moderationQueueMock) Get(ctx context.Context, id string) (*models.Report, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Report{ID: id}, nil
}

func (m *moderationQueueMock) Claim(ctx context.Context, id, moderatorID string) (*models.Report, error) {
	m.moderatorID = moderatorID
	if m.err != nil {
		return nil, m.err
	}
	return &models.Report{ID: id, Status: models.ReportStatusInReview, ClaimedBy: &moderatorID}, nil
}

func (m *moderationQueueMock) Resolve(ctx context.Context, id string, req dto.ResolveReportRequest, moderatorID string) (*dto.ResolveReportResponse, error) {
	m.lastResolve = req
	m.moderatorID = moderatorID
	if m.err != nil {
		return nil, m.err
	}
	return m.resolveResp, nil
}

func moderatorContext(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "mod-1", Role: models.RoleModerator})
}

func TestModerationHandlerListParsesFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &moderationQueueMock{}
	handler := NewModerationHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/moderation/reports?status=pending,in_review&status=RESOLVED&priority=urgent&targetType=post&page=2&pageSize=10", nil)
	moderatorContext(c)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.ReportStatus{models.ReportStatusPending, models.ReportStatusInReview, models.ReportStatusResolved}, mockSvc.lastQuery.Status)
	assert.Equal(t, models.PriorityUrgent, mockSvc.lastQuery.Priority)
	assert.Equal(t, models.TargetPost, mockSvc.lastQuery.TargetType)
	assert.Equal(t, 2, mockSvc.lastQuery.Page)
	assert.Equal(t, 10, mockSvc.lastQuery.PageSize)
	assert.Equal(t, 1, decodeEnvelope(t, w).Pagination.TotalCount)
}

func TestModerationHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewModerationHandler(&moderationQueueMock{err: appErrors.ErrReportNotFound})

	c, w := newGinContext(http.MethodGet, "/moderation/reports/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestModerationHandlerClaim(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &moderationQueueMock{}
	handler := NewModerationHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/moderation/reports/report-1/claim", nil)
	c.Params = gin.Params{{Key: "id", Value: "report-1"}}
	moderatorContext(c)

	handler.Claim(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mod-1", mockSvc.moderatorID)

	conflict := NewModerationHandler(&moderationQueueMock{err: appErrors.ErrAlreadyClaimed})
	c, w = newGinContext(http.MethodPost, "/moderation/reports/report-1/claim", nil)
	moderatorContext(c)
	conflict.Claim(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestModerationHandlerResolve(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &moderationQueueMock{resolveResp: &dto.ResolveReportResponse{
		Report:  &models.Report{ID: "report-1", Status: models.ReportStatusResolved},
		LogID:   "log-1",
		Partial: true,
	}}
	handler := NewModerationHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/moderation/reports/report-1/resolve", []byte(`{"action":"CONTENT_HIDDEN","notes":"spam ring"}`))
	c.Params = gin.Params{{Key: "id", Value: "report-1"}}
	moderatorContext(c)

	handler.Resolve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ActionContentHidden, mockSvc.lastResolve.Action)
	assert.Equal(t, "mod-1", mockSvc.moderatorID)

	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["partial"])
	assert.Equal(t, false, env.Meta["alreadyResolved"])
	var body dto.ResolveReportResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "log-1", body.LogID)
}

func TestModerationHandlerResolveAlreadyResolved(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewModerationHandler(&moderationQueueMock{resolveResp: &dto.ResolveReportResponse{
		Report:          &models.Report{ID: "report-1", Status: models.ReportStatusResolved},
		AlreadyResolved: true,
	}})

	c, w := newGinContext(http.MethodPost, "/moderation/reports/report-1/resolve", []byte(`{"action":"NO_ACTION"}`))
	c.Params = gin.Params{{Key: "id", Value: "report-1"}}
	moderatorContext(c)

	handler.Resolve(c)
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["alreadyResolved"])
	assert.Equal(t, appErrors.ErrAlreadyResolved.Code, env.Meta["code"])
}

func TestModerationHandlerResolveRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewModerationHandler(&moderationQueueMock{})

	c, w := newGinContext(http.MethodPost, "/moderation/reports/report-1/resolve", []byte(`[]`))
	moderatorContext(c)
	handler.Resolve(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPost, "/moderation/reports/report-1/resolve", []byte(`{"action":"NO_ACTION"}`))
	handler.Resolve(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
