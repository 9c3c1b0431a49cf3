package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trust-enforcement-api/internal/dto"
	"github.com/noah-isme/trust-enforcement-api/internal/middleware"
	"github.com/noah-isme/trust-enforcement-api/internal/models"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
)

type reportSubmitterMock struct {
	lastReq      dto.SubmitReportRequest
	lastReporter string
	err          error
}

func (m *reportSubmitterMock) Submit(ctx context.Context, req dto.SubmitReportRequest, reporterID string) (*models.Report, error) {
	m.lastReq = req
	m.lastReporter = reporterID
	if m.err != nil {
		return nil, m.err
	}
	return &models.Report{ID: "report-1", Status: models.ReportStatusPending, Priority: models.PriorityHigh}, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestReportHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportSubmitterMock{}
	handler := NewReportHandler(mockSvc)

	payload, _ := json.Marshal(dto.SubmitReportRequest{TargetType: models.TargetPost, TargetID: "post-1", ReasonCode: models.ReasonSpam})
	c, w := newGinContext(http.MethodPost, "/reports", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleUser})

	handler.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "user-1", mockSvc.lastReporter)
	assert.Equal(t, "post-1", mockSvc.lastReq.TargetID)

	var created dto.SubmitReportResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &created))
	assert.Equal(t, "report-1", created.ID)
	assert.Equal(t, models.PriorityHigh, created.Priority)
}

func TestReportHandlerSubmitErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, w := newGinContext(http.MethodPost, "/reports", []byte(`{}`))
	NewReportHandler(&reportSubmitterMock{}).Submit(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPost, "/reports", []byte(`{not json`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleUser})
	NewReportHandler(&reportSubmitterMock{}).Submit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPost, "/reports", []byte(`{"targetType":"POST","targetId":"p","reasonCode":"SPAM"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleUser})
	NewReportHandler(&reportSubmitterMock{err: appErrors.ErrAlreadyReported}).Submit(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.ErrAlreadyReported.Code, decodeEnvelope(t, w).Error.Code)

	c, w = newGinContext(http.MethodPost, "/reports", []byte(`{}`))
	NewReportHandler(nil).Submit(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
