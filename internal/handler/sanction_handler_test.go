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
	"github.com/noah-isme/trust-enforcement-api/internal/models"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
)

type sanctionManagerMock struct {
	calls []string
	err   error
}

func (m *sanctionManagerMock) LiftSuspension(ctx context.Context, suspensionID, moderatorID string) (*dto.LiftSuspensionsResponse, error) {
	m.calls = append(m.calls, "suspension:"+suspensionID+":"+moderatorID)
	if m.err != nil {
		return nil, m.err
	}
	return &dto.LiftSuspensionsResponse{UserID: "user-1", Lifted: 1}, nil
}

func (m *sanctionManagerMock) LiftUserSuspensions(ctx context.Context, userID, moderatorID string) (*dto.LiftSuspensionsResponse, error) {
	m.calls = append(m.calls, "user:"+userID+":"+moderatorID)
	if m.err != nil {
		return nil, m.err
	}
	return &dto.LiftSuspensionsResponse{UserID: userID, Lifted: 2}, nil
}

func (m *sanctionManagerMock) History(ctx context.Context, userID string) (*models.SanctionHistory, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.SanctionHistory{UserID: userID, IsSuspended: true, WarningCount: 3}, nil
}

func TestSanctionHandlerLift(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &sanctionManagerMock{}
	handler := NewSanctionHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/moderation/suspensions/susp-1/lift", nil)
	c.Params = gin.Params{{Key: "id", Value: "susp-1"}}
	moderatorContext(c)
	handler.LiftSuspension(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodPost, "/moderation/users/user-1/lift-suspensions", nil)
	c.Params = gin.Params{{Key: "id", Value: "user-1"}}
	moderatorContext(c)
	handler.LiftUserSuspensions(c)
	require.Equal(t, http.StatusOK, w.Code)

	var lifted dto.LiftSuspensionsResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &lifted))
	assert.Equal(t, 2, lifted.Lifted)
	assert.Equal(t, []string{"suspension:susp-1:mod-1", "user:user-1:mod-1"}, mockSvc.calls)
}

func TestSanctionHandlerLiftErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, w := newGinContext(http.MethodPost, "/moderation/suspensions/missing/lift", nil)
	moderatorContext(c)
	NewSanctionHandler(&sanctionManagerMock{err: appErrors.ErrSuspensionNotFound}).LiftSuspension(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newGinContext(http.MethodPost, "/moderation/users/user-1/lift-suspensions", nil)
	NewSanctionHandler(&sanctionManagerMock{}).LiftUserSuspensions(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPost, "/moderation/users/user-1/lift-suspensions", nil)
	moderatorContext(c)
	NewSanctionHandler(nil).LiftUserSuspensions(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSanctionHandlerHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, w := newGinContext(http.MethodGet, "/moderation/users/user-1/sanctions", nil)
	c.Params = gin.Params{{Key: "id", Value: "user-1"}}

	NewSanctionHandler(&sanctionManagerMock{}).History(c)
	require.Equal(t, http.StatusOK, w.Code)

	var history models.SanctionHistory
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &history))
	assert.True(t, history.IsSuspended)
	assert.Equal(t, 3, history.WarningCount)
}
