package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
)

var sweepNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func addSuspension(w *memWorld, userID string, kind models.SuspensionType, endsAt *time.Time) string {
	id := w.nextID("suspension")
	w.suspensions = append(w.suspensions, models.Suspension{
		ID:          id,
		UserID:      userID,
		ModeratorID: "mod-1",
		Type:        kind,
		IsActive:    true,
		EndsAt:      endsAt,
		CreatedAt:   sweepNow.Add(-30 * 24 * time.Hour),
	})
	(&memTx{w: w}).RefreshSuspendedFlags(context.Background(), []string{userID})
	return id
}

func timePtr(t time.Time) *time.Time { return &t }

func findSuspension(w *memWorld, id string) models.Suspension {
	for _, suspension := range w.suspensions {
		if suspension.ID == id {
			return suspension
		}
	}
	return models.Suspension{}
}

func newTestSweeper(w *memWorld, batch int, metrics *MetricsService) *SanctionSweeper {
	sweeper := NewSanctionSweeper(&memStore{w: w}, nil, metrics, SweeperConfig{Interval: time.Hour, BatchSize: batch}, nil)
	sweeper.now = func() time.Time { return sweepNow }
	return sweeper
}

func TestSanctionSweeperExpiresTemporarySuspensions(t *testing.T) {
	w := newMemWorld()
	w.addUser("user-1")
	w.addUser("user-2")
	expired := addSuspension(w, "user-1", models.SuspensionTemporary, timePtr(sweepNow.Add(-time.Minute)))
	running := addSuspension(w, "user-2", models.SuspensionTemporary, timePtr(sweepNow.Add(time.Hour)))
	metrics := NewMetricsService()

	count, err := newTestSweeper(w, 10, metrics).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.False(t, findSuspension(w, expired).IsActive)
	assert.True(t, findSuspension(w, running).IsActive)
	assert.False(t, w.suspended("user-1"))
	assert.True(t, w.suspended("user-2"))
	assert.Equal(t, 1.0, counterValue(t, metrics, "moderation_suspensions_expired_total", nil))
	assert.Equal(t, 1.0, counterValue(t, metrics, "moderation_sweep_runs_total", map[string]string{"result": "ok"}))
}

func TestSanctionSweeperNeverLiftsPermanentBans(t *testing.T) {
	w := newMemWorld()
	w.addUser("user-1")
	ban := addSuspension(w, "user-1", models.SuspensionPermanent, nil)
	longAgo := addSuspension(w, "user-1", models.SuspensionTemporary, timePtr(sweepNow.Add(-365*24*time.Hour)))

	sweeper := newTestSweeper(w, 10, nil)
	sweeper.now = func() time.Time { return sweepNow.Add(100 * 365 * 24 * time.Hour) }
	count, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.True(t, findSuspension(w, ban).IsActive)
	assert.False(t, findSuspension(w, longAgo).IsActive)
	assert.True(t, w.suspended("user-1"), "an active ban keeps the user suspended")
}

func TestSanctionSweeperPagesThroughBacklog(t *testing.T) {
	w := newMemWorld()
	for i := 0; i < 7; i++ {
		user := fmt.Sprintf("user-%d", i%3)
		w.addUser(user)
		addSuspension(w, user, models.SuspensionTemporary, timePtr(sweepNow.Add(-time.Duration(i+1)*time.Hour)))
	}

	count, err := newTestSweeper(w, 2, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	for _, suspension := range w.suspensions {
		assert.False(t, suspension.IsActive, suspension.ID)
	}
	for i := 0; i < 3; i++ {
		assert.False(t, w.suspended(fmt.Sprintf("user-%d", i)))
	}

	count, err = newTestSweeper(w, 2, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "a second sweep is a no-op")
}

func TestSanctionSweeperStartStop(t *testing.T) {
	w := newMemWorld()
	w.addUser("user-1")
	id := addSuspension(w, "user-1", models.SuspensionTemporary, timePtr(sweepNow.Add(-time.Minute)))

	sweeper := NewSanctionSweeper(&memStore{w: w}, nil, nil, SweeperConfig{Interval: 5 * time.Millisecond, BatchSize: 10}, nil)
	sweeper.now = func() time.Time { return sweepNow }
	sweeper.Start(context.Background())
	sweeper.Start(context.Background())

	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return !findSuspension(w, id).IsActive
	}, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	sweeper.Stop()
}

func TestSanctionServiceLiftSuspension(t *testing.T) {
	w := newMemWorld()
	w.addUser("user-1")
	temp := addSuspension(w, "user-1", models.SuspensionTemporary, timePtr(sweepNow.Add(time.Hour)))
	ban := addSuspension(w, "user-1", models.SuspensionPermanent, nil)
	svc := NewSanctionService(&memStore{w: w}, w, nil, nil)
	ctx := context.Background()

	resp, err := svc.LiftSuspension(ctx, temp, "mod-1")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Lifted)
	assert.True(t, resp.IsSuspended, "the ban is still active")

	again, err := svc.LiftSuspension(ctx, temp, "mod-2")
	require.NoError(t, err)
	assert.Zero(t, again.Lifted)
	assert.Equal(t, "mod-1", *findSuspension(w, temp).LiftedBy)

	resp, err = svc.LiftSuspension(ctx, ban, "mod-1")
	require.NoError(t, err)
	assert.False(t, resp.IsSuspended)
	assert.False(t, w.suspended("user-1"))

	_, err = svc.LiftSuspension(ctx, "missing", "mod-1")
	require.ErrorIs(t, err, appErrors.ErrSuspensionNotFound)
}

func TestSanctionServiceLiftUserSuspensions(t *testing.T) {
	w := newMemWorld()
	w.addUser("user-1")
	addSuspension(w, "user-1", models.SuspensionTemporary, timePtr(sweepNow.Add(time.Hour)))
	addSuspension(w, "user-1", models.SuspensionPermanent, nil)
	addSuspension(w, "user-1", models.SuspensionPostingRestricted, nil)
	svc := NewSanctionService(&memStore{w: w}, w, nil, nil)

	resp, err := svc.LiftUserSuspensions(context.Background(), "user-1", "mod-1")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Lifted)
	assert.False(t, resp.IsSuspended)

	_, err = svc.LiftUserSuspensions(context.Background(), "ghost", "mod-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSanctionServiceHistory(t *testing.T) {
	w := newMemWorld()
	w.addUser("user-1")
	w.warnings = append(w.warnings,
		models.Warning{ID: "w-1", UserID: "user-1", Severity: models.WarningModerate},
		models.Warning{ID: "w-2", UserID: "user-1", Severity: models.WarningMinor},
		models.Warning{ID: "w-3", UserID: "user-2", Severity: models.WarningMinor},
	)
	addSuspension(w, "user-1", models.SuspensionCommentingRestricted, nil)
	svc := NewSanctionService(&memStore{w: w}, w, nil, nil)

	history, err := svc.History(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, history.WarningCount)
	assert.Len(t, history.Suspensions, 1)
	assert.False(t, history.IsSuspended, "partial restrictions do not set the blanket flag")

	_, err = svc.History(context.Background(), "ghost")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSanctionSweeperInvalidatesStatsOnlyWhenRowsChange(t *testing.T) {
	w := newMemWorld()
	w.addUser("user-1")
	addSuspension(w, "user-1", models.SuspensionTemporary, timePtr(sweepNow.Add(-time.Minute)))
	stats := &countingInvalidator{}
	sweeper := NewSanctionSweeper(&memStore{w: w}, stats, nil, SweeperConfig{Interval: time.Hour, BatchSize: 10}, nil)
	sweeper.now = func() time.Time { return sweepNow }

	count, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, stats.calls)

	count, err = sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, 1, stats.calls, "an empty sweep keeps the cached snapshot")
}

func TestSanctionServiceLiftInvalidatesStats(t *testing.T) {
	w := newMemWorld()
	w.addUser("user-1")
	w.addUser("user-2")
	temp := addSuspension(w, "user-1", models.SuspensionTemporary, timePtr(sweepNow.Add(time.Hour)))
	addSuspension(w, "user-2", models.SuspensionPermanent, nil)
	stats := &countingInvalidator{}
	svc := NewSanctionService(&memStore{w: w}, w, stats, nil)
	ctx := context.Background()

	_, err := svc.LiftSuspension(ctx, temp, "mod-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.calls)

	_, err = svc.LiftSuspension(ctx, temp, "mod-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.calls, "a no-op lift keeps the cached snapshot")

	_, err = svc.LiftUserSuspensions(ctx, "user-2", "mod-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.calls)

	_, err = svc.LiftUserSuspensions(ctx, "user-2", "mod-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.calls)
}
