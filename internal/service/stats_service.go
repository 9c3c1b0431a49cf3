package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
)

const statsCacheKey = "moderation:stats:snapshot"

type statsStore interface {
	Snapshot(ctx context.Context) (*models.StatsSnapshot, error)
}

// StatsService serves queue health counters, cached briefly in Redis.
type StatsService struct {
	repo   statsStore
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsService constructs the service. A nil cache always reads through.
func NewStatsService(repo statsStore, cache *CacheService, ttl time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Snapshot returns the cached snapshot or computes a fresh one.
func (s *StatsService) Snapshot(ctx context.Context) (*models.StatsSnapshot, error) {
	var cached models.StatsSnapshot
	if s.cache.Get(ctx, statsCacheKey, &cached) {
		return &cached, nil
	}
	snapshot, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute moderation stats")
	}
	s.cache.Set(ctx, statsCacheKey, snapshot, s.ttl)
	return snapshot, nil
}

// Invalidate drops the cached snapshot so the next read recomputes it.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s == nil {
		return
	}
	s.cache.Invalidate(ctx, statsCacheKey)
}
