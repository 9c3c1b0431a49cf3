package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
)

const (
	signalGeoWeightField = "geo_weight"
	signalAIUrgencyField = "ai_urgency"
)

// SignalRepository reads scoring signals published by the external scorer.
// Signals live in one hash per target: <prefix>:<KIND>:<id>.
type SignalRepository struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewSignalRepository constructs the repository. A nil client yields empty signals.
func NewSignalRepository(client *redis.Client, prefix string, logger *zap.Logger) *SignalRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "moderation:signals"
	}
	return &SignalRepository{client: client, prefix: strings.TrimSuffix(prefix, ":"), logger: logger}
}

// Key returns the hash key holding signals for a target.
func (r *SignalRepository) Key(kind models.TargetType, id string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, kind, id)
}

// Get returns the signals for a target. Missing hashes and malformed fields
// produce absent values, not errors.
func (r *SignalRepository) Get(ctx context.Context, kind models.TargetType, id string) (models.ScoringSignals, error) {
	var signals models.ScoringSignals
	if r.client == nil {
		return signals, nil
	}
	key := r.Key(kind, id)
	values, err := r.client.HMGet(ctx, key, signalGeoWeightField, signalAIUrgencyField).Result()
	if err != nil {
		return signals, fmt.Errorf("redis hmget %s: %w", key, err)
	}
	if raw, ok := values[0].(string); ok && raw != "" {
		weight, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			r.logger.Warn("ignoring malformed geo weight", zap.String("key", key), zap.String("value", raw))
		} else {
			signals.GeoWeight = &weight
		}
	}
	if raw, ok := values[1].(string); ok && raw != "" {
		urgency := raw
		signals.AIUrgency = &urgency
	}
	return signals, nil
}
