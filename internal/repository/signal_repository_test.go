package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
	appErrors "github.com/noah-isme/trust-enforcement-api/pkg/errors"
)

func TestSignalRepositoryKeyAndNilClient(t *testing.T) {
	repo := NewSignalRepository(nil, "moderation:signals:", nil)
	require.Equal(t, "moderation:signals:POST:post-1", repo.Key(models.TargetPost, "post-1"))

	signals, err := repo.Get(context.Background(), models.TargetPost, "post-1")
	require.NoError(t, err)
	require.Nil(t, signals.GeoWeight)
	require.Nil(t, signals.AIUrgency)
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest map[string]int
	require.ErrorIs(t, repo.Get(context.Background(), "k", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(context.Background(), "k", map[string]int{"a": 1}, 0))
	require.NoError(t, repo.DeleteByPattern(context.Background(), "k*"))
	require.NoError(t, repo.Ping(context.Background()))
}
