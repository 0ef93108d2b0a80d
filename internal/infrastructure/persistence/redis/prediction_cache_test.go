package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/underwritex/riskd/internal/config"
	"github.com/underwritex/riskd/internal/domain/models"
	"github.com/underwritex/riskd/pkg/constants"
	"github.com/underwritex/riskd/pkg/logger"
)

func newTestCache(t *testing.T) (*PredictionCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	conn, err := NewConnection(&config.RedisConfig{
		Addr:     mr.Addr(),
		PoolSize: 2,
	}, logger.NewNoopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewPredictionCache(conn, time.Hour, logger.NewNoopLogger()), mr
}

func sampleRecord(policy string, score float64) *models.PredictionRecord {
	return &models.PredictionRecord{
		PolicyNumber: policy,
		RiskScore:    score,
		RiskLevel:    constants.LevelForScore(score),
		ModelName:    constants.ModelName,
		ModelVersion: "REGISTRY_V2",
		InferenceMS:  12.5,
		ScoredAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func TestPredictionCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	record := sampleRecord("POL-2001", 0.45)
	require.NoError(t, cache.Set(ctx, record))

	got, err := cache.Get(ctx, "POL-2001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.PolicyNumber, got.PolicyNumber)
	assert.Equal(t, record.RiskScore, got.RiskScore)
	assert.Equal(t, record.RiskLevel, got.RiskLevel)
	assert.Equal(t, record.ModelVersion, got.ModelVersion)
}

func TestPredictionCacheMissReturnsNil(t *testing.T) {
	cache, _ := newTestCache(t)

	got, err := cache.Get(context.Background(), "POL-UNKNOWN")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPredictionCacheLastWriteWins(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, sampleRecord("POL-2002", 0.2)))
	require.NoError(t, cache.Set(ctx, sampleRecord("POL-2002", 0.8)))

	got, err := cache.Get(ctx, "POL-2002")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.8, got.RiskScore)
	assert.Equal(t, constants.RiskLevelHigh, got.RiskLevel)
}

func TestPredictionCacheEntriesExpire(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, sampleRecord("POL-2003", 0.3)))
	mr.FastForward(2 * time.Hour)

	got, err := cache.Get(ctx, "POL-2003")
	require.NoError(t, err)
	assert.Nil(t, got)
}
