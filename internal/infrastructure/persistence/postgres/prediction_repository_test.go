package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/underwritex/riskd/internal/domain/models"
	"github.com/underwritex/riskd/internal/domain/repository"
	"github.com/underwritex/riskd/pkg/constants"
)

func newTestRepo(t *testing.T) (repository.PredictionRepository, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&predictionDBM{}))

	return NewPredictionRepository(db), db
}

func record(policy string, score float64, version string) *models.PredictionRecord {
	return &models.PredictionRecord{
		PolicyNumber: policy,
		RiskScore:    score,
		RiskLevel:    constants.LevelForScore(score),
		ModelName:    constants.ModelName,
		ModelVersion: version,
		InferenceMS:  8.2,
		ScoredAt:     time.Now().UTC().Truncate(time.Second),
	}
}

func TestUpsertAndGet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	snapshot := map[string]interface{}{"mib_code_count": 2, "rx_total_fills": 3}
	require.NoError(t, repo.UpsertPrediction(ctx, record("POL-3001", 0.35, "REGISTRY_V2"), snapshot))

	got, err := repo.GetPrediction(ctx, "POL-3001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "POL-3001", got.PolicyNumber)
	assert.Equal(t, 0.35, got.RiskScore)
	assert.Equal(t, constants.RiskLevelMedium, got.RiskLevel)
	assert.Equal(t, "REGISTRY_V2", got.ModelVersion)
}

func TestGetMissingReturnsNilNil(t *testing.T) {
	repo, _ := newTestRepo(t)

	got, err := repo.GetPrediction(context.Background(), "POL-MISSING")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpsertIsIdempotentLastWriteWins(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertPrediction(ctx, record("POL-3002", 0.2, constants.FallbackModelVersion), nil))
	require.NoError(t, repo.UpsertPrediction(ctx, record("POL-3002", 0.7, "REGISTRY_V2"), nil))
	require.NoError(t, repo.UpsertPrediction(ctx, record("POL-3002", 0.7, "REGISTRY_V2"), nil))

	var count int64
	require.NoError(t, db.Model(&predictionDBM{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "re-delivery must converge to one row")

	got, err := repo.GetPrediction(ctx, "POL-3002")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.7, got.RiskScore)
	assert.Equal(t, "REGISTRY_V2", got.ModelVersion)
	assert.Equal(t, constants.RiskLevelHigh, got.RiskLevel)
}

func TestUpsertStoresFeatureSnapshot(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	snapshot := map[string]interface{}{
		"mib_code_count":  1,
		"mib_has_hit":     true,
		"rx_unique_drugs": 4,
	}
	require.NoError(t, repo.UpsertPrediction(ctx, record("POL-3003", 0.5, "REGISTRY_V2"), snapshot))

	var dbm predictionDBM
	require.NoError(t, db.Where("policy_number = ?", "POL-3003").First(&dbm).Error)

	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(dbm.Features), &stored))
	assert.Equal(t, true, stored["mib_has_hit"])
	assert.EqualValues(t, 4, stored["rx_unique_drugs"])
}

func TestUpsertDistinctPoliciesKeepSeparateRows(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertPrediction(ctx, record("POL-A", 0.1, constants.FallbackModelVersion), nil))
	require.NoError(t, repo.UpsertPrediction(ctx, record("POL-B", 0.9, "REGISTRY_V2"), nil))

	var count int64
	require.NoError(t, db.Model(&predictionDBM{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
