package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/underwritex/riskd/internal/domain/models"
	"github.com/underwritex/riskd/internal/domain/repository"
	"github.com/underwritex/riskd/pkg/constants"
)

// predictionDBM is the database model for the prediction_records table.
// The feature snapshot is stored alongside the record so a scored request is
// fully reproducible from one row.
type predictionDBM struct {
	PolicyNumber string `gorm:"primaryKey"`
	RiskScore    float64
	RiskLevel    string
	ModelName    string
	ModelVersion string
	InferenceMS  float64
	Features     string `gorm:"type:jsonb"`
	ScoredAt     time.Time
	UpdatedAt    time.Time
}

func (predictionDBM) TableName() string {
	return "prediction_records"
}

func (dbm *predictionDBM) toDomain() *models.PredictionRecord {
	return &models.PredictionRecord{
		PolicyNumber: dbm.PolicyNumber,
		RiskScore:    dbm.RiskScore,
		RiskLevel:    constants.RiskLevel(dbm.RiskLevel),
		ModelName:    dbm.ModelName,
		ModelVersion: dbm.ModelVersion,
		InferenceMS:  dbm.InferenceMS,
		ScoredAt:     dbm.ScoredAt,
	}
}

// PredictionRepository is the PostgreSQL implementation of
// repository.PredictionRepository.
type PredictionRepository struct {
	db *gorm.DB
}

// NewPredictionRepository creates a PredictionRepository.
func NewPredictionRepository(db *gorm.DB) repository.PredictionRepository {
	return &PredictionRepository{db: db}
}

// UpsertPrediction creates or replaces the record for record.PolicyNumber.
// Re-delivery of the same request converges to one row, last write wins.
func (r *PredictionRepository) UpsertPrediction(ctx context.Context, record *models.PredictionRecord, snapshot map[string]interface{}) error {
	features, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	dbm := &predictionDBM{
		PolicyNumber: record.PolicyNumber,
		RiskScore:    record.RiskScore,
		RiskLevel:    string(record.RiskLevel),
		ModelName:    record.ModelName,
		ModelVersion: record.ModelVersion,
		InferenceMS:  record.InferenceMS,
		Features:     string(features),
		ScoredAt:     record.ScoredAt,
		UpdatedAt:    time.Now(),
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "policy_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"risk_score", "risk_level", "model_name", "model_version",
			"inference_ms", "features", "scored_at", "updated_at",
		}),
	}).Create(dbm).Error
}

// GetPrediction retrieves the stored record, or (nil, nil) when absent.
func (r *PredictionRepository) GetPrediction(ctx context.Context, policyNumber string) (*models.PredictionRecord, error) {
	var dbm predictionDBM
	if err := r.db.WithContext(ctx).Where("policy_number = ?", policyNumber).First(&dbm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return dbm.toDomain(), nil
}
