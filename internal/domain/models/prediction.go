package models

import (
	"time"

	"github.com/underwritex/riskd/pkg/constants"
)

// InferenceResult is the outcome of the scoring stage for one request.
// Source REMOTE implies ModelVersion is the registry tag reported by the
// model endpoint; Source FALLBACK implies the fallback sentinel version.
type InferenceResult struct {
	Score        float64
	Source       constants.ScoreSource
	ModelVersion string
	LatencyMS    float64
}

// Fallback builds the InferenceResult for a rule-based score.
func Fallback(score float64) InferenceResult {
	return InferenceResult{
		Score:        score,
		Source:       constants.ScoreSourceFallback,
		ModelVersion: constants.FallbackModelVersion,
	}
}

// Remote builds the InferenceResult for a registry score.
func Remote(score float64, modelVersion string) InferenceResult {
	return InferenceResult{
		Score:        score,
		Source:       constants.ScoreSourceRemote,
		ModelVersion: modelVersion,
	}
}

// PredictionRecord is the persisted outcome of a scoring request. One record
// exists per policy number; re-delivery of the same request overwrites the
// previous record (last write wins) rather than appending a duplicate.
type PredictionRecord struct {
	PolicyNumber string              `json:"policy_number"`
	RiskScore    float64             `json:"risk_score"`
	RiskLevel    constants.RiskLevel `json:"risk_level"`
	ModelName    string              `json:"model_name"`
	ModelVersion string              `json:"model_version"`
	InferenceMS  float64             `json:"inference_ms"`
	ScoredAt     time.Time           `json:"scored_at"`
}
