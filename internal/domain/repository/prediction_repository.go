// Package repository defines the persistence interfaces of the domain layer.
package repository

import (
	"context"

	"github.com/underwritex/riskd/internal/domain/models"
)

// PredictionRepository stores prediction records and their feature snapshots.
// Writes are idempotent on policy number: repeated persistence of the same
// request converges to one stored record (last write wins), never two.
type PredictionRepository interface {
	// UpsertPrediction creates or replaces the record and feature snapshot
	// for record.PolicyNumber.
	UpsertPrediction(ctx context.Context, record *models.PredictionRecord, snapshot map[string]interface{}) error

	// GetPrediction retrieves the stored record for a policy number.
	// A missing record returns (nil, nil) so callers can fall through to
	// other lookups without error handling.
	GetPrediction(ctx context.Context, policyNumber string) (*models.PredictionRecord, error)
}
