package service

import (
	"context"

	"github.com/underwritex/riskd/internal/domain/models"
)

// InferenceClient calls the remote model-registry endpoint. Implementations
// must classify every failure mode (connection refused, deadline exceeded,
// non-2xx status, malformed body, missing output field) uniformly as
// errors.ErrModelUnavailable; the orchestrator needs no finer taxonomy.
type InferenceClient interface {
	// Infer scores the feature vector remotely. The call is bounded by the
	// client's configured timeout and by ctx cancellation, whichever fires
	// first.
	Infer(ctx context.Context, fv *models.FeatureVector) (score float64, modelVersion string, err error)
}
