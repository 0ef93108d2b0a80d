package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/underwritex/riskd/internal/application/dto"
	"github.com/underwritex/riskd/internal/config"
	"github.com/underwritex/riskd/internal/domain/models"
	domainservice "github.com/underwritex/riskd/internal/domain/service"
	"github.com/underwritex/riskd/internal/infrastructure/monitoring"
	"github.com/underwritex/riskd/pkg/constants"
	"github.com/underwritex/riskd/pkg/errors"
	"github.com/underwritex/riskd/pkg/logger"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = monitoring.NewMetrics()

type stubInferenceClient struct {
	score   float64
	version string
	err     error
	calls   int
}

func (s *stubInferenceClient) Infer(ctx context.Context, fv *models.FeatureVector) (float64, string, error) {
	s.calls++
	if s.err != nil {
		return 0, "", s.err
	}
	return s.score, s.version, nil
}

func scorerWeights() config.ScorerConfig {
	return config.ScorerConfig{
		MIBHitWeight:  0.15,
		MIBCodeWeight: 0.025, MIBCodeCap: 0.15,
		MIBBMIOver35Weight: 0.10, MIBCardiacWeight: 0.10,
		MIBCancerWeight: 0.15, MIBSubstanceWeight: 0.12,
		RXFillWeight: 0.02, RXFillCap: 0.15,
		RXDrugWeight: 0.02, RXDrugCap: 0.12,
		RXOpioidWeight: 0.15, RXBenzoWeight: 0.10, RXInsulinWeight: 0.12,
		ComboOpioidBenzoBonus: 0.25, ComboHighRiskBonus: 0.15, ComboPolypharmacy10Bonus: 0.10,
	}
}

func newTestService(client domainservice.InferenceClient, enabled bool) *PredictAppService {
	return NewPredictAppService(
		config.ModelConfig{Enabled: enabled, Version: "REGISTRY_V2"},
		domainservice.NewFeatureExtractor(),
		domainservice.NewRuleScorer(scorerWeights()),
		client,
		nil,
		testMetrics,
		logger.NewNoopLogger(),
	)
}

func TestPredictRemoteSuccess(t *testing.T) {
	client := &stubInferenceClient{score: 0.73, version: "REGISTRY_V2"}
	svc := newTestService(client, true)

	resp, err := svc.Predict(context.Background(), dto.PredictRequest{
		PolicyNumber: "POL-1001",
		MIBXML:       "<Response><ResponseData>CODE1</ResponseData></Response>",
		RXXML:        "<IntelRXResponse><DrugFill><DrugGenericName>METFORMIN</DrugGenericName></DrugFill></IntelRXResponse>",
	})

	require.NoError(t, err)
	assert.Equal(t, "POL-1001", resp.PolicyNumber)
	assert.Equal(t, 0.73, resp.RiskScore)
	assert.Equal(t, "HIGH", resp.RiskLevel)
	assert.True(t, strings.HasPrefix(resp.ModelVersion, constants.RegistryVersionPrefix))
	assert.Equal(t, 1, client.calls)
	assert.Greater(t, resp.FeatureCount, 0)
	assert.GreaterOrEqual(t, resp.InferenceMS, 0.0)
}

func TestPredictFallsBackOnRemoteFailure(t *testing.T) {
	failures := []error{
		errors.ErrModelUnavailable,
		errors.ErrModelUnavailable.WithError(context.DeadlineExceeded),
		errors.ErrModelUnavailable.WithError(fmt.Errorf("connection refused")),
	}
	for _, failure := range failures {
		svc := newTestService(&stubInferenceClient{err: failure}, true)

		resp, err := svc.Predict(context.Background(), dto.PredictRequest{
			PolicyNumber: "POL-1002",
			MIBXML:       "<r/>",
			RXXML:        "<r/>",
		})

		require.NoError(t, err, "remote failure must never fail the request")
		assert.Equal(t, constants.FallbackModelVersion, resp.ModelVersion)
		assert.GreaterOrEqual(t, resp.RiskScore, 0.0)
		assert.LessOrEqual(t, resp.RiskScore, 1.0)
	}
}

func TestPredictFallbackWhenModelDisabled(t *testing.T) {
	client := &stubInferenceClient{score: 0.9, version: "REGISTRY_V2"}
	svc := newTestService(client, false)

	resp, err := svc.Predict(context.Background(), dto.PredictRequest{PolicyNumber: "POL-1003"})

	require.NoError(t, err)
	assert.Equal(t, constants.FallbackModelVersion, resp.ModelVersion)
	assert.Equal(t, 0, client.calls, "disabled model must not be called")
}

func TestPredictEmptyDocumentsScoreZero(t *testing.T) {
	svc := newTestService(nil, false)

	resp, err := svc.Predict(context.Background(), dto.PredictRequest{
		PolicyNumber: "POL-1004",
		MIBXML:       "<r/>",
		RXXML:        "<r/>",
	})

	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.RiskScore)
	assert.Equal(t, "LOW", resp.RiskLevel)
	assert.Equal(t, constants.FallbackModelVersion, resp.ModelVersion)
}

func TestPredictRejectsMissingPolicyNumber(t *testing.T) {
	svc := newTestService(nil, false)

	_, err := svc.Predict(context.Background(), dto.PredictRequest{PolicyNumber: "   "})

	require.Error(t, err)
	appErr := errors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrCodeInvalidRequest, appErr.Code)
}

func TestPredictRiskLevelBuckets(t *testing.T) {
	cases := []struct {
		score float64
		level string
	}{
		{0.0, "LOW"},
		{0.29, "LOW"},
		{0.3, "MEDIUM"},
		{0.59, "MEDIUM"},
		{0.6, "HIGH"},
		{1.0, "HIGH"},
	}
	for _, tc := range cases {
		svc := newTestService(&stubInferenceClient{score: tc.score, version: "REGISTRY_V2"}, true)
		resp, err := svc.Predict(context.Background(), dto.PredictRequest{PolicyNumber: "POL-1005"})
		require.NoError(t, err)
		assert.Equal(t, tc.level, resp.RiskLevel, "score %f", tc.score)
	}
}

func TestPredictBatchPreservesRowOrder(t *testing.T) {
	svc := newTestService(nil, false)

	rows := []dto.ServiceFunctionRow{
		{Index: 0, PolicyNumber: "POL-A"},
		{Index: 1, PolicyNumber: "POL-B"},
		{Index: 2, PolicyNumber: "POL-C"},
	}
	resp, err := svc.PredictBatch(context.Background(), rows)

	require.NoError(t, err)
	require.Len(t, resp.Data, 3)
	for i, row := range resp.Data {
		require.Len(t, row, 2)
		assert.Equal(t, i, row[0])
		result := row[1].(*dto.PredictResponse)
		assert.Equal(t, rows[i].PolicyNumber, result.PolicyNumber)
	}
}

func TestFallbackReasonBuckets(t *testing.T) {
	assert.Equal(t, "timeout", fallbackReason(errors.ErrModelUnavailable.WithError(context.DeadlineExceeded)))
	assert.Equal(t, "canceled", fallbackReason(errors.ErrModelUnavailable.WithError(context.Canceled)))
	assert.Equal(t, "model_error", fallbackReason(errors.ErrModelUnavailable))
}
