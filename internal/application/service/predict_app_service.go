// Package service contains the application services orchestrating the
// inference pipeline: feature extraction, remote-or-fallback scoring, and
// asynchronous persistence.
package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/underwritex/riskd/internal/application/dto"
	"github.com/underwritex/riskd/internal/config"
	"github.com/underwritex/riskd/internal/domain/models"
	domainservice "github.com/underwritex/riskd/internal/domain/service"
	"github.com/underwritex/riskd/internal/infrastructure/monitoring"
	"github.com/underwritex/riskd/internal/infrastructure/sink"
	"github.com/underwritex/riskd/pkg/constants"
	"github.com/underwritex/riskd/pkg/errors"
	"github.com/underwritex/riskd/pkg/logger"
)

// PredictAppService orchestrates one scoring request end to end: extract a
// feature vector from the two documents, score it remotely with the
// rule-based scorer as the recovery path, enqueue persistence, and shape the
// response. The synchronous path never touches a datastore.
type PredictAppService struct {
	modelCfg  config.ModelConfig
	extractor *domainservice.FeatureExtractor
	scorer    *domainservice.RuleScorer
	client    domainservice.InferenceClient
	sink      *sink.Sink
	metrics   *monitoring.Metrics
	log       logger.Logger
}

// NewPredictAppService creates a PredictAppService. client may be nil when
// remote inference is disabled; snk may be nil in tests that assert the
// synchronous path alone.
func NewPredictAppService(
	modelCfg config.ModelConfig,
	extractor *domainservice.FeatureExtractor,
	scorer *domainservice.RuleScorer,
	client domainservice.InferenceClient,
	snk *sink.Sink,
	metrics *monitoring.Metrics,
	log logger.Logger,
) *PredictAppService {
	return &PredictAppService{
		modelCfg:  modelCfg,
		extractor: extractor,
		scorer:    scorer,
		client:    client,
		sink:      snk,
		metrics:   metrics,
		log:       log.WithComponent("predict_service"),
	}
}

// Predict scores one request. It always produces a response: remote failures
// of any kind degrade to the rule-based fallback, and persistence happens
// after the response is assembled, off the caller's path.
func (s *PredictAppService) Predict(ctx context.Context, req dto.PredictRequest) (*dto.PredictResponse, error) {
	start := time.Now()

	if strings.TrimSpace(req.PolicyNumber) == "" {
		return nil, errors.ErrInvalidRequest.WithMessage("policy_number is required")
	}

	fv := s.extractor.Extract(req.MIBXML, req.RXXML)
	result := s.score(ctx, fv)
	result.LatencyMS = float64(time.Since(start).Microseconds()) / 1000.0

	record := &models.PredictionRecord{
		PolicyNumber: req.PolicyNumber,
		RiskScore:    result.Score,
		RiskLevel:    constants.LevelForScore(result.Score),
		ModelName:    constants.ModelName,
		ModelVersion: result.ModelVersion,
		InferenceMS:  result.LatencyMS,
		ScoredAt:     time.Now().UTC(),
	}

	s.metrics.RecordPredict(string(result.Source), "success", time.Since(start))

	if s.sink != nil {
		s.sink.Enqueue(sink.Job{
			Record:   record,
			Snapshot: fv.Snapshot(),
			Source:   result.Source,
		})
	}

	s.log.Debug(ctx, "Request scored",
		logger.String("policy_number", req.PolicyNumber),
		logger.String("source", string(result.Source)),
		logger.String("model_version", result.ModelVersion),
		logger.Float64("risk_score", result.Score),
		logger.Float64("inference_ms", result.LatencyMS),
	)

	return &dto.PredictResponse{
		PolicyNumber: record.PolicyNumber,
		RiskScore:    record.RiskScore,
		RiskLevel:    string(record.RiskLevel),
		ModelVersion: record.ModelVersion,
		InferenceMS:  record.InferenceMS,
		FeatureCount: fv.FeatureCount(),
	}, nil
}

// PredictBatch scores every row of a warehouse batch envelope in order. Rows
// are independent; one row's fallback never affects another.
func (s *PredictAppService) PredictBatch(ctx context.Context, rows []dto.ServiceFunctionRow) (*dto.ServiceFunctionResponse, error) {
	out := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		resp, err := s.Predict(ctx, dto.PredictRequest{
			PolicyNumber: row.PolicyNumber,
			MIBXML:       row.MIBXML,
			RXXML:        row.RXXML,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, []interface{}{row.Index, resp})
	}
	return &dto.ServiceFunctionResponse{Data: out}, nil
}

// score runs the remote-first, fallback-second scoring decision. The returned
// result always carries a score in [0,1] and a non-empty model version.
func (s *PredictAppService) score(ctx context.Context, fv *models.FeatureVector) models.InferenceResult {
	if !s.modelCfg.Enabled || s.client == nil {
		return models.Fallback(s.scorer.Score(fv))
	}

	score, version, err := s.client.Infer(ctx, fv)
	if err != nil {
		reason := fallbackReason(err)
		s.metrics.RecordFallback(reason)
		s.log.Warn(ctx, "Remote inference failed, using rule-based fallback",
			logger.String("reason", reason),
			logger.String("error", err.Error()),
		)
		return models.Fallback(s.scorer.Score(fv))
	}
	return models.Remote(score, version)
}

// fallbackReason buckets a remote failure for the fallback counter.
func fallbackReason(err error) string {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case stderrors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "model_error"
	}
}
