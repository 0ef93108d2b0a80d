// Package events publishes prediction events to Kafka for downstream drift
// monitoring. Publishing is best-effort: the stream is an observer of the
// pipeline, never a dependency of the response path.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/underwritex/riskd/internal/config"
	"github.com/underwritex/riskd/internal/domain/models"
	"github.com/underwritex/riskd/pkg/constants"
	"github.com/underwritex/riskd/pkg/logger"
)

// Publisher emits one event per scored request.
type Publisher interface {
	PublishPrediction(ctx context.Context, record *models.PredictionRecord, source constants.ScoreSource) error
	Close() error
}

// predictionEvent is the wire shape of a prediction event.
type predictionEvent struct {
	PolicyNumber string    `json:"policy_number"`
	RiskScore    float64   `json:"risk_score"`
	RiskLevel    string    `json:"risk_level"`
	ModelName    string    `json:"model_name"`
	ModelVersion string    `json:"model_version"`
	Source       string    `json:"source"`
	InferenceMS  float64   `json:"inference_ms"`
	ScoredAt     time.Time `json:"scored_at"`
}

// KafkaPublisher is the kafka-go backed Publisher.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    logger.Logger
}

// NewKafkaPublisher creates a KafkaPublisher.
func NewKafkaPublisher(cfg config.KafkaConfig, log logger.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		Async:        true,
	}
	return &KafkaPublisher{
		writer: writer,
		log:    log.WithComponent("kafka_publisher"),
	}
}

// PublishPrediction emits the event keyed by policy number so per-policy
// ordering holds for consumers that care.
func (p *KafkaPublisher) PublishPrediction(ctx context.Context, record *models.PredictionRecord, source constants.ScoreSource) error {
	payload, err := json.Marshal(predictionEvent{
		PolicyNumber: record.PolicyNumber,
		RiskScore:    record.RiskScore,
		RiskLevel:    string(record.RiskLevel),
		ModelName:    record.ModelName,
		ModelVersion: record.ModelVersion,
		Source:       string(source),
		InferenceMS:  record.InferenceMS,
		ScoredAt:     record.ScoredAt,
	})
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.PolicyNumber),
		Value: payload,
	})
	if err != nil {
		p.log.Error(ctx, "Failed to publish prediction event", err,
			logger.String("policy_number", record.PolicyNumber))
	}
	return err
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
