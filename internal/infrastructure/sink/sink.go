// Package sink implements the asynchronous persistence path. The
// orchestrator enqueues one job per scored request and returns immediately;
// worker goroutines drain the queue and perform the best-effort writes
// (database upsert, cache set, event publish). Persistence latency and
// failure are fully isolated from the response path.
package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/underwritex/riskd/internal/config"
	"github.com/underwritex/riskd/internal/domain/models"
	"github.com/underwritex/riskd/internal/domain/repository"
	"github.com/underwritex/riskd/internal/infrastructure/monitoring"
	"github.com/underwritex/riskd/pkg/constants"
	"github.com/underwritex/riskd/pkg/logger"
)

// ResultCache stores the latest prediction per policy number.
type ResultCache interface {
	Set(ctx context.Context, record *models.PredictionRecord) error
}

// EventPublisher emits one event per scored request.
type EventPublisher interface {
	PublishPrediction(ctx context.Context, record *models.PredictionRecord, source constants.ScoreSource) error
}

// Job is one persistence unit of work. The snapshot is an owned copy; the
// request's FeatureVector is never shared with the sink.
type Job struct {
	Record   *models.PredictionRecord
	Snapshot map[string]interface{}
	Source   constants.ScoreSource
}

// Sink is the bounded-queue persistence worker pool. Enqueue never blocks:
// when the queue is full the oldest queued job is dropped, logged, and
// counted. Any of repo, cache, or publisher may be nil; the corresponding
// write is skipped.
type Sink struct {
	cfg       config.SinkConfig
	repo      repository.PredictionRepository
	cache     ResultCache
	publisher EventPublisher
	metrics   *monitoring.Metrics
	log       logger.Logger

	jobs   chan Job
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates a Sink. Start must be called before Enqueue delivers anything.
func New(
	cfg config.SinkConfig,
	repo repository.PredictionRepository,
	cache ResultCache,
	publisher EventPublisher,
	metrics *monitoring.Metrics,
	log logger.Logger,
) *Sink {
	return &Sink{
		cfg:       cfg,
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		log:       log.WithComponent("persistence_sink"),
		jobs:      make(chan Job, cfg.QueueSize),
	}
}

// Start launches the worker pool.
func (s *Sink) Start() {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

// Enqueue hands a job to the sink without blocking. It reports whether the
// job was accepted; a false return means the job itself was dropped after
// the drop-oldest attempt also failed (only possible under heavy contention).
func (s *Sink) Enqueue(job Job) bool {
	if s.closed.Load() {
		return false
	}

	select {
	case s.jobs <- job:
		s.observeDepth()
		return true
	default:
	}

	// Queue full: drop the oldest queued job to make room. Losing the older
	// snapshot is preferable to losing the newest or blocking the response.
	select {
	case dropped := <-s.jobs:
		s.dropJob(dropped)
	default:
	}

	select {
	case s.jobs <- job:
		s.observeDepth()
		return true
	default:
		s.dropJob(job)
		return false
	}
}

// Stop closes the queue and drains remaining jobs, bounded by the configured
// shutdown grace period.
func (s *Sink) Stop() {
	if s.closed.Swap(true) {
		return
	}
	close(s.jobs)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownGrace):
		s.log.Warn(context.Background(), "Sink shutdown grace expired with jobs still queued",
			logger.Int("remaining", len(s.jobs)))
	}
}

func (s *Sink) worker() {
	defer s.wg.Done()
	for job := range s.jobs {
		s.observeDepth()
		s.process(job)
	}
}

// process performs the three best-effort writes independently: a failure in
// one store never prevents the others.
func (s *Sink) process(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()

	if s.repo != nil {
		if err := s.repo.UpsertPrediction(ctx, job.Record, job.Snapshot); err != nil {
			s.metrics.RecordSinkWriteError("postgres")
			s.log.Error(ctx, "Failed to persist prediction record", err,
				logger.String("policy_number", job.Record.PolicyNumber))
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, job.Record); err != nil {
			s.metrics.RecordSinkWriteError("redis")
			s.log.Error(ctx, "Failed to cache prediction record", err,
				logger.String("policy_number", job.Record.PolicyNumber))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishPrediction(ctx, job.Record, job.Source); err != nil {
			s.metrics.RecordSinkWriteError("kafka")
		}
	}
}

func (s *Sink) dropJob(job Job) {
	s.metrics.SinkDropped.Inc()
	s.log.Warn(context.Background(), "Persistence queue full, dropping job",
		logger.String("policy_number", job.Record.PolicyNumber))
}

func (s *Sink) observeDepth() {
	s.metrics.SinkQueueDepth.Set(float64(len(s.jobs)))
}
