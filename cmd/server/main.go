// riskd is a low-latency underwriting risk inference service. It scores a
// policy from two raw XML documents (a medical-bureau report and a
// prescription history) via a remote model registry with a deterministic
// rule-based fallback, then persists features and predictions off the
// response path.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/underwritex/riskd/internal/application/service"
	"github.com/underwritex/riskd/internal/config"
	"github.com/underwritex/riskd/internal/domain/repository"
	domainservice "github.com/underwritex/riskd/internal/domain/service"
	"github.com/underwritex/riskd/internal/infrastructure/events"
	"github.com/underwritex/riskd/internal/infrastructure/inference"
	"github.com/underwritex/riskd/internal/infrastructure/monitoring"
	"github.com/underwritex/riskd/internal/infrastructure/persistence/postgres"
	"github.com/underwritex/riskd/internal/infrastructure/persistence/redis"
	"github.com/underwritex/riskd/internal/infrastructure/sink"
	httpiface "github.com/underwritex/riskd/internal/interfaces/http"
	"github.com/underwritex/riskd/internal/interfaces/http/handlers"
	"github.com/underwritex/riskd/pkg/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "riskd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(logger.NewNoopLogger())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log.Info(ctx, "Starting riskd",
		logger.String("version", version),
		logger.String("environment", cfg.Server.Environment),
		logger.Bool("model_enabled", cfg.Model.Enabled),
	)

	shutdownTracer, err := monitoring.InitTracer(&cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "Tracer shutdown failed", err)
		}
	}()

	metrics := monitoring.NewMetrics()

	// Datastores are best-effort collaborators: scoring works without them,
	// so a dependency down at boot degrades the sink and lookup paths
	// instead of blocking startup.
	var (
		dbPinger       handlers.Pinger
		redisPinger    handlers.Pinger
		predictionRepo repository.PredictionRepository
		sinkCache      sink.ResultCache
		lookupCache    service.LatestCache
		publisher      sink.EventPublisher
	)

	dbConn, err := postgres.NewDBConnection(ctx, &cfg.Database, log)
	if err != nil {
		log.Warn(ctx, "PostgreSQL unavailable at startup; persistence and lookup degrade",
			logger.String("error", err.Error()))
	} else {
		defer dbConn.Close()
		dbPinger = dbConn
		predictionRepo = postgres.NewPredictionRepository(dbConn.DB())
	}

	redisConn, err := redis.NewConnection(&cfg.Redis, log)
	if err != nil {
		log.Warn(ctx, "Redis unavailable at startup; result caching degrades",
			logger.String("error", err.Error()))
	} else {
		defer redisConn.Close()
		redisPinger = redisConn
		predictionCache := redis.NewPredictionCache(redisConn, cfg.Sink.ResultTTL, log)
		sinkCache = predictionCache
		lookupCache = predictionCache
	}

	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka, log)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	persistenceSink := sink.New(cfg.Sink, predictionRepo, sinkCache, publisher, metrics, log)
	persistenceSink.Start()
	defer persistenceSink.Stop()

	extractor := domainservice.NewFeatureExtractor()
	scorer := domainservice.NewRuleScorer(cfg.Scorer)

	var client domainservice.InferenceClient
	if cfg.Model.Enabled {
		client = inference.NewRegistryClient(cfg.Model, log)
	}

	predictService := service.NewPredictAppService(
		cfg.Model, extractor, scorer, client, persistenceSink, metrics, log)
	lookupService := service.NewLookupAppService(time.Minute, lookupCache, predictionRepo, log)

	predictHandler := handlers.NewPredictHandler(predictService, lookupService, log)
	healthHandler := handlers.NewHealthHandler(dbPinger, redisPinger, version, log)

	router := httpiface.NewRouter(cfg, log, predictHandler, healthHandler)

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(signalCtx)
	g.Go(func() error {
		if err := router.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "Shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return router.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info(ctx, "riskd stopped")
	return nil
}
