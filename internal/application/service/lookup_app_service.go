package service

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/underwritex/riskd/internal/domain/models"
	"github.com/underwritex/riskd/internal/domain/repository"
	"github.com/underwritex/riskd/pkg/errors"
	"github.com/underwritex/riskd/pkg/logger"
)

// LatestCache reads the latest prediction per policy number from the shared
// cache tier. It is satisfied by the redis prediction cache.
type LatestCache interface {
	Get(ctx context.Context, policyNumber string) (*models.PredictionRecord, error)
}

// LookupAppService serves prediction lookups through three tiers: an
// in-process hot cache, the shared redis cache, and the database. Hits
// populate the tiers above them. Cache-tier failures degrade to the next
// tier rather than failing the lookup.
type LookupAppService struct {
	hot   *gocache.Cache
	cache LatestCache
	repo  repository.PredictionRepository
	log   logger.Logger
}

// NewLookupAppService creates a LookupAppService. cache may be nil when
// redis is not deployed; repo may be nil in degraded test setups.
func NewLookupAppService(hotTTL time.Duration, cache LatestCache, repo repository.PredictionRepository, log logger.Logger) *LookupAppService {
	return &LookupAppService{
		hot:   gocache.New(hotTTL, 2*hotTTL),
		cache: cache,
		repo:  repo,
		log:   log.WithComponent("lookup_service"),
	}
}

// GetPrediction returns the latest stored prediction for a policy number or
// errors.ErrNotFound when no tier holds one.
func (s *LookupAppService) GetPrediction(ctx context.Context, policyNumber string) (*models.PredictionRecord, error) {
	if policyNumber == "" {
		return nil, errors.ErrInvalidRequest.WithMessage("policy_number is required")
	}

	if cached, found := s.hot.Get(policyNumber); found {
		record := cached.(models.PredictionRecord)
		return &record, nil
	}

	if s.cache != nil {
		record, err := s.cache.Get(ctx, policyNumber)
		if err != nil {
			s.log.Warn(ctx, "Cache lookup failed, falling through to database",
				logger.String("policy_number", policyNumber),
				logger.String("error", err.Error()),
			)
		} else if record != nil {
			s.hot.SetDefault(policyNumber, *record)
			return record, nil
		}
	}

	if s.repo != nil {
		record, err := s.repo.GetPrediction(ctx, policyNumber)
		if err != nil {
			return nil, errors.ErrPersistence.WithError(err)
		}
		if record != nil {
			s.hot.SetDefault(policyNumber, *record)
			return record, nil
		}
	}

	return nil, errors.ErrNotFound
}
