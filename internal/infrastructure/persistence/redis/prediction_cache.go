package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/underwritex/riskd/internal/domain/models"
	"github.com/underwritex/riskd/pkg/errors"
	"github.com/underwritex/riskd/pkg/logger"
)

// PredictionCache keeps the latest prediction record per policy number in
// redis for low-latency lookups. SET on the per-policy key gives the same
// last-write-wins idempotence as the database upsert.
type PredictionCache struct {
	conn *Connection
	ttl  time.Duration
	log  logger.Logger
}

// NewPredictionCache creates a PredictionCache with the given entry TTL.
func NewPredictionCache(conn *Connection, ttl time.Duration, log logger.Logger) *PredictionCache {
	return &PredictionCache{
		conn: conn,
		ttl:  ttl,
		log:  log.WithComponent("prediction_cache"),
	}
}

func cacheKey(policyNumber string) string {
	return fmt.Sprintf("prediction:latest:%s", policyNumber)
}

// Set stores the record as the latest prediction for its policy number.
func (c *PredictionCache) Set(ctx context.Context, record *models.PredictionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.ErrCache.WithError(err)
	}
	if err := c.conn.Client().Set(ctx, cacheKey(record.PolicyNumber), payload, c.ttl).Err(); err != nil {
		return errors.ErrCache.WithError(err)
	}
	return nil
}

// Get retrieves the latest prediction for a policy number, or (nil, nil)
// when no entry exists.
func (c *PredictionCache) Get(ctx context.Context, policyNumber string) (*models.PredictionRecord, error) {
	val, err := c.conn.Client().Get(ctx, cacheKey(policyNumber)).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, errors.ErrCache.WithError(err)
	}

	var record models.PredictionRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, errors.ErrCache.WithError(err)
	}
	return &record, nil
}
