// Package redis provides the redis-backed latest-prediction cache and its
// connection lifecycle management.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/underwritex/riskd/internal/config"
	"github.com/underwritex/riskd/pkg/logger"
)

// Connection manages the redis client lifecycle.
type Connection struct {
	client *redis.Client
	log    logger.Logger
}

// NewConnection creates the redis client and verifies connectivity.
func NewConnection(cfg *config.RedisConfig, log logger.Logger) (*Connection, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	log.Info(ctx, "Redis connection established",
		logger.String("addr", cfg.Addr),
		logger.Int("pool_size", cfg.PoolSize),
	)
	return &Connection{client: client, log: log.WithComponent("redis")}, nil
}

// Client returns the underlying redis client.
func (c *Connection) Client() *redis.Client {
	return c.client
}

// Ping checks redis connectivity.
func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client and its pool.
func (c *Connection) Close() error {
	return c.client.Close()
}
