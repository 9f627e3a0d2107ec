// Package redis provides the expansion query cache.  Fragment-network
// queries are slow and perfectly cacheable: the graph is an immutable
// snapshot between catalogue releases, so identical queries always return
// identical results within a deployment.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kate-fie/fragment-network-merges/internal/config"
	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// Client wraps the go-redis client with config-driven construction and a
// verified connection.
type Client struct {
	rdb    redis.UniversalClient
	logger logging.Logger
}

// NewClient connects to Redis and pings it before returning.
func NewClient(cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCacheError, "failed to connect to redis")
	}

	log.Info("Connected to redis", logging.String("addr", cfg.Addr))
	return &Client{rdb: rdb, logger: log}, nil
}

// Underlying exposes the raw client for operations the wrapper does not cover.
func (c *Client) Underlying() redis.UniversalClient { return c.rdb }

// Ping checks liveness.
func (c *Client) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

// Close releases the connection pool.
func (c *Client) Close() error { return c.rdb.Close() }
