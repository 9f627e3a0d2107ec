package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/kate-fie/fragment-network-merges/internal/infrastructure/monitoring/logging"
	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New(errors.CodeNotFound, "cache miss")

// store is the narrow Redis command surface the cache needs; tests substitute
// an in-memory map.
type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type redisStore struct {
	rdb redis.UniversalClient
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	return s.rdb.Get(ctx, key).Result()
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// Cache is a JSON read-through cache over Redis.  Concurrent loads of the
// same key are collapsed through singleflight so a popular fragment pair hits
// the graph once.
type Cache struct {
	store      store
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
	group      singleflight.Group
}

// NewCache builds a cache on the given client.
func NewCache(client *Client, prefix string, defaultTTL time.Duration, log logging.Logger) *Cache {
	if prefix == "" {
		prefix = "fnm"
	}
	if defaultTTL == 0 {
		defaultTTL = 24 * time.Hour
	}
	return &Cache{
		store:      &redisStore{rdb: client.Underlying()},
		logger:     log.Named("cache"),
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

func newCacheWithStore(s store, prefix string, ttl time.Duration, log logging.Logger) *Cache {
	return &Cache{store: s, logger: log, prefix: prefix, defaultTTL: ttl}
}

func (c *Cache) fullKey(key string) string { return c.prefix + ":" + key }

// jitterTTL spreads expiry by ±10% so a catalogue reload does not expire every
// key in the same second.
func (c *Cache) jitterTTL(ttl time.Duration) time.Duration {
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

// Get unmarshals the cached value for key into dest.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.store.Get(ctx, c.fullKey(key))
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "cache get failed")
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "cache value unmarshal failed")
	}
	return nil
}

// Set stores value under key with the default TTL (jittered).
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "cache value marshal failed")
	}
	if err := c.store.Set(ctx, c.fullKey(key), string(data), c.jitterTTL(c.defaultTTL)); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "cache set failed")
	}
	return nil
}

// GetOrLoad returns the cached value for key, loading and caching it on a
// miss.  Cache failures degrade to the loader rather than failing the query.
func (c *Cache) GetOrLoad(ctx context.Context, key string, dest any, loader func(ctx context.Context) (any, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if err != ErrCacheMiss {
		c.logger.Warn("cache read failed, falling through to loader",
			logging.String("key", key), logging.Err(err))
	}

	val, err, _ := c.group.Do(key, func() (any, error) {
		v, loadErr := loader(ctx)
		if loadErr != nil {
			return nil, loadErr
		}
		if setErr := c.Set(ctx, key, v); setErr != nil {
			c.logger.Warn("cache write failed", logging.String("key", key), logging.Err(setErr))
		}
		return v, nil
	})
	if err != nil {
		return err
	}

	// Round-trip through JSON to populate dest regardless of which goroutine's
	// loader produced the value.
	data, err := json.Marshal(val)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "loader value marshal failed")
	}
	return json.Unmarshal(data, dest)
}
