package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache key prefixes.
const (
	// CacheKeyAppointment is the prefix for appointment caches: appointment:{id}
	CacheKeyAppointment = "appointment"
	// CacheKeyCircuit is the prefix for breaker state mirrors: circuit:{name}
	CacheKeyCircuit = "circuit"
)

// TTLAppointment is the default TTL for appointment caches.
const TTLAppointment = 5 * time.Minute

// ErrCacheNotFound is returned when a cache key does not exist
var ErrCacheNotFound = errors.New("cache: key not found")

// errNoRedis is returned by every operation when Redis was not configured.
var errNoRedis = errors.New("cache: redis client is nil")

// generationTTL bounds how long a write generation outlives its last bump.
// It must exceed any cache TTL so an expiring counter cannot match a stale reader.
const generationTTL = 24 * time.Hour

// CacheClient defines the interface for cache operations.
// Implementations must be thread-safe and handle serialization/deserialization.
//
// Every key carries a write generation. Writers call Invalidate, which drops
// the cached value and advances the generation; readers filling the cache
// after a database read use SetIfGeneration with the generation they saw
// before the read, so a value loaded before a concurrent write is never stored.
type CacheClient interface {
	// Get retrieves a value from cache and deserializes it into dest.
	// Returns ErrCacheNotFound if key doesn't exist.
	Get(ctx context.Context, key string, dest interface{}) error

	// Generation returns the write generation of key, zero if it was never invalidated.
	Generation(ctx context.Context, key string) (int64, error)

	// SetIfGeneration stores value with ttl only while the generation of key
	// is still gen. It reports whether the value was stored.
	SetIfGeneration(ctx context.Context, key string, gen int64, value interface{}, ttl time.Duration) (bool, error)

	// Invalidate removes keys and advances their generations.
	Invalidate(ctx context.Context, keys ...string) error
}

// redisCache is the Redis-based implementation of CacheClient.
type redisCache struct {
	client *redis.Client
}

// NewCacheClient creates a new Redis-based cache client.
// If the Redis client is nil, cache operations will gracefully fail.
func NewCacheClient(rdb *redis.Client) CacheClient {
	return &redisCache{
		client: rdb,
	}
}

func generationKey(key string) string {
	return key + ":gen"
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return errNoRedis
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache: failed to get key %s: %w", key, err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("cache: failed to unmarshal value for key %s: %w", key, err)
	}
	return nil
}

func (c *redisCache) Generation(ctx context.Context, key string) (int64, error) {
	if c.client == nil {
		return 0, errNoRedis
	}

	gen, err := c.client.Get(ctx, generationKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache: failed to get generation of key %s: %w", key, err)
	}
	return gen, nil
}

func (c *redisCache) SetIfGeneration(ctx context.Context, key string, gen int64, value interface{}, ttl time.Duration) (bool, error) {
	if c.client == nil {
		return false, errNoRedis
	}

	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("cache: failed to marshal value for key %s: %w", key, err)
	}

	genKey := generationKey(key)
	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		}); err != nil {
			return err
		}
		stored = true
		return nil
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: failed to set key %s: %w", key, err)
	}
	return stored, nil
}

func (c *redisCache) Invalidate(ctx context.Context, keys ...string) error {
	if c.client == nil {
		return errNoRedis
	}
	if len(keys) == 0 {
		return nil
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			genKey := generationKey(key)
			pipe.Incr(ctx, genKey)
			pipe.Expire(ctx, genKey, generationTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: failed to invalidate keys %v: %w", keys, err)
	}
	return nil
}

// BuildCacheKey constructs a cache key with the appropriate prefix.
//   - BuildCacheKey(CacheKeyAppointment, "9f1c") -> "appointment:9f1c"
//   - BuildCacheKey(CacheKeyCircuit, "insurance", "trips") -> "circuit:insurance:trips"
func BuildCacheKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}
