package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
	"github.com/turtacn/riskpulse/pkg/logger"
)

const (
	keyPrefix         = "riskpulse:"
	idempotencyPrefix = keyPrefix + "idem:"
)

// CacheManager wraps the redis client with JSON serialization and the
// service's key conventions.
type CacheManager struct {
	client *redis.Client
	log    logger.Logger
}

// NewCacheManager creates a cache manager over an open client.
func NewCacheManager(client *redis.Client, log logger.Logger) *CacheManager {
	return &CacheManager{client: client, log: log.WithComponent("redis.cache")}
}

// Set stores a JSON-serialized value under the service prefix.
func (c *CacheManager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return pkgerrors.ErrInternal(err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, payload, ttl).Err(); err != nil {
		return pkgerrors.ErrInternal(err)
	}
	return nil
}

// Get loads a value into out. Returns a not_found AppError on a cache miss.
func (c *CacheManager) Get(ctx context.Context, key string, out interface{}) error {
	payload, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return pkgerrors.ErrNotFound("cache entry", key)
		}
		return pkgerrors.ErrInternal(err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return pkgerrors.ErrInternal(err)
	}
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (c *CacheManager) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return pkgerrors.ErrInternal(err)
	}
	return nil
}

// Exists reports whether a key is present.
func (c *CacheManager) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, pkgerrors.ErrInternal(err)
	}
	return n > 0, nil
}

// ================================================================================
// Idempotency
// ================================================================================

// ClaimIdempotencyKey atomically claims an Idempotency-Key for an assessment
// id. Returns the previously stored id and false when the key was already
// claimed, so the caller can replay the original response.
func (c *CacheManager) ClaimIdempotencyKey(ctx context.Context, key, assessmentID string) (string, bool, error) {
	ok, err := c.client.SetNX(ctx, idempotencyPrefix+key, assessmentID, constants.DefaultIdempotencyTTL).Result()
	if err != nil {
		return "", false, pkgerrors.ErrInternal(err)
	}
	if ok {
		return assessmentID, true, nil
	}

	existing, err := c.client.Get(ctx, idempotencyPrefix+key).Result()
	if err != nil {
		if err == redis.Nil {
			// Claim expired between SetNX and Get. Treat as a fresh claim.
			return c.ClaimIdempotencyKey(ctx, key, assessmentID)
		}
		return "", false, pkgerrors.ErrInternal(err)
	}
	return existing, false, nil
}

// ReleaseIdempotencyKey drops a claim, e.g. when the claimed request failed
// before an assessment was created.
func (c *CacheManager) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, idempotencyPrefix+key).Err(); err != nil {
		return pkgerrors.ErrInternal(err)
	}
	return nil
}
