package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/infrastructure/monitoring"
	"github.com/turtacn/riskpulse/pkg/constants"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// RecordCache caches successful provider responses keyed by business identity
// and provider. Failed responses are never cached.
type RecordCache interface {
	Get(ctx context.Context, identityHash string, id constants.ProviderID) (models.ExternalDataRecord, bool)
	Set(ctx context.Context, identityHash string, record models.ExternalDataRecord)
}

// twoTierCache layers an in-process go-cache L1 over a shared redis L2. The L1
// TTL is kept short so instances converge on the redis copy quickly.
type twoTierCache struct {
	local    *gocache.Cache
	redis    *redis.Client
	ttl      time.Duration
	localTTL time.Duration
	metrics  *monitoring.Metrics
	log      logger.Logger
}

// NewRecordCache creates the two-tier provider response cache. A nil redis
// client degrades to L1 only.
func NewRecordCache(rdb *redis.Client, ttl, localTTL time.Duration, metrics *monitoring.Metrics, log logger.Logger) RecordCache {
	if ttl <= 0 {
		ttl = constants.DefaultProviderCacheTTL
	}
	if localTTL <= 0 {
		localTTL = constants.DefaultLocalCacheTTL
	}
	return &twoTierCache{
		local:    gocache.New(localTTL, 2*localTTL),
		redis:    rdb,
		ttl:      ttl,
		localTTL: localTTL,
		metrics:  metrics,
		log:      log.WithComponent("aggregator.cache"),
	}
}

func cacheKey(identityHash string, id constants.ProviderID) string {
	return fmt.Sprintf("riskpulse:provider:%s:%s", identityHash, id)
}

func (c *twoTierCache) Get(ctx context.Context, identityHash string, id constants.ProviderID) (models.ExternalDataRecord, bool) {
	key := cacheKey(identityHash, id)

	if v, ok := c.local.Get(key); ok {
		c.metrics.ObserveCacheLookup("local", true)
		record := v.(models.ExternalDataRecord)
		record.FromCache = true
		return record, true
	}
	c.metrics.ObserveCacheLookup("local", false)

	if c.redis == nil {
		return models.ExternalDataRecord{}, false
	}

	payload, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn(ctx, "redis cache read failed", logger.String("key", key), logger.String("error", err.Error()))
		}
		c.metrics.ObserveCacheLookup("redis", false)
		return models.ExternalDataRecord{}, false
	}

	var record models.ExternalDataRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		c.log.Warn(ctx, "redis cache entry corrupt, dropping", logger.String("key", key))
		c.redis.Del(ctx, key)
		c.metrics.ObserveCacheLookup("redis", false)
		return models.ExternalDataRecord{}, false
	}

	c.metrics.ObserveCacheLookup("redis", true)
	c.local.Set(key, record, c.localTTL)
	record.FromCache = true
	return record, true
}

func (c *twoTierCache) Set(ctx context.Context, identityHash string, record models.ExternalDataRecord) {
	if !record.Succeeded {
		return
	}
	key := cacheKey(identityHash, record.ProviderID)
	c.local.Set(key, record, c.localTTL)

	if c.redis == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn(ctx, "redis cache write failed", logger.String("key", key), logger.String("error", err.Error()))
	}
}
