// Package aggregator fans out to the external risk-data providers under the
// resilience envelope: per-call timeouts, a global deadline, per-provider
// circuit breakers, bounded retries, and a two-tier response cache.
package aggregator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/internal/infrastructure/monitoring"
	"github.com/turtacn/riskpulse/internal/infrastructure/providers"
	"github.com/turtacn/riskpulse/internal/infrastructure/resilience"
	"github.com/turtacn/riskpulse/pkg/constants"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// DataAggregator implements service.Aggregator. A provider failure never
// fails the fan-out: the failed provider yields a synthetic unavailable
// record and the assessment proceeds with reduced data quality.
type DataAggregator struct {
	clients  map[constants.ProviderID]providers.Client
	breakers *resilience.BreakerTable
	cache    RecordCache

	globalDeadline time.Duration
	concurrency    int
	retries        map[constants.ProviderID]resilience.RetryPolicy

	metrics *monitoring.Metrics
	log     logger.Logger
}

var _ service.Aggregator = (*DataAggregator)(nil)

// New creates the aggregator over the given provider clients.
func New(
	clients []providers.Client,
	breakers *resilience.BreakerTable,
	cache RecordCache,
	cfg config.AggregatorConfig,
	providerCfg config.ProvidersConfig,
	metrics *monitoring.Metrics,
	log logger.Logger,
) *DataAggregator {
	byID := make(map[constants.ProviderID]providers.Client, len(clients))
	retries := make(map[constants.ProviderID]resilience.RetryPolicy, len(clients))
	for _, c := range clients {
		byID[c.ID()] = c
		maxRetries := providerCfg.ForProvider(c.ID()).MaxRetries
		if maxRetries < 0 {
			maxRetries = 0
		} else if maxRetries == 0 {
			maxRetries = constants.DefaultProviderRetries
		}
		retries[c.ID()] = resilience.DefaultRetryPolicy(maxRetries)
	}

	deadline := cfg.GlobalDeadline
	if deadline <= 0 {
		deadline = constants.DefaultAggregationDeadline
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultAggregationConcurrency
	}

	return &DataAggregator{
		clients:        byID,
		breakers:       breakers,
		cache:          cache,
		globalDeadline: deadline,
		concurrency:    concurrency,
		retries:        retries,
		metrics:        metrics,
		log:            log.WithComponent("aggregator"),
	}
}

// FetchAll issues all provider calls concurrently and returns one record per
// requested provider. The whole fan-out is bounded by the global deadline;
// providers that have not answered by then are recorded as failed.
func (a *DataAggregator) FetchAll(ctx context.Context, profile models.BusinessProfile, ids []constants.ProviderID, perCallTimeout time.Duration) map[constants.ProviderID]models.ExternalDataRecord {
	if perCallTimeout <= 0 {
		perCallTimeout = constants.DefaultProviderTimeout
	}

	fanoutCtx, cancel := context.WithTimeout(ctx, a.globalDeadline)
	defer cancel()

	var mu sync.Mutex
	results := make(map[constants.ProviderID]models.ExternalDataRecord, len(ids))

	g, gctx := errgroup.WithContext(fanoutCtx)
	g.SetLimit(a.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			record := a.fetchOne(gctx, profile, id, perCallTimeout)
			mu.Lock()
			results[id] = record
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return results
}

// fetchOne runs the full envelope for one provider: cache, breaker, bounded
// retries. Always returns a record; failures are encoded in it.
func (a *DataAggregator) fetchOne(ctx context.Context, profile models.BusinessProfile, id constants.ProviderID, perCallTimeout time.Duration) models.ExternalDataRecord {
	client, ok := a.clients[id]
	if !ok {
		return models.UnavailableRecord(id, "provider not configured")
	}

	identityHash := profile.IdentityHash()
	if cached, ok := a.cache.Get(ctx, identityHash, id); ok {
		a.metrics.ObserveProviderCall(string(id), "cache_hit", 0)
		return cached
	}

	breaker := a.breakers.For(id)
	if !breaker.Allow() {
		a.metrics.ObserveProviderCall(string(id), "short_circuited", 0)
		a.log.Warn(ctx, "breaker open, short-circuiting provider call",
			logger.String("provider", string(id)))
		return models.UnavailableRecord(id, "circuit breaker open")
	}

	start := time.Now()
	var record models.ExternalDataRecord
	err := a.retries[id].Do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
		defer cancel()

		var fetchErr error
		record, fetchErr = client.Fetch(callCtx, profile)
		return fetchErr
	})
	elapsed := time.Since(start)

	if err != nil {
		breaker.RecordFailure()
		a.observeBreaker(id, breaker)
		a.metrics.ObserveProviderCall(string(id), "failure", elapsed)
		a.log.Warn(ctx, "provider call failed",
			logger.String("provider", string(id)),
			logger.Duration("elapsed", elapsed),
			logger.String("error", err.Error()),
		)
		return models.UnavailableRecord(id, err.Error())
	}

	breaker.RecordSuccess()
	a.metrics.ObserveProviderCall(string(id), "success", elapsed)
	a.cache.Set(ctx, identityHash, record)
	return record
}

func (a *DataAggregator) observeBreaker(id constants.ProviderID, cb *resilience.CircuitBreaker) {
	state, _, _ := cb.State()
	if a.metrics != nil && state != models.BreakerClosed {
		a.metrics.BreakerTransitions.WithLabelValues(string(id), string(state)).Inc()
	}
}

// BreakerStates returns the current breaker snapshot per provider.
func (a *DataAggregator) BreakerStates() []models.CircuitBreakerState {
	return a.breakers.Snapshot()
}

// ResetBreaker forces one provider's breaker back to closed.
func (a *DataAggregator) ResetBreaker(id constants.ProviderID) bool {
	return a.breakers.Reset(id)
}
