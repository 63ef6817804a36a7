// Package registry holds the loaded, versioned scoring models. Swaps are
// copy-on-swap: requests holding a handle keep scoring with the engine they
// acquired, while new requests see the replacement.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/internal/infrastructure/monitoring"
	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// EngineFactory constructs an engine from a descriptor and its blob.
type EngineFactory func(descriptor models.ModelDescriptor, blob []byte) (service.Engine, error)

type entry struct {
	descriptor models.ModelDescriptor
	engine     service.Engine

	useCount uint64
	lastUsed time.Time
}

// ModelRegistry implements service.Registry with an LRU byte budget over the
// loaded blobs. Eviction unloads whole models; the most-used model is pinned
// and never evicted.
type ModelRegistry struct {
	mu      sync.RWMutex
	entries map[models.ModelID]*entry

	factory    EngineFactory
	byteBudget int64

	metrics *monitoring.Metrics
	log     logger.Logger
	now     func() time.Time
}

var _ service.Registry = (*ModelRegistry)(nil)

// New creates an empty registry.
func New(factory EngineFactory, byteBudget int64, metrics *monitoring.Metrics, log logger.Logger) *ModelRegistry {
	if byteBudget <= 0 {
		byteBudget = constants.DefaultRegistryByteBudget
	}
	return &ModelRegistry{
		entries:    make(map[models.ModelID]*entry),
		factory:    factory,
		byteBudget: byteBudget,
		metrics:    metrics,
		log:        log.WithComponent("registry"),
		now:        time.Now,
	}
}

// Get acquires the current handle for a model. The handle stays valid across
// subsequent swaps.
func (r *ModelRegistry) Get(id models.ModelID) (service.ModelHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.descriptor.State != models.LoadStateLoaded {
		return service.ModelHandle{}, pkgerrors.ErrNotFound("model", string(id))
	}
	e.useCount++
	e.lastUsed = r.now()
	return service.ModelHandle{Descriptor: e.descriptor, Engine: e.engine}, nil
}

// Load registers and loads a model from its serialized blob.
func (r *ModelRegistry) Load(descriptor models.ModelDescriptor, blob []byte) error {
	engine, err := r.factory(descriptor, blob)
	if err != nil {
		return err
	}

	descriptor.State = models.LoadStateLoaded
	descriptor.SizeBytes = int64(len(blob))
	descriptor.LoadedAt = r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[descriptor.ID] = &entry{
		descriptor: descriptor,
		engine:     engine,
		lastUsed:   r.now(),
	}
	r.evictOverBudget()
	return nil
}

// Swap atomically replaces the loaded instance for new requests. The previous
// engine stays alive for handles already acquired.
func (r *ModelRegistry) Swap(id models.ModelID, version string, blob []byte) error {
	r.mu.RLock()
	current, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return pkgerrors.ErrNotFound("model", string(id))
	}

	next := current.descriptor
	next.Version = version
	next.SwappedFrom = current.descriptor.Version

	// Build outside the lock; deserialization can be slow.
	engine, err := r.factory(next, blob)
	if err != nil {
		if r.metrics != nil {
			r.metrics.ModelSwapsTotal.WithLabelValues(string(id), "failure").Inc()
		}
		return err
	}

	next.State = models.LoadStateLoaded
	next.SizeBytes = int64(len(blob))
	next.LoadedAt = r.now()

	r.mu.Lock()
	e := r.entries[id]
	e.descriptor = next
	e.engine = engine
	r.evictOverBudget()
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ModelSwapsTotal.WithLabelValues(string(id), "success").Inc()
	}
	r.log.Info(context.Background(), "model swapped",
		logger.String("model_id", string(id)),
		logger.String("version", version),
		logger.String("swapped_from", next.SwappedFrom),
	)
	return nil
}

// Descriptor returns a copy of the descriptor for a model.
func (r *ModelRegistry) Descriptor(id models.ModelID) (models.ModelDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return models.ModelDescriptor{}, false
	}
	return e.descriptor, true
}

// Descriptors lists all registered models.
func (r *ModelRegistry) Descriptors() []models.ModelDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ModelDescriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.descriptor)
	}
	return out
}

// evictOverBudget unloads least-recently-used models until the loaded blobs
// fit the byte budget. The model with the highest use count is pinned: the
// registry never evicts the engine most of the traffic depends on. Caller
// holds the write lock.
func (r *ModelRegistry) evictOverBudget() {
	for r.loadedBytes() > r.byteBudget {
		victim := r.lruVictim()
		if victim == nil {
			return
		}
		victim.descriptor.State = models.LoadStateRetired
		victim.engine = nil
		r.log.Warn(context.Background(), "model evicted over byte budget",
			logger.String("model_id", string(victim.descriptor.ID)),
			logger.String("version", victim.descriptor.Version),
		)
	}
}

func (r *ModelRegistry) loadedBytes() int64 {
	var total int64
	for _, e := range r.entries {
		if e.descriptor.State == models.LoadStateLoaded {
			total += e.descriptor.SizeBytes
		}
	}
	return total
}

func (r *ModelRegistry) lruVictim() *entry {
	var pinned *entry
	var maxUse uint64
	for _, e := range r.entries {
		if e.descriptor.State == models.LoadStateLoaded && e.useCount >= maxUse {
			pinned, maxUse = e, e.useCount
		}
	}

	var victim *entry
	for _, e := range r.entries {
		if e.descriptor.State != models.LoadStateLoaded || e == pinned {
			continue
		}
		if victim == nil || e.lastUsed.Before(victim.lastUsed) {
			victim = e
		}
	}
	return victim
}
