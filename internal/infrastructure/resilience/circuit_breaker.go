// Package resilience implements the cross-cutting timeout, circuit-breaker,
// and retry policy applied uniformly to every external call.
package resilience

import (
	"sync"
	"time"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/pkg/constants"
)

// CircuitBreaker guards one provider. After failureThreshold consecutive
// failures it opens and short-circuits calls for cooldownPeriod, then allows
// exactly one trial call (half-open) before closing or re-opening on the
// trial's outcome.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	cooldownPeriod   time.Duration

	state               models.BreakerState
	consecutiveFailures int
	lastTransition      time.Time

	// trialInFlight gates the single half-open probe.
	trialInFlight bool

	now func() time.Time // injectable clock for tests
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(failureThreshold int, cooldownPeriod time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = constants.DefaultFailureThreshold
	}
	if cooldownPeriod <= 0 {
		cooldownPeriod = constants.DefaultCooldownPeriod
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		cooldownPeriod:   cooldownPeriod,
		state:            models.BreakerClosed,
		lastTransition:   time.Now(),
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed. In the open state it returns
// false until the cooldown elapses, at which point the breaker transitions to
// half-open and admits one trial call; concurrent callers during the trial
// are rejected.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case models.BreakerClosed:
		return true
	case models.BreakerOpen:
		if cb.now().Sub(cb.lastTransition) < cb.cooldownPeriod {
			return false
		}
		cb.transition(models.BreakerHalfOpen)
		cb.trialInFlight = true
		return true
	case models.BreakerHalfOpen:
		if cb.trialInFlight {
			return false
		}
		cb.trialInFlight = true
		return true
	}
	return false
}

// RecordSuccess records a successful call outcome.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
	cb.trialInFlight = false
	if cb.state != models.BreakerClosed {
		cb.transition(models.BreakerClosed)
	}
}

// RecordFailure records a failed call outcome. Abandoned (deadline-exceeded)
// calls count as failures for breaker accounting.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++
	switch cb.state {
	case models.BreakerHalfOpen:
		cb.trialInFlight = false
		cb.transition(models.BreakerOpen)
	case models.BreakerClosed:
		if cb.consecutiveFailures >= cb.failureThreshold {
			cb.transition(models.BreakerOpen)
		}
	}
}

// Reset forces the breaker back to closed. Admin surface.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
	cb.trialInFlight = false
	cb.transition(models.BreakerClosed)
}

// State returns an observable snapshot.
func (cb *CircuitBreaker) State() (models.BreakerState, int, time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state, cb.consecutiveFailures, cb.lastTransition
}

// transition must be called with the lock held.
func (cb *CircuitBreaker) transition(to models.BreakerState) {
	cb.state = to
	cb.lastTransition = cb.now()
}

// ================================================================================
// Breaker Table
// ================================================================================

// BreakerTable holds one breaker per provider. Per-entry locking lives inside
// each breaker, so updates for provider A never block calls to provider B.
type BreakerTable struct {
	mu       sync.RWMutex
	breakers map[constants.ProviderID]*CircuitBreaker

	failureThreshold int
	cooldownPeriod   time.Duration
}

// NewBreakerTable creates an empty table with shared breaker settings.
func NewBreakerTable(failureThreshold int, cooldownPeriod time.Duration) *BreakerTable {
	return &BreakerTable{
		breakers:         make(map[constants.ProviderID]*CircuitBreaker),
		failureThreshold: failureThreshold,
		cooldownPeriod:   cooldownPeriod,
	}
}

// For returns the breaker for a provider, creating it on first use.
func (t *BreakerTable) For(id constants.ProviderID) *CircuitBreaker {
	t.mu.RLock()
	if cb, ok := t.breakers[id]; ok {
		t.mu.RUnlock()
		return cb
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if cb, ok := t.breakers[id]; ok {
		return cb
	}
	cb := NewCircuitBreaker(t.failureThreshold, t.cooldownPeriod)
	t.breakers[id] = cb
	return cb
}

// Reset closes the breaker for a provider. Returns false if none exists yet.
func (t *BreakerTable) Reset(id constants.ProviderID) bool {
	t.mu.RLock()
	cb, ok := t.breakers[id]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	cb.Reset()
	return true
}

// Snapshot returns the observable state of every breaker.
func (t *BreakerTable) Snapshot() []models.CircuitBreakerState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]models.CircuitBreakerState, 0, len(t.breakers))
	for id, cb := range t.breakers {
		state, failures, transition := cb.State()
		out = append(out, models.CircuitBreakerState{
			ProviderID:          id,
			State:               state,
			ConsecutiveFailures: failures,
			LastTransition:      transition,
		})
	}
	return out
}
