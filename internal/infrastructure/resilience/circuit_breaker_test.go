package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/pkg/constants"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		assert.True(t, cb.Allow())
		cb.RecordFailure()
	}
	state, failures, _ := cb.State()
	assert.Equal(t, models.BreakerClosed, state)
	assert.Equal(t, 2, failures)

	assert.True(t, cb.Allow())
	cb.RecordFailure()

	state, _, _ = cb.State()
	assert.Equal(t, models.BreakerOpen, state)

	// Calls within the cooldown are short-circuited.
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	state, failures, _ := cb.State()
	assert.Equal(t, models.BreakerClosed, state)
	assert.Equal(t, 2, failures)
}

func TestCircuitBreaker_HalfOpenSingleTrial(t *testing.T) {
	cb := NewCircuitBreaker(1, 30*time.Second)

	now := time.Now()
	cb.now = func() time.Time { return now }
	cb.lastTransition = now

	cb.RecordFailure()
	state, _, _ := cb.State()
	require.Equal(t, models.BreakerOpen, state)
	assert.False(t, cb.Allow())

	// After the cooldown exactly one trial call is admitted.
	now = now.Add(31 * time.Second)
	assert.True(t, cb.Allow())
	assert.False(t, cb.Allow(), "second caller during the trial must be rejected")

	state, _, _ = cb.State()
	assert.Equal(t, models.BreakerHalfOpen, state)
}

func TestCircuitBreaker_TrialOutcomeDecidesState(t *testing.T) {
	t.Run("trial success closes", func(t *testing.T) {
		cb := newHalfOpenBreaker(t)
		cb.RecordSuccess()
		state, failures, _ := cb.State()
		assert.Equal(t, models.BreakerClosed, state)
		assert.Equal(t, 0, failures)
		assert.True(t, cb.Allow())
	})

	t.Run("trial failure reopens", func(t *testing.T) {
		cb := newHalfOpenBreaker(t)
		cb.RecordFailure()
		state, _, _ := cb.State()
		assert.Equal(t, models.BreakerOpen, state)
		assert.False(t, cb.Allow())
	})
}

func newHalfOpenBreaker(t *testing.T) *CircuitBreaker {
	t.Helper()
	cb := NewCircuitBreaker(1, 30*time.Second)
	now := time.Now()
	cb.now = func() time.Time { return now }
	cb.RecordFailure()
	now = now.Add(time.Minute)
	cb.now = func() time.Time { return now }
	require.True(t, cb.Allow())
	return cb
}

func TestBreakerTable_PerProviderIsolation(t *testing.T) {
	table := NewBreakerTable(1, time.Minute)

	table.For(constants.ProviderFinancial).RecordFailure()

	assert.False(t, table.For(constants.ProviderFinancial).Allow())
	assert.True(t, table.For(constants.ProviderSanctions).Allow(),
		"one provider's open breaker must not affect another")

	states := table.Snapshot()
	assert.Len(t, states, 2)
}

func TestBreakerTable_Reset(t *testing.T) {
	table := NewBreakerTable(1, time.Hour)

	assert.False(t, table.Reset(constants.ProviderFinancial), "unknown provider")

	table.For(constants.ProviderFinancial).RecordFailure()
	assert.False(t, table.For(constants.ProviderFinancial).Allow())

	assert.True(t, table.Reset(constants.ProviderFinancial))
	assert.True(t, table.For(constants.ProviderFinancial).Allow())
}
