package models

import (
	"time"

	"github.com/turtacn/riskpulse/pkg/constants"
)

// ExternalDataRecord is the outcome of one provider call. The aggregator owns
// these records; the feature builder references them without taking ownership.
type ExternalDataRecord struct {
	ProviderID constants.ProviderID `json:"provider_id"`

	// Signals are the numeric data points returned by the provider.
	Signals map[string]float64 `json:"signals,omitempty"`

	// Attributes are non-numeric data points (e.g. sanction list names).
	Attributes map[string]string `json:"attributes,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
	Succeeded bool      `json:"succeeded"`

	// Quality is the provider-reported or derived 0.0-1.0 data quality.
	Quality float64 `json:"quality"`

	// FromCache marks records served from the response cache.
	FromCache bool `json:"from_cache,omitempty"`

	// FailureReason is set when Succeeded is false.
	FailureReason string `json:"failure_reason,omitempty"`
}

// UnavailableRecord builds the synthetic record returned for a provider whose
// breaker is open or whose call failed or timed out.
func UnavailableRecord(id constants.ProviderID, reason string) ExternalDataRecord {
	return ExternalDataRecord{
		ProviderID:    id,
		FetchedAt:     time.Now().UTC(),
		Succeeded:     false,
		Quality:       0,
		FailureReason: reason,
	}
}

// BreakerState enumerates circuit-breaker states.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// CircuitBreakerState is the observable snapshot of one provider's breaker.
// Only the resilience envelope mutates the underlying state.
type CircuitBreakerState struct {
	ProviderID          constants.ProviderID `json:"provider_id"`
	State               BreakerState         `json:"state"`
	ConsecutiveFailures int                  `json:"consecutive_failures"`
	LastTransition      time.Time            `json:"last_transition"`
}
