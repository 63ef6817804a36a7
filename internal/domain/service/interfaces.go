// Package service defines the domain-level contracts of the risk-prediction
// pipeline. Implementations live under internal/infrastructure and are
// injected at construction time; nothing here owns goroutines or sockets.
package service

import (
	"context"
	"time"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/pkg/constants"
)

// ================================================================================
// External Data Aggregation
// ================================================================================

// Aggregator fans out to external risk-data providers under the resilience
// envelope. It never fails the overall request because one provider failed:
// failed providers yield synthetic unavailable records and a reduced
// completeness score.
type Aggregator interface {
	// FetchAll issues all provider calls concurrently. Each call is bounded by
	// perCallTimeout; the whole fan-out is bounded by the configured global
	// aggregation deadline. Stragglers are recorded as failed, not awaited.
	FetchAll(ctx context.Context, profile models.BusinessProfile, providers []constants.ProviderID, perCallTimeout time.Duration) map[constants.ProviderID]models.ExternalDataRecord

	// BreakerStates returns the current breaker snapshot per provider.
	BreakerStates() []models.CircuitBreakerState

	// ResetBreaker forces one provider's breaker back to closed. Admin surface.
	ResetBreaker(id constants.ProviderID) bool
}

// ================================================================================
// Feature Building
// ================================================================================

// FeatureBuilder converts a profile plus aggregator output into the
// fixed-shape feature vector. Pure: same inputs, same vector.
type FeatureBuilder interface {
	// Build validates required profile fields (ValidationError when missing)
	// and substitutes documented defaults for missing optional external data,
	// recording each defaulted feature on the vector.
	Build(profile models.BusinessProfile, records map[constants.ProviderID]models.ExternalDataRecord) (models.FeatureVector, error)
}

// ================================================================================
// Models & Inference
// ================================================================================

// Engine scores a feature vector for one horizon. Implementations are
// deterministic given (model version, vector); confidence is computed per
// engine, never hardcoded.
type Engine interface {
	ID() models.ModelID
	Version() string

	// Baseline returns the engine's output for the schema-default vector at
	// the given horizon. Anchors the additive-attribution guarantee.
	Baseline(horizon int) float64

	Predict(ctx context.Context, vector models.FeatureVector, horizon int) (models.Prediction, error)
}

// ModelHandle pairs a descriptor with its loaded engine. Handles are
// copy-on-swap: a handle acquired before a swap keeps scoring with the
// pre-swap engine.
type ModelHandle struct {
	Descriptor models.ModelDescriptor
	Engine     Engine
}

// Registry holds loaded, versioned scoring models.
type Registry interface {
	// Get acquires the current handle for a model id.
	Get(id models.ModelID) (ModelHandle, error)

	// Load registers and loads a model from its serialized blob.
	Load(descriptor models.ModelDescriptor, blob []byte) error

	// Swap atomically replaces the loaded instance for new requests.
	Swap(id models.ModelID, version string, blob []byte) error

	// Descriptor returns a copy of the descriptor for a model id.
	Descriptor(id models.ModelID) (models.ModelDescriptor, bool)

	// Descriptors lists all registered models.
	Descriptors() []models.ModelDescriptor
}

// Router deterministically selects the model for a selection input. Pure.
type Router interface {
	Route(selection models.ModelSelection) (models.ModelID, error)
}

// ================================================================================
// Explainability
// ================================================================================

// Direction indicates how a feature moved the score relative to baseline.
type Direction string

const (
	DirectionIncreases Direction = "increases"
	DirectionDecreases Direction = "decreases"
	DirectionNeutral   Direction = "neutral"
)

// Contribution is one feature's share of the prediction-minus-baseline delta.
type Contribution struct {
	Feature      string    `json:"feature"`
	Contribution float64   `json:"contribution"`
	Direction    Direction `json:"direction"`

	// LowConfidence marks contributions of defaulted features.
	LowConfidence bool `json:"low_confidence,omitempty"`
}

// Explainer computes per-feature attributions. Contributions sum, within
// tolerance, to (prediction - engine baseline).
type Explainer interface {
	Explain(ctx context.Context, handle ModelHandle, vector models.FeatureVector, prediction models.Prediction) ([]Contribution, error)
}

// ================================================================================
// Events
// ================================================================================

// EventPublisher emits completed/failed assessment events. Publishing is
// decoupled from the request path: a slow receiver never blocks assembly.
type EventPublisher interface {
	Publish(ctx context.Context, event models.AssessmentEvent) error
	Close() error
}

// ================================================================================
// Secrets
// ================================================================================

// SecretSource resolves named secrets (provider API keys, webhook HMAC key).
type SecretSource interface {
	Secret(ctx context.Context, path string) (string, error)
}
