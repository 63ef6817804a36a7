package models

import "time"

// ModelID identifies a scoring model. The public API accepts these values in
// model_preference.
type ModelID string

const (
	// ModelTree is the short-horizon gradient-boosted-tree model.
	ModelTree ModelID = "xgboost"

	// ModelSequence is the long-horizon sequence model.
	ModelSequence ModelID = "lstm"

	// ModelEnsemble blends the two base models with configured weights.
	ModelEnsemble ModelID = "ensemble"
)

// KnownModel reports whether id names a registered model family.
func KnownModel(id ModelID) bool {
	switch id {
	case ModelTree, ModelSequence, ModelEnsemble:
		return true
	}
	return false
}

// LoadState is the lifecycle state of a registry entry.
type LoadState string

const (
	LoadStateRegistered LoadState = "registered"
	LoadStateLoaded     LoadState = "loaded"
	LoadStateRetired    LoadState = "retired"
)

// ModelDescriptor describes one versioned scoring model held by the registry.
// The registry is the sole owner; callers see copies.
type ModelDescriptor struct {
	ID      ModelID   `json:"model_id"`
	Version string    `json:"version"`
	State   LoadState `json:"state"`

	// MinHorizon/MaxHorizon bound the declared applicability range in months.
	// MaxHorizon == 0 means unbounded above.
	MinHorizon int `json:"min_horizon"`
	MaxHorizon int `json:"max_horizon"`

	SizeBytes int64     `json:"size_bytes"`
	LoadedAt  time.Time `json:"loaded_at"`

	// SwappedFrom records the superseded version after a hot-swap. Append-only
	// provenance, not used by routing.
	SwappedFrom string `json:"swapped_from,omitempty"`
}

// SupportsHorizon reports whether the declared range covers the horizon.
func (d ModelDescriptor) SupportsHorizon(months int) bool {
	if months < d.MinHorizon {
		return false
	}
	if d.MaxHorizon > 0 && months > d.MaxHorizon {
		return false
	}
	return true
}

// ModelSelection is the tagged-variant routing decision input: either an
// automatic bucket selection for a horizon, or an explicit caller override.
type ModelSelection struct {
	Horizon  int
	Explicit ModelID // empty means auto
}

// AutoSelection selects by horizon bucketing.
func AutoSelection(horizon int) ModelSelection {
	return ModelSelection{Horizon: horizon}
}

// ExplicitSelection overrides bucketing with a named model. The override is
// still validated against the model's declared applicability range.
func ExplicitSelection(id ModelID, horizon int) ModelSelection {
	return ModelSelection{Horizon: horizon, Explicit: id}
}

// IsAuto reports whether the selection uses horizon bucketing.
func (s ModelSelection) IsAuto() bool { return s.Explicit == "" }
