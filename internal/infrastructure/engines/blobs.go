package engines

import (
	"encoding/json"
	"time"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// DefaultTreeBlob returns the bundled short-horizon tree model. Used to seed
// the registry when no trained artifact is present in model storage.
func DefaultTreeBlob() []byte {
	blob := treeBlob{
		Bias: -1.2,
		Stumps: []stump{
			{Feature: "debt_ratio", Threshold: 0.6, Left: -0.3, Right: 0.8},
			{Feature: "liquidity_ratio", Threshold: 1.0, Left: 0.5, Right: -0.4},
			{Feature: "credit_utilization", Threshold: 0.7, Left: -0.2, Right: 0.6},
			{Feature: "payment_delinquencies", Threshold: 2.0, Left: -0.3, Right: 0.9},
			{Feature: "profit_margin", Threshold: 0.02, Left: 0.4, Right: -0.3},
			{Feature: "revenue_growth", Threshold: -0.05, Left: 0.5, Right: -0.2},
			{Feature: "sanction_hits", Threshold: 0.5, Left: -0.1, Right: 1.5},
			{Feature: "pep_matches", Threshold: 0.5, Left: 0.0, Right: 0.7},
			{Feature: "negative_ratio", Threshold: 0.4, Left: -0.1, Right: 0.5},
			{Feature: "years_in_operation", Threshold: 2.0, Left: 0.4, Right: -0.2},
			{Feature: "industry_risk", Threshold: 0.45, Left: -0.1, Right: 0.3},
			{Feature: "country_risk", Threshold: 0.5, Left: -0.1, Right: 0.6},
		},
	}
	raw, _ := json.Marshal(blob)
	return raw
}

// DefaultSequenceBlob returns the bundled long-horizon sequence model.
func DefaultSequenceBlob() []byte {
	blob := sequenceBlob{
		Bias: -1.0,
		Weights: map[string]float64{
			"debt_ratio":            0.9,
			"liquidity_ratio":       -0.4,
			"credit_utilization":    0.5,
			"payment_delinquencies": 0.25,
			"profit_margin":         -1.5,
			"sanction_hits":         1.2,
			"negative_ratio":        0.4,
			"industry_risk":         0.5,
			"country_risk":          0.7,
		},
		DriftWeight:      -2.5,
		VolatilityWeight: 1.8,
		HorizonWeight:    0.03,
	}
	raw, _ := json.Marshal(blob)
	return raw
}

// DefaultEnsembleBlob returns the bundled ensemble metadata.
func DefaultEnsembleBlob() []byte {
	raw, _ := json.Marshal(ensembleBlob{
		Members: []string{string(models.ModelTree), string(models.ModelSequence)},
	})
	return raw
}

// DefaultDescriptors declares the bundled model set with its applicability
// ranges. The tree model covers short horizons only; the sequence model is
// unbounded above; the ensemble covers the blend bucket.
func DefaultDescriptors() []models.ModelDescriptor {
	now := time.Now().UTC()
	return []models.ModelDescriptor{
		{
			ID: models.ModelTree, Version: "1.0.0", State: models.LoadStateRegistered,
			MinHorizon: constants.MinHorizonMonths, MaxHorizon: constants.BlendHorizonUpper - 1,
			LoadedAt: now,
		},
		{
			ID: models.ModelSequence, Version: "1.0.0", State: models.LoadStateRegistered,
			MinHorizon: constants.ShortHorizonUpper, MaxHorizon: 0,
			LoadedAt: now,
		},
		{
			ID: models.ModelEnsemble, Version: "1.0.0", State: models.LoadStateRegistered,
			MinHorizon: constants.ShortHorizonUpper, MaxHorizon: constants.BlendHorizonUpper - 1,
			LoadedAt: now,
		},
	}
}

// DefaultBlob returns the bundled blob for a model family.
func DefaultBlob(id models.ModelID) []byte {
	switch id {
	case models.ModelTree:
		return DefaultTreeBlob()
	case models.ModelSequence:
		return DefaultSequenceBlob()
	case models.ModelEnsemble:
		return DefaultEnsembleBlob()
	}
	return nil
}

// NewFactory builds the engine constructor used by the registry. The resolver
// is consulted lazily at predict time, which lets the caller bind it to the
// registry after the registry is constructed.
func NewFactory(cfg config.ModelsConfig, resolve EngineResolver) func(descriptor models.ModelDescriptor, blob []byte) (service.Engine, error) {
	return func(descriptor models.ModelDescriptor, blob []byte) (service.Engine, error) {
		switch descriptor.ID {
		case models.ModelTree:
			return NewTreeEngine(descriptor.Version, blob)
		case models.ModelSequence:
			return NewSequenceEngine(descriptor.Version, blob)
		case models.ModelEnsemble:
			return NewEnsembleEngine(descriptor.Version, blob, cfg.ShortWeight, cfg.LongWeight, resolve)
		}
		return nil, pkgerrors.ErrValidation("unknown model family").
			WithDetail("model_id", string(descriptor.ID))
	}
}
