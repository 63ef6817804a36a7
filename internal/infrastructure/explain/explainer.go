// Package explain computes per-feature attributions for a prediction. The
// decomposition is additive by construction: walking the schema order and
// substituting one real value at a time into the default vector telescopes,
// so the contributions sum exactly to prediction minus baseline.
package explain

import (
	"context"
	"fmt"
	"math"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/internal/infrastructure/features"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// Tolerance bounds the acceptable drift between the contribution sum and
// (prediction - baseline). Exceeding it means an engine broke determinism.
const Tolerance = 1e-6

// TrajectoryFeature names the pseudo-feature attributing the history window's
// effect on the score. The default vector carries no history, so its effect
// is a substitution step like any other.
const TrajectoryFeature = "revenue_trajectory"

// neutralBand treats near-zero contributions as directionless.
const neutralBand = 1e-9

// SubstitutionExplainer implements service.Explainer.
type SubstitutionExplainer struct {
	log logger.Logger
}

var _ service.Explainer = (*SubstitutionExplainer)(nil)

// New creates the explainer.
func New(log logger.Logger) *SubstitutionExplainer {
	return &SubstitutionExplainer{log: log.WithComponent("explain")}
}

// Explain decomposes the prediction into per-feature contributions. The same
// engine instance that produced the prediction must be passed in; a swapped
// engine would break the additivity check.
func (e *SubstitutionExplainer) Explain(ctx context.Context, handle service.ModelHandle, vector models.FeatureVector, prediction models.Prediction) ([]service.Contribution, error) {
	horizon := prediction.HorizonMonths
	baseline := handle.Engine.Baseline(horizon)

	// Start from the all-defaults vector and substitute real values one by
	// one in schema order. Each step's delta is that feature's contribution.
	current := features.DefaultVector()
	previous, err := e.scoreStep(ctx, handle, current, horizon)
	if err != nil {
		return nil, err
	}

	contributions := make([]service.Contribution, 0, len(vector.Values)+1)
	for _, fv := range vector.Values {
		current = current.WithValue(fv.Name, fv.Value)
		score, err := e.scoreStep(ctx, handle, current, horizon)
		if err != nil {
			return nil, err
		}
		contributions = append(contributions, service.Contribution{
			Feature:       fv.Name,
			Contribution:  score - previous,
			Direction:     direction(score - previous),
			LowConfidence: vector.IsDefaulted(fv.Name),
		})
		previous = score
	}

	// Final step: attach the history window.
	if len(vector.History) > 0 {
		current.History = vector.History
		score, err := e.scoreStep(ctx, handle, current, horizon)
		if err != nil {
			return nil, err
		}
		contributions = append(contributions, service.Contribution{
			Feature:      TrajectoryFeature,
			Contribution: score - previous,
			Direction:    direction(score - previous),
		})
		previous = score
	}

	var sum float64
	for _, c := range contributions {
		sum += c.Contribution
	}
	if drift := math.Abs(sum - (prediction.Score - baseline)); drift > Tolerance {
		e.log.Error(ctx, "attribution additivity violated", nil,
			logger.String("model_id", string(handle.Descriptor.ID)),
			logger.String("version", handle.Descriptor.Version),
			logger.Float64("drift", drift),
		)
		return nil, pkgerrors.ErrModelInference(string(handle.Descriptor.ID),
			fmt.Errorf("attribution drift %g exceeds tolerance", drift))
	}

	return contributions, nil
}

func (e *SubstitutionExplainer) scoreStep(ctx context.Context, handle service.ModelHandle, vector models.FeatureVector, horizon int) (float64, error) {
	pred, err := handle.Engine.Predict(ctx, vector, horizon)
	if err != nil {
		return 0, err
	}
	return pred.Score, nil
}

func direction(delta float64) service.Direction {
	switch {
	case delta > neutralBand:
		return service.DirectionIncreases
	case delta < -neutralBand:
		return service.DirectionDecreases
	default:
		return service.DirectionNeutral
	}
}
