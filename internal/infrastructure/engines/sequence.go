package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/internal/infrastructure/features"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// sequenceBlob is the serialized form of the long-horizon sequence model: a
// linear head over the static features plus trajectory terms extracted from
// the monthly history window.
type sequenceBlob struct {
	Bias             float64            `json:"bias"`
	Weights          map[string]float64 `json:"weights"`
	DriftWeight      float64            `json:"drift_weight"`
	VolatilityWeight float64            `json:"volatility_weight"`
	HorizonWeight    float64            `json:"horizon_weight"`
}

// SequenceEngine is the long-horizon trajectory engine.
type SequenceEngine struct {
	version string
	blob    sequenceBlob
}

var _ service.Engine = (*SequenceEngine)(nil)

// NewSequenceEngine deserializes a sequence model blob.
func NewSequenceEngine(version string, raw []byte) (*SequenceEngine, error) {
	var blob sequenceBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, pkgerrors.ErrModelInference(string(models.ModelSequence), err)
	}
	if len(blob.Weights) == 0 {
		return nil, pkgerrors.ErrModelInference(string(models.ModelSequence),
			pkgerrors.ErrValidation("sequence model has no feature weights"))
	}
	return &SequenceEngine{version: version, blob: blob}, nil
}

func (e *SequenceEngine) ID() models.ModelID { return models.ModelSequence }
func (e *SequenceEngine) Version() string    { return e.version }

// Baseline scores the schema-default vector, which carries no history.
func (e *SequenceEngine) Baseline(horizon int) float64 {
	return e.score(features.DefaultVector(), horizon)
}

// Predict scores the vector for the horizon. Confidence is measured by
// re-scoring under small deterministic input perturbations: the wider the
// spread, the lower the confidence.
func (e *SequenceEngine) Predict(_ context.Context, vector models.FeatureVector, horizon int) (models.Prediction, error) {
	score := e.score(vector, horizon)
	return models.Prediction{
		HorizonMonths: horizon,
		ModelID:       models.ModelSequence,
		Score:         score,
		Confidence:    e.confidence(vector, horizon, score),
	}, nil
}

func (e *SequenceEngine) score(vector models.FeatureVector, horizon int) float64 {
	margin := e.blob.Bias
	for name, w := range e.blob.Weights {
		if value, ok := vector.Get(name); ok {
			margin += w * value
		}
	}

	drift, volatility := trajectory(vector.History)
	scale := float64(horizon) / 12.0
	margin += e.blob.DriftWeight * drift * scale
	margin += e.blob.VolatilityWeight * volatility
	margin += e.blob.HorizonWeight * float64(horizon)

	return sigmoid(margin)
}

// trajectory reduces the history window to a normalized drift (mean relative
// month-over-month change) and volatility (relative spread of those changes).
func trajectory(history [][]float64) (drift, volatility float64) {
	if len(history) < 2 {
		return 0, 0
	}

	deltas := make([]float64, 0, len(history)-1)
	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1][0], history[i][0]
		if prev == 0 {
			continue
		}
		deltas = append(deltas, (cur-prev)/math.Abs(prev))
	}
	if len(deltas) == 0 {
		return 0, 0
	}

	for _, d := range deltas {
		drift += d
	}
	drift /= float64(len(deltas))

	for _, d := range deltas {
		volatility += (d - drift) * (d - drift)
	}
	volatility = math.Sqrt(volatility / float64(len(deltas)))
	return drift, volatility
}

// confidence scores perturbed copies of the vector and maps the observed
// spread to a confidence value. The perturbation stream is seeded from the
// model version and the vector contents, so the result is reproducible.
func (e *SequenceEngine) confidence(vector models.FeatureVector, horizon int, score float64) float64 {
	const trials = 8
	const epsilon = 0.02

	rng := rand.New(rand.NewSource(e.seed(vector, horizon)))

	var maxSpread float64
	for t := 0; t < trials; t++ {
		perturbed := vector
		perturbed.Values = make([]models.FeatureValue, len(vector.Values))
		copy(perturbed.Values, vector.Values)
		for i := range perturbed.Values {
			perturbed.Values[i].Value *= 1 + epsilon*(2*rng.Float64()-1)
		}
		spread := math.Abs(e.score(perturbed, horizon) - score)
		if spread > maxSpread {
			maxSpread = spread
		}
	}

	return clamp01(0.95 - 4*maxSpread)
}

func (e *SequenceEngine) seed(vector models.FeatureVector, horizon int) int64 {
	h := fnv.New64a()
	h.Write([]byte(e.version))
	fmt.Fprintf(h, "|%d", horizon)
	for _, v := range vector.Values {
		fmt.Fprintf(h, "|%s=%g", v.Name, v.Value)
	}
	return int64(h.Sum64())
}
