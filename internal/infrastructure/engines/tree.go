// Package engines implements the inference engines behind the model registry:
// the short-horizon boosted-tree model, the long-horizon sequence model, and
// the configured blend of the two. All engines are deterministic given a
// model version and a feature vector.
package engines

import (
	"context"
	"encoding/json"
	"math"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/internal/infrastructure/features"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// treeBlob is the serialized form of the boosted-tree model: an additive
// collection of single-split stumps over named features.
type treeBlob struct {
	Bias   float64 `json:"bias"`
	Stumps []stump `json:"stumps"`
}

type stump struct {
	Feature   string  `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`  // margin when value <= threshold
	Right     float64 `json:"right"` // margin when value > threshold
}

// TreeEngine is the short-horizon gradient-boosted-tree engine.
type TreeEngine struct {
	version string
	blob    treeBlob
}

var _ service.Engine = (*TreeEngine)(nil)

// NewTreeEngine deserializes a tree model blob.
func NewTreeEngine(version string, raw []byte) (*TreeEngine, error) {
	var blob treeBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, pkgerrors.ErrModelInference(string(models.ModelTree), err)
	}
	if len(blob.Stumps) == 0 {
		return nil, pkgerrors.ErrModelInference(string(models.ModelTree),
			pkgerrors.ErrValidation("tree model has no stumps"))
	}
	return &TreeEngine{version: version, blob: blob}, nil
}

func (e *TreeEngine) ID() models.ModelID { return models.ModelTree }
func (e *TreeEngine) Version() string    { return e.version }

// Baseline scores the schema-default vector. Horizon does not enter the tree
// margin, so the baseline is horizon-independent.
func (e *TreeEngine) Baseline(int) float64 {
	score, _ := e.score(features.DefaultVector())
	return score
}

// Predict scores the vector. Confidence reflects how uniformly the stumps
// agree on the direction of the margin.
func (e *TreeEngine) Predict(_ context.Context, vector models.FeatureVector, horizon int) (models.Prediction, error) {
	score, confidence := e.score(vector)
	return models.Prediction{
		HorizonMonths: horizon,
		ModelID:       models.ModelTree,
		Score:         score,
		Confidence:    confidence,
	}, nil
}

func (e *TreeEngine) score(vector models.FeatureVector) (float64, float64) {
	margin := e.blob.Bias
	agreeing := 0
	contributions := make([]float64, 0, len(e.blob.Stumps))

	for _, s := range e.blob.Stumps {
		value, ok := vector.Get(s.Feature)
		if !ok {
			continue
		}
		c := s.Left
		if value > s.Threshold {
			c = s.Right
		}
		margin += c
		contributions = append(contributions, c)
	}

	total := margin - e.blob.Bias
	for _, c := range contributions {
		if c == 0 || c*total > 0 {
			agreeing++
		}
	}

	agreement := 1.0
	if len(contributions) > 0 {
		agreement = float64(agreeing) / float64(len(contributions))
	}

	score := sigmoid(margin)
	confidence := clamp01(0.55 + 0.4*agreement)
	return score, confidence
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
