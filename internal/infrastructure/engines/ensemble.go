package engines

import (
	"context"
	"encoding/json"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// EngineResolver returns the current engine for a model family. The ensemble
// resolves its members at predict time so hot swaps of a base model take
// effect without reloading the ensemble.
type EngineResolver func(id models.ModelID) (service.Engine, error)

// ensembleBlob carries the ensemble's version metadata. The blend weights are
// configuration, not training output, so they never live in the blob.
type ensembleBlob struct {
	Members []string `json:"members"`
}

// EnsembleEngine blends the short- and long-horizon base models with
// configured weights. Weights are normalized at construction.
type EnsembleEngine struct {
	version     string
	resolve     EngineResolver
	shortWeight float64
	longWeight  float64
}

var _ service.Engine = (*EnsembleEngine)(nil)

// NewEnsembleEngine deserializes an ensemble blob and binds the blend weights.
func NewEnsembleEngine(version string, raw []byte, shortWeight, longWeight float64, resolve EngineResolver) (*EnsembleEngine, error) {
	var blob ensembleBlob
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &blob); err != nil {
			return nil, pkgerrors.ErrModelInference(string(models.ModelEnsemble), err)
		}
	}

	if shortWeight <= 0 && longWeight <= 0 {
		shortWeight = constants.DefaultShortWeight
		longWeight = constants.DefaultLongWeight
	}
	total := shortWeight + longWeight
	return &EnsembleEngine{
		version:     version,
		resolve:     resolve,
		shortWeight: shortWeight / total,
		longWeight:  longWeight / total,
	}, nil
}

func (e *EnsembleEngine) ID() models.ModelID { return models.ModelEnsemble }
func (e *EnsembleEngine) Version() string    { return e.version }

// Baseline is the weighted blend of the member baselines.
func (e *EnsembleEngine) Baseline(horizon int) float64 {
	short, errS := e.resolve(models.ModelTree)
	long, errL := e.resolve(models.ModelSequence)
	if errS != nil || errL != nil {
		return 0.5
	}
	return e.shortWeight*short.Baseline(horizon) + e.longWeight*long.Baseline(horizon)
}

// Predict blends the member predictions. Both members must score; a failed
// member fails the ensemble.
func (e *EnsembleEngine) Predict(ctx context.Context, vector models.FeatureVector, horizon int) (models.Prediction, error) {
	short, err := e.resolve(models.ModelTree)
	if err != nil {
		return models.Prediction{}, pkgerrors.ErrModelInference(string(models.ModelEnsemble), err)
	}
	long, err := e.resolve(models.ModelSequence)
	if err != nil {
		return models.Prediction{}, pkgerrors.ErrModelInference(string(models.ModelEnsemble), err)
	}

	shortPred, err := short.Predict(ctx, vector, horizon)
	if err != nil {
		return models.Prediction{}, err
	}
	longPred, err := long.Predict(ctx, vector, horizon)
	if err != nil {
		return models.Prediction{}, err
	}

	return models.Prediction{
		HorizonMonths: horizon,
		ModelID:       models.ModelEnsemble,
		Score:         e.shortWeight*shortPred.Score + e.longWeight*longPred.Score,
		Confidence:    e.shortWeight*shortPred.Confidence + e.longWeight*longPred.Confidence,
	}, nil
}
