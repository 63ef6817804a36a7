package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
	"github.com/turtacn/riskpulse/pkg/logger"
)

type fakeEngine struct {
	id      models.ModelID
	version string
}

func (f fakeEngine) ID() models.ModelID  { return f.id }
func (f fakeEngine) Version() string     { return f.version }
func (f fakeEngine) Baseline(int) float64 { return 0.5 }

func (f fakeEngine) Predict(_ context.Context, _ models.FeatureVector, horizon int) (models.Prediction, error) {
	return models.Prediction{HorizonMonths: horizon, ModelID: f.id, Score: 0.5, Confidence: 0.9}, nil
}

func fakeFactory(descriptor models.ModelDescriptor, _ []byte) (service.Engine, error) {
	return fakeEngine{id: descriptor.ID, version: descriptor.Version}, nil
}

func descriptorFor(id models.ModelID, version string) models.ModelDescriptor {
	return models.ModelDescriptor{ID: id, Version: version, MinHorizon: 1}
}

func TestLoadAndGet(t *testing.T) {
	reg := New(fakeFactory, 0, nil, logger.NewNoop())
	require.NoError(t, reg.Load(descriptorFor(models.ModelTree, "1.0.0"), []byte(`{}`)))

	handle, err := reg.Get(models.ModelTree)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", handle.Descriptor.Version)
	assert.Equal(t, models.LoadStateLoaded, handle.Descriptor.State)

	_, err = reg.Get(models.ModelSequence)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestSwap_InFlightHandleKeepsOldEngine(t *testing.T) {
	reg := New(fakeFactory, 0, nil, logger.NewNoop())
	require.NoError(t, reg.Load(descriptorFor(models.ModelTree, "1.0.0"), []byte(`{}`)))

	before, err := reg.Get(models.ModelTree)
	require.NoError(t, err)

	require.NoError(t, reg.Swap(models.ModelTree, "2.0.0", []byte(`{}`)))

	after, err := reg.Get(models.ModelTree)
	require.NoError(t, err)

	// The handle acquired before the swap still scores with the old version.
	assert.Equal(t, "1.0.0", before.Engine.Version())
	assert.Equal(t, "2.0.0", after.Engine.Version())
	assert.Equal(t, "1.0.0", after.Descriptor.SwappedFrom)
}

func TestSwap_UnknownModelFails(t *testing.T) {
	reg := New(fakeFactory, 0, nil, logger.NewNoop())
	err := reg.Swap(models.ModelTree, "2.0.0", []byte(`{}`))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestEviction_PinsMostUsedModel(t *testing.T) {
	// Budget fits two 8-byte blobs, not three.
	reg := New(fakeFactory, 16, nil, logger.NewNoop())

	clock := time.Now()
	reg.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	blob := []byte("12345678")
	require.NoError(t, reg.Load(descriptorFor(models.ModelTree, "1.0.0"), blob))
	require.NoError(t, reg.Load(descriptorFor(models.ModelSequence, "1.0.0"), blob))

	// The tree model is the hot path.
	for i := 0; i < 5; i++ {
		_, err := reg.Get(models.ModelTree)
		require.NoError(t, err)
	}
	_, err := reg.Get(models.ModelSequence)
	require.NoError(t, err)

	// Loading a third model exceeds the budget; the sequence model, least
	// recently used among the unpinned, is evicted. The tree model survives.
	require.NoError(t, reg.Load(descriptorFor(models.ModelEnsemble, "1.0.0"), blob))

	_, err = reg.Get(models.ModelTree)
	assert.NoError(t, err)

	_, err = reg.Get(models.ModelSequence)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))

	d, ok := reg.Descriptor(models.ModelSequence)
	require.True(t, ok)
	assert.Equal(t, models.LoadStateRetired, d.State)
}

func TestDescriptors_ListsAll(t *testing.T) {
	reg := New(fakeFactory, 0, nil, logger.NewNoop())
	require.NoError(t, reg.Load(descriptorFor(models.ModelTree, "1.0.0"), []byte(`{}`)))
	require.NoError(t, reg.Load(descriptorFor(models.ModelSequence, "1.0.0"), []byte(`{}`)))
	assert.Len(t, reg.Descriptors(), 2)
}

func TestParseArtifactName(t *testing.T) {
	id, version, ok := parseArtifactName("xgboost-1.2.0.json")
	require.True(t, ok)
	assert.Equal(t, models.ModelTree, id)
	assert.Equal(t, "1.2.0", version)

	id, version, ok = parseArtifactName("lstm-2.0.0-rc1.json")
	require.True(t, ok)
	assert.Equal(t, models.ModelSequence, id)
	assert.Equal(t, "2.0.0-rc1", version)

	_, _, ok = parseArtifactName("unknown-1.0.0.json")
	assert.False(t, ok)

	_, _, ok = parseArtifactName("xgboost.json")
	assert.False(t, ok)

	_, _, ok = parseArtifactName("xgboost-1.0.0.bin")
	assert.False(t, ok)
}
