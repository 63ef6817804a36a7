package engines

import (
	"strconv"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// DescriptorSource looks up the declared applicability range of a model.
type DescriptorSource interface {
	Descriptor(id models.ModelID) (models.ModelDescriptor, bool)
}

// HorizonRouter implements service.Router: pure horizon bucketing with
// range-validated explicit overrides.
type HorizonRouter struct {
	descriptors DescriptorSource
}

var _ service.Router = (*HorizonRouter)(nil)

// NewRouter creates the router over a descriptor source (the registry).
func NewRouter(descriptors DescriptorSource) *HorizonRouter {
	return &HorizonRouter{descriptors: descriptors}
}

// Route selects the model for a horizon. Auto selections bucket the horizon;
// explicit selections are validated against the model's declared range and
// rejected with an unsupported-horizon error when outside it.
func (r *HorizonRouter) Route(selection models.ModelSelection) (models.ModelID, error) {
	if selection.Horizon < constants.MinHorizonMonths {
		return "", pkgerrors.ErrValidation("prediction horizon must be at least 1 month").
			WithDetail("horizon_months", strconv.Itoa(selection.Horizon))
	}

	if selection.IsAuto() {
		switch {
		case selection.Horizon < constants.ShortHorizonUpper:
			return models.ModelTree, nil
		case selection.Horizon < constants.BlendHorizonUpper:
			return models.ModelEnsemble, nil
		default:
			return models.ModelSequence, nil
		}
	}

	if !models.KnownModel(selection.Explicit) {
		return "", pkgerrors.ErrValidation("unknown model preference").
			WithDetail("model_id", string(selection.Explicit))
	}

	descriptor, ok := r.descriptors.Descriptor(selection.Explicit)
	if !ok {
		return "", pkgerrors.ErrNotFound("model", string(selection.Explicit))
	}
	if !descriptor.SupportsHorizon(selection.Horizon) {
		return "", pkgerrors.ErrUnsupportedHorizon(string(selection.Explicit), selection.Horizon)
	}
	return selection.Explicit, nil
}
