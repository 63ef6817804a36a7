package features

import (
	"fmt"
	"strings"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// Builder implements service.FeatureBuilder. Pure: same profile and records
// produce the same vector, byte for byte.
type Builder struct {
	schema []FeatureDef
}

var _ service.FeatureBuilder = (*Builder)(nil)

// NewBuilder creates the feature builder over the current schema.
func NewBuilder() *Builder {
	return &Builder{schema: Schema()}
}

// Build validates the profile and assembles the feature vector. Missing
// required profile fields fail with a validation error; missing optional
// external data is defaulted and recorded on the vector.
func (b *Builder) Build(profile models.BusinessProfile, records map[constants.ProviderID]models.ExternalDataRecord) (models.FeatureVector, error) {
	if missing := profile.RequiredFields(); len(missing) > 0 {
		return models.FeatureVector{}, pkgerrors.ErrValidation("missing required profile fields").
			WithDetail("fields", strings.Join(missing, ","))
	}

	vector := models.FeatureVector{
		SchemaVersion: SchemaVersion,
		Values:        make([]models.FeatureValue, 0, len(b.schema)),
	}

	for _, def := range b.schema {
		value, defaulted := b.resolve(def, profile, records)
		vector.Values = append(vector.Values, models.FeatureValue{
			Name:  def.Name,
			Group: def.Group,
			Value: value,
		})
		if defaulted {
			vector.Defaulted = append(vector.Defaulted, def.Name)
		}
	}

	vector.History = historyWindow(records[constants.ProviderFinancial])
	vector.DataQuality = dataQuality(records)
	return vector, nil
}

// resolve returns the feature value and whether a default was substituted.
func (b *Builder) resolve(def FeatureDef, profile models.BusinessProfile, records map[constants.ProviderID]models.ExternalDataRecord) (float64, bool) {
	if def.Provider == "" {
		switch def.Name {
		case "industry_risk":
			return industryRisk(profile.Industry), false
		case "country_risk":
			return countryRisk(profile.Country), false
		}
		return def.Default, true
	}

	record, ok := records[def.Provider]
	if !ok || !record.Succeeded {
		return def.Default, true
	}
	value, ok := record.Signals[def.Signal]
	if !ok {
		return def.Default, true
	}
	return value, false
}

// historyWindow assembles the fixed-length monthly revenue trajectory from the
// financial record's indexed series signals, oldest first. Short series are
// front-padded with the earliest observation so the window length is stable.
func historyWindow(record models.ExternalDataRecord) [][]float64 {
	if !record.Succeeded {
		return nil
	}

	var series []float64
	for i := 0; ; i++ {
		v, ok := record.Signals[fmt.Sprintf("monthly_revenue_%02d", i)]
		if !ok {
			break
		}
		series = append(series, v)
	}
	if len(series) == 0 {
		return nil
	}

	if len(series) > constants.SequenceWindowSize {
		series = series[len(series)-constants.SequenceWindowSize:]
	}

	window := make([][]float64, 0, constants.SequenceWindowSize)
	for pad := constants.SequenceWindowSize - len(series); pad > 0; pad-- {
		window = append(window, []float64{series[0]})
	}
	for _, v := range series {
		window = append(window, []float64{v})
	}
	return window
}

// dataQuality is the mean provider-reported quality over all expected
// providers, with failed or absent providers contributing zero.
func dataQuality(records map[constants.ProviderID]models.ExternalDataRecord) float64 {
	if len(constants.AllProviders) == 0 {
		return 0
	}
	var sum float64
	for _, id := range constants.AllProviders {
		if record, ok := records[id]; ok && record.Succeeded {
			sum += record.Quality
		}
	}
	return sum / float64(len(constants.AllProviders))
}
