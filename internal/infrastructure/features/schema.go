// Package features converts a business profile plus aggregated provider data
// into the fixed-shape feature vector consumed by the inference engines.
package features

import (
	"strings"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/pkg/constants"
)

// SchemaVersion identifies the feature schema. Engines are trained against a
// schema version; bumping it requires retraining.
const SchemaVersion = "1.0.0"

// FeatureDef declares one feature of the schema: where it comes from and what
// value it takes when the backing data is missing.
type FeatureDef struct {
	Name  string
	Group models.FeatureGroup

	// Provider names the external provider supplying the feature. Empty for
	// features derived from the profile itself.
	Provider constants.ProviderID

	// Signal is the provider signal name. Ignored for profile-derived features.
	Signal string

	// Default substitutes for missing data. Defaults are neutral-risk values,
	// not zeros, so a missing provider does not read as a pristine business.
	Default float64
}

// Schema returns the ordered feature definitions. The order is the vector
// order and is part of the engine contract.
func Schema() []FeatureDef {
	return []FeatureDef{
		// Financial profile.
		{Name: "revenue_growth", Group: models.FeatureGroupFinancial, Provider: constants.ProviderFinancial, Signal: "revenue_growth", Default: 0.0},
		{Name: "profit_margin", Group: models.FeatureGroupFinancial, Provider: constants.ProviderFinancial, Signal: "profit_margin", Default: 0.05},
		{Name: "debt_ratio", Group: models.FeatureGroupFinancial, Provider: constants.ProviderFinancial, Signal: "debt_ratio", Default: 0.5},
		{Name: "liquidity_ratio", Group: models.FeatureGroupFinancial, Provider: constants.ProviderFinancial, Signal: "liquidity_ratio", Default: 1.0},
		{Name: "credit_utilization", Group: models.FeatureGroupFinancial, Provider: constants.ProviderFinancial, Signal: "credit_utilization", Default: 0.5},
		{Name: "payment_delinquencies", Group: models.FeatureGroupFinancial, Provider: constants.ProviderFinancial, Signal: "payment_delinquencies", Default: 1.0},
		{Name: "years_in_operation", Group: models.FeatureGroupOperational, Provider: constants.ProviderFinancial, Signal: "years_in_operation", Default: 3.0},

		// Compliance screening.
		{Name: "sanction_hits", Group: models.FeatureGroupCompliance, Provider: constants.ProviderSanctions, Signal: "sanction_hits", Default: 0.0},
		{Name: "watchlist_hits", Group: models.FeatureGroupCompliance, Provider: constants.ProviderSanctions, Signal: "watchlist_hits", Default: 0.0},
		{Name: "pep_matches", Group: models.FeatureGroupCompliance, Provider: constants.ProviderSanctions, Signal: "pep_matches", Default: 0.0},

		// Media sentiment.
		{Name: "sentiment_score", Group: models.FeatureGroupSentiment, Provider: constants.ProviderAdverseMedia, Signal: "sentiment_score", Default: 0.0},
		{Name: "article_count", Group: models.FeatureGroupSentiment, Provider: constants.ProviderAdverseMedia, Signal: "article_count", Default: 0.0},
		{Name: "negative_ratio", Group: models.FeatureGroupSentiment, Provider: constants.ProviderAdverseMedia, Signal: "negative_ratio", Default: 0.0},

		// Profile-derived.
		{Name: "industry_risk", Group: models.FeatureGroupOperational, Default: 0.3},
		{Name: "country_risk", Group: models.FeatureGroupOperational, Default: 0.2},
	}
}

// DefaultVector builds the all-defaults vector. Engine baselines score it.
func DefaultVector() models.FeatureVector {
	schema := Schema()
	values := make([]models.FeatureValue, 0, len(schema))
	for _, def := range schema {
		values = append(values, models.FeatureValue{Name: def.Name, Group: def.Group, Value: def.Default})
	}
	return models.FeatureVector{SchemaVersion: SchemaVersion, Values: values}
}

// industryRiskBands maps the leading two digits of an industry classification
// code to an a-priori risk band.
var industryRiskBands = map[string]float64{
	"45": 0.35, // construction
	"47": 0.30, // retail
	"52": 0.25, // warehousing, logistics
	"64": 0.50, // financial services
	"66": 0.50, // financial auxiliaries
	"92": 0.70, // gambling
	"93": 0.40, // sports, recreation
}

// highRiskCountries lists jurisdictions carrying an elevated a-priori risk.
var highRiskCountries = map[string]float64{
	"AF": 0.9, "BY": 0.8, "IR": 0.9, "KP": 0.95, "MM": 0.85,
	"RU": 0.8, "SD": 0.85, "SY": 0.9, "VE": 0.75, "YE": 0.85,
}

// industryRisk encodes the industry classification code to a risk band.
func industryRisk(industry string) float64 {
	code := strings.TrimSpace(industry)
	if len(code) >= 2 {
		if band, ok := industryRiskBands[code[:2]]; ok {
			return band
		}
	}
	return 0.3
}

// countryRisk encodes the ISO country code to a risk band.
func countryRisk(country string) float64 {
	if band, ok := highRiskCountries[strings.ToUpper(strings.TrimSpace(country))]; ok {
		return band
	}
	return 0.2
}
