package models

// FeatureGroup classifies a feature by its origin.
type FeatureGroup string

const (
	FeatureGroupFinancial   FeatureGroup = "financial"
	FeatureGroupOperational FeatureGroup = "operational"
	FeatureGroupCompliance  FeatureGroup = "compliance"
	FeatureGroupSentiment   FeatureGroup = "external_sentiment"
)

// FeatureValue is one named numeric feature. Categorical inputs are encoded
// to numeric values by the feature builder before they reach a vector.
type FeatureValue struct {
	Name  string       `json:"name"`
	Group FeatureGroup `json:"group"`
	Value float64      `json:"value"`
}

// FeatureVector is the fixed-shape numeric input consumed by every inference
// engine. The order of Values follows the schema; missing optional inputs are
// filled with schema defaults and recorded in Defaulted, never dropped.
type FeatureVector struct {
	SchemaVersion string         `json:"schema_version"`
	Values        []FeatureValue `json:"values"`

	// Defaulted lists feature names that received schema defaults because the
	// backing external data was missing. Carried through for explainability.
	Defaulted []string `json:"defaulted,omitempty"`

	// History is the fixed-length window of historical monthly snapshots
	// consumed by the long-horizon engine, oldest first. Each snapshot holds
	// the financial trajectory values for one month.
	History [][]float64 `json:"history,omitempty"`

	// DataQuality is the 0.0-1.0 completeness/freshness of the external data
	// backing this vector.
	DataQuality float64 `json:"data_quality"`
}

// Get returns the value of the named feature.
func (v FeatureVector) Get(name string) (float64, bool) {
	for _, f := range v.Values {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// IsDefaulted reports whether the named feature was filled with a default.
func (v FeatureVector) IsDefaulted(name string) bool {
	for _, d := range v.Defaulted {
		if d == name {
			return true
		}
	}
	return false
}

// WithValue returns a copy of the vector with one feature replaced. The
// explainability engine uses it to score hybrid vectors; the original is
// never mutated.
func (v FeatureVector) WithValue(name string, value float64) FeatureVector {
	out := v
	out.Values = make([]FeatureValue, len(v.Values))
	copy(out.Values, v.Values)
	for i := range out.Values {
		if out.Values[i].Name == name {
			out.Values[i].Value = value
			break
		}
	}
	return out
}
