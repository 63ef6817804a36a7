// Package dto defines the public request and response shapes of the HTTP API.
package dto

import (
	"sort"
	"strconv"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// CreateAssessmentRequest is the body of POST /api/v1/assessments.
type CreateAssessmentRequest struct {
	BusinessName    string `json:"business_name" binding:"required"`
	BusinessAddress string `json:"business_address" binding:"required"`
	Industry        string `json:"industry" binding:"required"`
	Country         string `json:"country" binding:"required"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
	Website         string `json:"website,omitempty"`

	// PredictionHorizon is the primary horizon in months. Defaults to 3.
	PredictionHorizon int `json:"prediction_horizon,omitempty"`

	// PredictionHorizons optionally requests additional horizons. The primary
	// horizon is always included.
	PredictionHorizons []int `json:"prediction_horizons,omitempty"`

	// ModelPreference overrides automatic model selection: auto (default),
	// xgboost, lstm, or ensemble.
	ModelPreference string `json:"model_preference,omitempty"`
}

// Profile converts the request to the domain profile.
func (r *CreateAssessmentRequest) Profile() models.BusinessProfile {
	return models.BusinessProfile{
		Name:     r.BusinessName,
		Address:  r.BusinessAddress,
		Industry: r.Industry,
		Country:  r.Country,
		Phone:    r.Phone,
		Email:    r.Email,
		Website:  r.Website,
	}
}

// Horizons returns the deduplicated, sorted set of requested horizons with
// the primary horizon first resolved. Invalid horizons fail validation here
// so routing never sees them.
func (r *CreateAssessmentRequest) Horizons() (primary int, all []int, err error) {
	primary = r.PredictionHorizon
	if primary == 0 {
		primary = constants.DefaultHorizonMonths
	}
	if primary < constants.MinHorizonMonths {
		return 0, nil, pkgerrors.ErrValidation("prediction_horizon must be at least 1 month")
	}

	seen := map[int]bool{primary: true}
	all = []int{primary}
	for _, h := range r.PredictionHorizons {
		if h < constants.MinHorizonMonths {
			return 0, nil, pkgerrors.ErrValidation("prediction_horizons entries must be at least 1 month")
		}
		if !seen[h] {
			seen[h] = true
			all = append(all, h)
		}
	}
	sort.Ints(all)
	return primary, all, nil
}

// Preference parses model_preference. Empty and "auto" mean automatic
// selection; anything else must name a known model.
func (r *CreateAssessmentRequest) Preference() (models.ModelID, error) {
	switch r.ModelPreference {
	case "", "auto":
		return "", nil
	}
	id := models.ModelID(r.ModelPreference)
	if !models.KnownModel(id) {
		return "", pkgerrors.ErrValidation("unknown model_preference").
			WithDetail("model_preference", r.ModelPreference)
	}
	return id, nil
}

// ================================================================================
// Responses
// ================================================================================

// PredictionView is one horizon's prediction in the public response.
type PredictionView struct {
	HorizonMonths int     `json:"horizon_months"`
	ModelUsed     string  `json:"model_used"`
	Score         float64 `json:"predicted_score"`
	Confidence    float64 `json:"confidence"`
}

// RiskFactorView is one contributing factor in the public response.
type RiskFactorView struct {
	Category   string  `json:"category"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Weight     float64 `json:"weight"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// ContributionView is one explainability attribution in the public response.
type ContributionView struct {
	Feature       string  `json:"feature"`
	Contribution  float64 `json:"contribution"`
	Direction     string  `json:"direction"`
	LowConfidence bool    `json:"low_confidence,omitempty"`
}

// AssessmentResponse is the public view of one assessment. Predictions are
// keyed by the horizon in months.
type AssessmentResponse struct {
	ID          string                    `json:"id"`
	BusinessID  string                    `json:"business_id"`
	Status      string                    `json:"status"`
	RiskScore   float64                   `json:"risk_score"`
	RiskLevel   string                    `json:"risk_level"`
	Confidence  float64                   `json:"confidence_score"`
	Predictions map[string]PredictionView `json:"predictions,omitempty"`
	RiskFactors []RiskFactorView          `json:"risk_factors,omitempty"`

	Explanations  []ContributionView `json:"explanations,omitempty"`
	FailureReason string             `json:"failure_reason,omitempty"`
	CreatedAt     string             `json:"created_at"`
	CompletedAt   string             `json:"completed_at,omitempty"`

	// Replayed marks a response served from an earlier request via its
	// Idempotency-Key. Drives the 200-vs-201 status choice, never serialized.
	Replayed bool `json:"-"`
}

// NewAssessmentResponse maps the aggregate to its public view.
func NewAssessmentResponse(a *models.RiskAssessment, explanations []service.Contribution) AssessmentResponse {
	resp := AssessmentResponse{
		ID:         a.ID,
		BusinessID: a.BusinessID,
		Status:     string(a.Status),
		RiskScore:  a.RiskScore,
		RiskLevel:  string(a.RiskLevel),
		Confidence: a.Confidence,
		CreatedAt:  a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if a.CompletedAt != nil {
		resp.CompletedAt = a.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	resp.FailureReason = a.FailureReason

	if len(a.Predictions) > 0 {
		resp.Predictions = make(map[string]PredictionView, len(a.Predictions))
		for _, p := range a.Predictions {
			resp.Predictions[horizonKey(p.HorizonMonths)] = PredictionView{
				HorizonMonths: p.HorizonMonths,
				ModelUsed:     string(p.ModelID),
				Score:         p.Score,
				Confidence:    p.Confidence,
			}
		}
	}
	for _, f := range a.RiskFactors {
		resp.RiskFactors = append(resp.RiskFactors, RiskFactorView(f))
	}
	for _, c := range explanations {
		resp.Explanations = append(resp.Explanations, ContributionView{
			Feature:       c.Feature,
			Contribution:  c.Contribution,
			Direction:     string(c.Direction),
			LowConfidence: c.LowConfidence,
		})
	}
	return resp
}

func horizonKey(months int) string {
	return strconv.Itoa(months)
}
