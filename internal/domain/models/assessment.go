package models

import (
	"time"

	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// ================================================================================
// Risk Level Buckets
// ================================================================================

// RiskLevel is the deterministic bucket of a risk score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// LevelForScore maps a 0.0-1.0 risk score to its level bucket:
// low < 0.3, medium < 0.6, high < 0.8, critical >= 0.8.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score < 0.3:
		return RiskLevelLow
	case score < 0.6:
		return RiskLevelMedium
	case score < 0.8:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// ================================================================================
// Prediction & Risk Factor
// ================================================================================

// Prediction is one model's point estimate for one horizon.
type Prediction struct {
	HorizonMonths int     `json:"horizon_months"`
	ModelID       ModelID `json:"model_used"`
	Score         float64 `json:"predicted_score"` // 0.0-1.0 inclusive
	Confidence    float64 `json:"confidence"`      // 0.0-1.0
}

// RiskFactor is a named line item contributing to the final score. Weights
// are descriptive and need not sum to 1 across an assessment.
type RiskFactor struct {
	Category   string  `json:"category"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Weight     float64 `json:"weight"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// ================================================================================
// Assessment Aggregate
// ================================================================================

// AssessmentStatus is the lifecycle state of a RiskAssessment.
type AssessmentStatus string

const (
	StatusPending   AssessmentStatus = "pending"
	StatusCompleted AssessmentStatus = "completed"
	StatusFailed    AssessmentStatus = "failed"
)

// WebhookAttempt is one recorded outbound delivery attempt. Appending these
// is the only mutation allowed after an assessment reaches a terminal status.
type WebhookAttempt struct {
	Endpoint    string    `json:"endpoint"`
	Attempt     int       `json:"attempt"`
	StatusCode  int       `json:"status_code,omitempty"`
	Err         string    `json:"error,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// RiskAssessment is the aggregate root of one assessment request. It is
// created pending, mutated only by the risk assembler, and immutable once
// terminal except for append-only audit fields.
type RiskAssessment struct {
	ID         string          `json:"id" gorm:"primaryKey;size:64"`
	BusinessID string          `json:"business_id" gorm:"index;size:64"`
	Profile    BusinessProfile `json:"business_profile" gorm:"embedded;embeddedPrefix:profile_"`

	Predictions []Prediction `json:"predictions" gorm:"serializer:json"`
	RiskFactors []RiskFactor `json:"risk_factors" gorm:"serializer:json"`

	RiskScore  float64   `json:"risk_score"`
	RiskLevel  RiskLevel `json:"risk_level" gorm:"size:16"`
	Confidence float64   `json:"confidence_score"`

	Status        AssessmentStatus `json:"status" gorm:"size:16;index"`
	FailureReason string           `json:"failure_reason,omitempty"`

	WebhookAttempts []WebhookAttempt `json:"webhook_attempts,omitempty" gorm:"serializer:json"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewRiskAssessment creates a pending assessment for the given profile.
func NewRiskAssessment(id string, profile BusinessProfile) *RiskAssessment {
	now := time.Now().UTC()
	return &RiskAssessment{
		ID:         id,
		BusinessID: profile.IdentityHash(),
		Profile:    profile,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Terminal reports whether the assessment reached a terminal status.
func (a *RiskAssessment) Terminal() bool {
	return a.Status == StatusCompleted || a.Status == StatusFailed
}

// Complete finalizes the assessment with the assembled score. The risk level
// is always recomputed from the score so the two can never diverge.
func (a *RiskAssessment) Complete(score, confidence float64, predictions []Prediction, factors []RiskFactor) error {
	if a.Terminal() {
		return pkgerrors.ErrConflict("assessment " + a.ID + " is already " + string(a.Status))
	}
	a.Predictions = predictions
	a.RiskFactors = factors
	a.RiskScore = score
	a.RiskLevel = LevelForScore(score)
	a.Confidence = confidence
	a.Status = StatusCompleted
	now := time.Now().UTC()
	a.CompletedAt = &now
	a.UpdatedAt = now
	return nil
}

// Fail marks the assessment failed, keeping whatever partial data exists for
// auditability.
func (a *RiskAssessment) Fail(reason string) error {
	if a.Terminal() {
		return pkgerrors.ErrConflict("assessment " + a.ID + " is already " + string(a.Status))
	}
	a.Status = StatusFailed
	a.FailureReason = reason
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// AppendWebhookAttempt records an outbound delivery attempt. Allowed
// post-terminal: delivery audit is append-only metadata.
func (a *RiskAssessment) AppendWebhookAttempt(attempt WebhookAttempt) {
	a.WebhookAttempts = append(a.WebhookAttempts, attempt)
	a.UpdatedAt = time.Now().UTC()
}

// PrimaryPrediction returns the prediction whose horizon matches primary, or
// the shortest-horizon prediction when no exact match exists.
func (a *RiskAssessment) PrimaryPrediction(primary int) (Prediction, bool) {
	if len(a.Predictions) == 0 {
		return Prediction{}, false
	}
	best := a.Predictions[0]
	for _, p := range a.Predictions {
		if p.HorizonMonths == primary {
			return p, true
		}
		if p.HorizonMonths < best.HorizonMonths {
			best = p
		}
	}
	return best, true
}
