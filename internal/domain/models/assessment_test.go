package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() BusinessProfile {
	return BusinessProfile{
		Name:     "Acme Trading Ltd",
		Address:  "12 Harbor Way, Rotterdam",
		Industry: "4711",
		Country:  "NL",
	}
}

func TestLevelForScoreBuckets(t *testing.T) {
	cases := []struct {
		score float64
		level RiskLevel
	}{
		{0.0, RiskLevelLow},
		{0.29, RiskLevelLow},
		{0.3, RiskLevelMedium},
		{0.59, RiskLevelMedium},
		{0.6, RiskLevelHigh},
		{0.79, RiskLevelHigh},
		{0.8, RiskLevelCritical},
		{1.0, RiskLevelCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, LevelForScore(tc.score), "score %f", tc.score)
	}
}

func TestNewRiskAssessmentStartsPending(t *testing.T) {
	a := NewRiskAssessment("a-1", testProfile())

	assert.Equal(t, StatusPending, a.Status)
	assert.False(t, a.Terminal())
	assert.NotEmpty(t, a.BusinessID)
	assert.Equal(t, testProfile().IdentityHash(), a.BusinessID)
}

func TestCompleteRecomputesLevelFromScore(t *testing.T) {
	a := NewRiskAssessment("a-1", testProfile())

	predictions := []Prediction{{HorizonMonths: 3, ModelID: ModelEnsemble, Score: 0.65, Confidence: 0.8}}
	require.NoError(t, a.Complete(0.65, 0.8, predictions, nil))

	assert.Equal(t, StatusCompleted, a.Status)
	assert.Equal(t, RiskLevelHigh, a.RiskLevel)
	assert.True(t, a.Terminal())
	require.NotNil(t, a.CompletedAt)
}

func TestTerminalAssessmentRejectsFurtherTransitions(t *testing.T) {
	a := NewRiskAssessment("a-1", testProfile())
	require.NoError(t, a.Complete(0.2, 0.9, nil, nil))

	assert.Error(t, a.Complete(0.5, 0.9, nil, nil))
	assert.Error(t, a.Fail("late failure"))

	// Score and level stay frozen after the terminal transition.
	assert.Equal(t, 0.2, a.RiskScore)
	assert.Equal(t, RiskLevelLow, a.RiskLevel)
}

func TestFailKeepsPartialData(t *testing.T) {
	a := NewRiskAssessment("a-1", testProfile())
	a.RiskFactors = []RiskFactor{{Category: "data_quality", Name: "sanctions data unavailable"}}

	require.NoError(t, a.Fail("inference failed for every requested horizon"))

	assert.Equal(t, StatusFailed, a.Status)
	assert.Equal(t, "inference failed for every requested horizon", a.FailureReason)
	assert.Len(t, a.RiskFactors, 1)
}

func TestAppendWebhookAttemptAllowedPostTerminal(t *testing.T) {
	a := NewRiskAssessment("a-1", testProfile())
	require.NoError(t, a.Complete(0.4, 0.7, nil, nil))

	a.AppendWebhookAttempt(WebhookAttempt{Endpoint: "https://hooks.example.com", Attempt: 1, StatusCode: 200})
	assert.Len(t, a.WebhookAttempts, 1)
}

func TestPrimaryPrediction(t *testing.T) {
	a := NewRiskAssessment("a-1", testProfile())
	a.Predictions = []Prediction{
		{HorizonMonths: 12, ModelID: ModelSequence, Score: 0.5},
		{HorizonMonths: 3, ModelID: ModelEnsemble, Score: 0.4},
	}

	p, ok := a.PrimaryPrediction(12)
	require.True(t, ok)
	assert.Equal(t, 12, p.HorizonMonths)

	// No exact match falls back to the shortest horizon.
	p, ok = a.PrimaryPrediction(6)
	require.True(t, ok)
	assert.Equal(t, 3, p.HorizonMonths)

	empty := NewRiskAssessment("a-2", testProfile())
	_, ok = empty.PrimaryPrediction(3)
	assert.False(t, ok)
}
