package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/riskpulse/internal/domain/models"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

func setupRepository(t *testing.T) *AssessmentRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed repository test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("riskpulse_test"),
		tcpostgres.WithUsername("riskpulse"),
		tcpostgres.WithPassword("riskpulse"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RiskAssessment{}))

	return NewAssessmentRepository(db)
}

func sampleAssessment() *models.RiskAssessment {
	return models.NewRiskAssessment(uuid.NewString(), models.BusinessProfile{
		Name:     "Northwind Traders",
		Address:  "Main St 1",
		Industry: "4789",
		Country:  "US",
	})
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	assessment := sampleAssessment()
	require.NoError(t, repo.Create(ctx, assessment))

	got, err := repo.GetByID(ctx, assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.ID, got.ID)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, "Northwind Traders", got.Profile.Name)
}

func TestRepository_GetMissingIsNotFound(t *testing.T) {
	repo := setupRepository(t)

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestRepository_SaveUpsertsTerminalState(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	assessment := sampleAssessment()
	require.NoError(t, repo.Create(ctx, assessment))

	predictions := []models.Prediction{
		{HorizonMonths: 3, ModelID: models.ModelEnsemble, Score: 0.72, Confidence: 0.81},
	}
	factors := []models.RiskFactor{
		{Category: "financial", Name: "debt_ratio", Score: 0.9, Weight: 0.4, Source: "financial", Confidence: 1},
	}
	require.NoError(t, assessment.Complete(0.72, 0.81, predictions, factors))
	require.NoError(t, repo.Save(ctx, assessment))

	got, err := repo.GetByID(ctx, assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, models.RiskLevelHigh, got.RiskLevel)
	assert.InDelta(t, 0.72, got.RiskScore, 1e-9)
	require.Len(t, got.Predictions, 1)
	assert.Equal(t, models.ModelEnsemble, got.Predictions[0].ModelID)
	require.Len(t, got.RiskFactors, 1)
	assert.NotNil(t, got.CompletedAt)
}

func TestRepository_ListByBusinessNewestFirst(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	first := sampleAssessment()
	require.NoError(t, repo.Create(ctx, first))

	second := sampleAssessment()
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	require.NoError(t, repo.Create(ctx, second))

	got, err := repo.ListByBusiness(ctx, first.BusinessID, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)

	limited, err := repo.ListByBusiness(ctx, first.BusinessID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRepository_AppendWebhookAttempt(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	assessment := sampleAssessment()
	require.NoError(t, assessment.Complete(0.2, 0.9, nil, nil))
	require.NoError(t, repo.Create(ctx, assessment))

	attempt := models.WebhookAttempt{
		Endpoint:    "https://hooks.example.com/risk",
		Attempt:     1,
		StatusCode:  200,
		AttemptedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.AppendWebhookAttempt(ctx, assessment.ID, attempt))

	got, err := repo.GetByID(ctx, assessment.ID)
	require.NoError(t, err)
	require.Len(t, got.WebhookAttempts, 1)
	assert.Equal(t, "https://hooks.example.com/risk", got.WebhookAttempts[0].Endpoint)

	err = repo.AppendWebhookAttempt(ctx, uuid.NewString(), attempt)
	assert.True(t, pkgerrors.IsNotFound(err))
}
