// Package repository defines persistence contracts for the domain layer.
package repository

import (
	"context"

	"github.com/turtacn/riskpulse/internal/domain/models"
)

// AssessmentRepository persists RiskAssessment aggregates.
type AssessmentRepository interface {
	// Create inserts a new pending assessment.
	Create(ctx context.Context, assessment *models.RiskAssessment) error

	// Save upserts the full aggregate state.
	Save(ctx context.Context, assessment *models.RiskAssessment) error

	// GetByID loads one assessment. Returns a not_found AppError when absent.
	GetByID(ctx context.Context, id string) (*models.RiskAssessment, error)

	// ListByBusiness returns recent assessments for one business identity,
	// newest first, bounded by limit.
	ListByBusiness(ctx context.Context, businessID string, limit int) ([]*models.RiskAssessment, error)

	// AppendWebhookAttempt persists one delivery-audit entry. This is the only
	// write permitted against a terminal assessment.
	AppendWebhookAttempt(ctx context.Context, id string, attempt models.WebhookAttempt) error
}
