package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/repository"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
)

// AssessmentRepository is the gorm-backed implementation of
// repository.AssessmentRepository.
type AssessmentRepository struct {
	db *gorm.DB
}

var _ repository.AssessmentRepository = (*AssessmentRepository)(nil)

// NewAssessmentRepository creates the repository over an open gorm handle.
func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// Create inserts a new pending assessment.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.RiskAssessment) error {
	if err := r.db.WithContext(ctx).Create(assessment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgerrors.ErrConflict("assessment " + assessment.ID + " already exists")
		}
		return pkgerrors.ErrInternal(err)
	}
	return nil
}

// Save upserts the full aggregate state.
func (r *AssessmentRepository) Save(ctx context.Context, assessment *models.RiskAssessment) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(assessment).Error
	if err != nil {
		return pkgerrors.ErrInternal(err)
	}
	return nil
}

// GetByID loads one assessment.
func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*models.RiskAssessment, error) {
	var assessment models.RiskAssessment
	err := r.db.WithContext(ctx).First(&assessment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound("assessment", id)
		}
		return nil, pkgerrors.ErrInternal(err)
	}
	return &assessment, nil
}

// ListByBusiness returns recent assessments for one business identity.
func (r *AssessmentRepository) ListByBusiness(ctx context.Context, businessID string, limit int) ([]*models.RiskAssessment, error) {
	if limit <= 0 {
		limit = 20
	}
	var assessments []*models.RiskAssessment
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at DESC").
		Limit(limit).
		Find(&assessments).Error
	if err != nil {
		return nil, pkgerrors.ErrInternal(err)
	}
	return assessments, nil
}

// AppendWebhookAttempt persists one delivery-audit entry against the stored
// aggregate. The read-modify-write runs in a transaction so concurrent
// attempts never drop each other's entries.
func (r *AssessmentRepository) AppendWebhookAttempt(ctx context.Context, id string, attempt models.WebhookAttempt) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assessment models.RiskAssessment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&assessment, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.ErrNotFound("assessment", id)
			}
			return pkgerrors.ErrInternal(err)
		}

		assessment.AppendWebhookAttempt(attempt)
		if err := tx.Model(&assessment).
			Select("webhook_attempts", "updated_at").
			Updates(&assessment).Error; err != nil {
			return pkgerrors.ErrInternal(err)
		}
		return nil
	})
}
