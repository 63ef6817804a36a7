// Package service orchestrates the risk-prediction pipeline: provider
// aggregation, feature building, model routing and inference, explainability,
// and final assembly with persistence and event emission.
package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/riskpulse/internal/application/dto"
	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/repository"
	domainservice "github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/internal/infrastructure/monitoring"
	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// topFactorCount bounds the attribution-derived risk factors in a response.
const topFactorCount = 5

// WebhookEnqueuer queues an event for out-of-band webhook delivery.
type WebhookEnqueuer interface {
	Enqueue(ctx context.Context, event models.AssessmentEvent)
}

// IdempotencyStore claims Idempotency-Key values for replay deduplication.
type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, key, assessmentID string) (string, bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// AssessmentService is the application-level orchestrator behind the
// assessment endpoints.
type AssessmentService struct {
	repo        repository.AssessmentRepository
	aggregator  domainservice.Aggregator
	builder     domainservice.FeatureBuilder
	registry    domainservice.Registry
	router      domainservice.Router
	explainer   domainservice.Explainer
	publisher   domainservice.EventPublisher
	webhooks    WebhookEnqueuer
	idempotency IdempotencyStore

	providerTimeout time.Duration
	metrics         *monitoring.Metrics
	log             logger.Logger
}

// NewAssessmentService wires the orchestrator. webhooks and idempotency may
// be nil when those surfaces are disabled.
func NewAssessmentService(
	repo repository.AssessmentRepository,
	aggregator domainservice.Aggregator,
	builder domainservice.FeatureBuilder,
	registry domainservice.Registry,
	router domainservice.Router,
	explainer domainservice.Explainer,
	publisher domainservice.EventPublisher,
	webhooks WebhookEnqueuer,
	idempotency IdempotencyStore,
	providerTimeout time.Duration,
	metrics *monitoring.Metrics,
	log logger.Logger,
) *AssessmentService {
	if providerTimeout <= 0 {
		providerTimeout = constants.DefaultProviderTimeout
	}
	return &AssessmentService{
		repo:            repo,
		aggregator:      aggregator,
		builder:         builder,
		registry:        registry,
		router:          router,
		explainer:       explainer,
		publisher:       publisher,
		webhooks:        webhooks,
		idempotency:     idempotency,
		providerTimeout: providerTimeout,
		metrics:         metrics,
		log:             log.WithComponent("assessment"),
	}
}

// horizonPlan is one resolved (horizon, model) pair.
type horizonPlan struct {
	horizon int
	modelID models.ModelID
}

// Create runs the full pipeline for one assessment request.
func (s *AssessmentService) Create(ctx context.Context, req *dto.CreateAssessmentRequest, idempotencyKey string) (dto.AssessmentResponse, error) {
	started := time.Now()

	profile := req.Profile()
	if missing := profile.RequiredFields(); len(missing) > 0 {
		return dto.AssessmentResponse{}, pkgerrors.ErrMissingField(missing[0])
	}

	primary, horizons, err := req.Horizons()
	if err != nil {
		return dto.AssessmentResponse{}, err
	}
	preference, err := req.Preference()
	if err != nil {
		return dto.AssessmentResponse{}, err
	}

	// Resolve routing for every horizon before any state is created. An
	// explicit override outside its declared range rejects the whole request.
	plans := make([]horizonPlan, 0, len(horizons))
	for _, h := range horizons {
		selection := models.AutoSelection(h)
		if preference != "" {
			selection = models.ExplicitSelection(preference, h)
		}
		modelID, err := s.router.Route(selection)
		if err != nil {
			return dto.AssessmentResponse{}, err
		}
		plans = append(plans, horizonPlan{horizon: h, modelID: modelID})
	}

	assessmentID := uuid.NewString()

	if idempotencyKey != "" && s.idempotency != nil {
		existingID, claimed, err := s.idempotency.ClaimIdempotencyKey(ctx, idempotencyKey, assessmentID)
		if err != nil {
			s.log.Warn(ctx, "idempotency claim failed, proceeding without replay protection",
				logger.String("error", err.Error()))
		} else if !claimed {
			resp, err := s.Get(ctx, existingID)
			resp.Replayed = true
			return resp, err
		}
	}

	assessment := models.NewRiskAssessment(assessmentID, profile)
	if err := s.repo.Create(ctx, assessment); err != nil {
		s.releaseClaim(ctx, idempotencyKey)
		return dto.AssessmentResponse{}, err
	}

	records := s.aggregator.FetchAll(ctx, profile, constants.AllProviders, s.providerTimeout)

	vector, err := s.builder.Build(profile, records)
	if err != nil {
		return s.fail(ctx, assessment, started, "feature building failed: "+err.Error())
	}

	predictions, handles := s.predictAll(ctx, vector, plans)
	if len(predictions) == 0 {
		return s.fail(ctx, assessment, started, "inference failed for every requested horizon")
	}

	primaryPred, handle, ok := primaryOf(predictions, handles, primary)
	if !ok {
		// The primary horizon's model failed; the shortest surviving horizon
		// carries the headline score.
		primaryPred, handle = shortestOf(predictions, handles)
	}

	explanations, err := s.explainer.Explain(ctx, handle, vector, primaryPred)
	if err != nil {
		s.log.Error(ctx, "explainability failed, completing without attributions", err,
			logger.String("assessment_id", assessment.ID))
		explanations = nil
	}

	factors := s.riskFactors(records, explanations, primaryPred)
	confidence := overallConfidence(predictions, vector.DataQuality)

	if err := assessment.Complete(primaryPred.Score, confidence, predictions, factors); err != nil {
		return dto.AssessmentResponse{}, err
	}
	s.persist(ctx, assessment)
	s.emit(ctx, assessment, models.EventAssessmentCompleted)

	if s.metrics != nil {
		s.metrics.ObserveAssessment(string(assessment.Status), time.Since(started))
	}
	s.log.Info(ctx, "assessment completed",
		logger.String("assessment_id", assessment.ID),
		logger.String("risk_level", string(assessment.RiskLevel)),
		logger.Float64("risk_score", assessment.RiskScore),
		logger.Float64("confidence", assessment.Confidence),
		logger.Duration("elapsed", time.Since(started)),
	)
	return dto.NewAssessmentResponse(assessment, explanations), nil
}

// Get loads one assessment by id.
func (s *AssessmentService) Get(ctx context.Context, id string) (dto.AssessmentResponse, error) {
	assessment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.AssessmentResponse{}, err
	}
	return dto.NewAssessmentResponse(assessment, nil), nil
}

// ListByBusiness returns recent assessments for one business identity.
func (s *AssessmentService) ListByBusiness(ctx context.Context, businessID string, limit int) ([]dto.AssessmentResponse, error) {
	assessments, err := s.repo.ListByBusiness(ctx, businessID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AssessmentResponse, 0, len(assessments))
	for _, a := range assessments {
		out = append(out, dto.NewAssessmentResponse(a, nil))
	}
	return out, nil
}

// predictAll scores every planned horizon concurrently. A failed horizon is
// dropped, not fatal; the caller decides what a fully empty result means.
func (s *AssessmentService) predictAll(ctx context.Context, vector models.FeatureVector, plans []horizonPlan) ([]models.Prediction, map[int]domainservice.ModelHandle) {
	var mu sync.Mutex
	predictions := make([]models.Prediction, 0, len(plans))
	handles := make(map[int]domainservice.ModelHandle, len(plans))

	g, gctx := errgroup.WithContext(ctx)
	for _, plan := range plans {
		g.Go(func() error {
			handle, err := s.registry.Get(plan.modelID)
			if err != nil {
				s.log.Error(gctx, "model unavailable for horizon", err,
					logger.String("model_id", string(plan.modelID)),
					logger.Int("horizon_months", plan.horizon),
				)
				return nil
			}

			inferStart := time.Now()
			pred, err := handle.Engine.Predict(gctx, vector, plan.horizon)
			if s.metrics != nil {
				s.metrics.ObserveInference(string(plan.modelID), time.Since(inferStart))
			}
			if err != nil {
				s.log.Error(gctx, "inference failed for horizon", err,
					logger.String("model_id", string(plan.modelID)),
					logger.Int("horizon_months", plan.horizon),
				)
				return nil
			}

			mu.Lock()
			predictions = append(predictions, pred)
			handles[plan.horizon] = handle
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	sort.Slice(predictions, func(i, j int) bool {
		return predictions[i].HorizonMonths < predictions[j].HorizonMonths
	})
	return predictions, handles
}

// riskFactors assembles the response's factor list: failed-provider markers,
// standout provider signals, and the top attributions of the primary model.
func (s *AssessmentService) riskFactors(records map[constants.ProviderID]models.ExternalDataRecord, explanations []domainservice.Contribution, primary models.Prediction) []models.RiskFactor {
	var factors []models.RiskFactor

	for _, id := range constants.AllProviders {
		record, ok := records[id]
		if !ok || !record.Succeeded {
			factors = append(factors, models.RiskFactor{
				Category:   "data_quality",
				Name:       fmt.Sprintf("%s data unavailable", id),
				Source:     string(id),
				Confidence: 0,
			})
		}
	}

	ranked := make([]domainservice.Contribution, len(explanations))
	copy(ranked, explanations)
	sort.Slice(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Contribution) > math.Abs(ranked[j].Contribution)
	})

	var totalAbs float64
	for _, c := range ranked {
		totalAbs += math.Abs(c.Contribution)
	}

	for i, c := range ranked {
		if i >= topFactorCount || c.Contribution == 0 {
			break
		}
		weight := 0.0
		if totalAbs > 0 {
			weight = math.Abs(c.Contribution) / totalAbs
		}
		confidence := primary.Confidence
		if c.LowConfidence {
			confidence = confidence / 2
		}
		factors = append(factors, models.RiskFactor{
			Category:   "model_attribution",
			Name:       c.Feature,
			Score:      c.Contribution,
			Weight:     weight,
			Source:     string(primary.ModelID),
			Confidence: confidence,
		})
	}
	return factors
}

// fail finalizes a pipeline failure: the assessment is marked failed,
// persisted, and a failure event is emitted.
func (s *AssessmentService) fail(ctx context.Context, assessment *models.RiskAssessment, started time.Time, reason string) (dto.AssessmentResponse, error) {
	if err := assessment.Fail(reason); err != nil {
		return dto.AssessmentResponse{}, err
	}
	s.persist(ctx, assessment)
	s.emit(ctx, assessment, models.EventAssessmentFailed)

	if s.metrics != nil {
		s.metrics.ObserveAssessment(string(assessment.Status), time.Since(started))
	}
	s.log.Warn(ctx, "assessment failed",
		logger.String("assessment_id", assessment.ID),
		logger.String("reason", reason),
	)
	return dto.NewAssessmentResponse(assessment, nil), nil
}

// persist saves the aggregate with bounded retries. The computed result is
// returned to the caller even if durability could not be achieved; the
// failure is logged for reconciliation.
func (s *AssessmentService) persist(ctx context.Context, assessment *models.RiskAssessment) {
	var err error
	for attempt := 1; attempt <= constants.DefaultPersistAttempts; attempt++ {
		if err = s.repo.Save(ctx, assessment); err == nil {
			return
		}
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	s.log.Error(ctx, "failed to persist assessment after retries", err,
		logger.String("assessment_id", assessment.ID),
		logger.Int("attempts", constants.DefaultPersistAttempts),
	)
}

// emit publishes the assessment event and queues webhook delivery. Both are
// best-effort; neither failure surfaces to the caller.
func (s *AssessmentService) emit(ctx context.Context, assessment *models.RiskAssessment, eventType models.EventType) {
	event := models.NewAssessmentEvent(uuid.NewString(), eventType, assessment)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.log.Error(ctx, "event publish failed", err,
				logger.String("assessment_id", assessment.ID))
		}
	}
	if s.webhooks != nil {
		s.webhooks.Enqueue(ctx, event)
	}
}

func (s *AssessmentService) releaseClaim(ctx context.Context, key string) {
	if key == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.ReleaseIdempotencyKey(ctx, key); err != nil {
		s.log.Warn(ctx, "failed to release idempotency claim",
			logger.String("error", err.Error()))
	}
}

func primaryOf(predictions []models.Prediction, handles map[int]domainservice.ModelHandle, primary int) (models.Prediction, domainservice.ModelHandle, bool) {
	for _, p := range predictions {
		if p.HorizonMonths == primary {
			return p, handles[p.HorizonMonths], true
		}
	}
	return models.Prediction{}, domainservice.ModelHandle{}, false
}

func shortestOf(predictions []models.Prediction, handles map[int]domainservice.ModelHandle) (models.Prediction, domainservice.ModelHandle) {
	best := predictions[0]
	for _, p := range predictions[1:] {
		if p.HorizonMonths < best.HorizonMonths {
			best = p
		}
	}
	return best, handles[best.HorizonMonths]
}

// overallConfidence combines the per-model confidences with the external data
// completeness: thin data lowers confidence even when every model is sure.
func overallConfidence(predictions []models.Prediction, dataQuality float64) float64 {
	if len(predictions) == 0 {
		return 0
	}
	var sum float64
	for _, p := range predictions {
		sum += p.Confidence
	}
	mean := sum / float64(len(predictions))
	return mean * (0.5 + 0.5*dataQuality)
}
