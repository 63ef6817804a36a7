package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/riskpulse/internal/application/dto"
	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/domain/models"
	domainservice "github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/internal/infrastructure/engines"
	"github.com/turtacn/riskpulse/internal/infrastructure/explain"
	"github.com/turtacn/riskpulse/internal/infrastructure/features"
	"github.com/turtacn/riskpulse/internal/infrastructure/registry"
	"github.com/turtacn/riskpulse/pkg/constants"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// ================================================================================
// Fakes
// ================================================================================

type memRepo struct {
	mu    sync.Mutex
	items map[string]*models.RiskAssessment
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[string]*models.RiskAssessment)}
}

func (r *memRepo) store(a *models.RiskAssessment) {
	clone := *a
	r.items[a.ID] = &clone
}

func (r *memRepo) Create(_ context.Context, a *models.RiskAssessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[a.ID]; ok {
		return pkgerrors.ErrConflict("duplicate id")
	}
	r.store(a)
	return nil
}

func (r *memRepo) Save(_ context.Context, a *models.RiskAssessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store(a)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*models.RiskAssessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound("assessment", id)
	}
	clone := *a
	return &clone, nil
}

func (r *memRepo) ListByBusiness(_ context.Context, businessID string, _ int) ([]*models.RiskAssessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.RiskAssessment
	for _, a := range r.items {
		if a.BusinessID == businessID {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memRepo) AppendWebhookAttempt(_ context.Context, id string, attempt models.WebhookAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return pkgerrors.ErrNotFound("assessment", id)
	}
	a.AppendWebhookAttempt(attempt)
	return nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type fakeAggregator struct {
	records map[constants.ProviderID]models.ExternalDataRecord
}

func (f *fakeAggregator) FetchAll(context.Context, models.BusinessProfile, []constants.ProviderID, time.Duration) map[constants.ProviderID]models.ExternalDataRecord {
	return f.records
}

func (f *fakeAggregator) BreakerStates() []models.CircuitBreakerState { return nil }
func (f *fakeAggregator) ResetBreaker(constants.ProviderID) bool      { return false }

type fakePublisher struct {
	mu     sync.Mutex
	events []models.AssessmentEvent
}

func (p *fakePublisher) Publish(_ context.Context, event models.AssessmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeWebhooks struct {
	mu     sync.Mutex
	queued []models.AssessmentEvent
}

func (w *fakeWebhooks) Enqueue(_ context.Context, event models.AssessmentEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queued = append(w.queued, event)
}

type fakeIdempotency struct {
	mu     sync.Mutex
	claims map[string]string
}

func (f *fakeIdempotency) ClaimIdempotencyKey(_ context.Context, key, id string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claims == nil {
		f.claims = make(map[string]string)
	}
	if existing, ok := f.claims[key]; ok {
		return existing, false, nil
	}
	f.claims[key] = id
	return id, true, nil
}

func (f *fakeIdempotency) ReleaseIdempotencyKey(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claims, key)
	return nil
}

// ================================================================================
// Fixtures
// ================================================================================

func healthyRecords() map[constants.ProviderID]models.ExternalDataRecord {
	monthly := map[string]float64{
		"revenue_growth": 0.08, "profit_margin": 0.1, "debt_ratio": 0.35,
		"liquidity_ratio": 1.6, "credit_utilization": 0.4,
		"payment_delinquencies": 0, "years_in_operation": 8,
	}
	for i := 0; i < constants.SequenceWindowSize; i++ {
		monthly["monthly_revenue_"+pad2(i)] = 100 + float64(i)*3
	}
	return map[constants.ProviderID]models.ExternalDataRecord{
		constants.ProviderFinancial: {
			ProviderID: constants.ProviderFinancial, Signals: monthly,
			FetchedAt: time.Now().UTC(), Succeeded: true, Quality: 1.0,
		},
		constants.ProviderSanctions: {
			ProviderID: constants.ProviderSanctions,
			Signals:    map[string]float64{"sanction_hits": 0, "watchlist_hits": 0, "pep_matches": 0},
			FetchedAt:  time.Now().UTC(), Succeeded: true, Quality: 1.0,
		},
		constants.ProviderAdverseMedia: {
			ProviderID: constants.ProviderAdverseMedia,
			Signals:    map[string]float64{"sentiment_score": 0, "article_count": 0, "negative_ratio": 0},
			FetchedAt:  time.Now().UTC(), Succeeded: true, Quality: 1.0,
		},
	}
}

func pad2(i int) string {
	if i < 10 {
		return "0" + strconv.Itoa(i)
	}
	return strconv.Itoa(i)
}

func configModels() config.ModelsConfig {
	return config.ModelsConfig{
		ShortWeight: constants.DefaultShortWeight,
		LongWeight:  constants.DefaultLongWeight,
	}
}

type harness struct {
	svc       *AssessmentService
	repo      *memRepo
	publisher *fakePublisher
	webhooks  *fakeWebhooks
}

func newHarness(t *testing.T, records map[constants.ProviderID]models.ExternalDataRecord) *harness {
	t.Helper()

	var reg *registry.ModelRegistry
	resolve := func(id models.ModelID) (domainservice.Engine, error) {
		handle, err := reg.Get(id)
		if err != nil {
			return nil, err
		}
		return handle.Engine, nil
	}
	factory := engines.NewFactory(configModels(), resolve)
	reg = registry.New(registry.EngineFactory(factory), 0, nil, logger.NewNoop())
	for _, d := range engines.DefaultDescriptors() {
		require.NoError(t, reg.Load(d, engines.DefaultBlob(d.ID)))
	}

	repo := newMemRepo()
	publisher := &fakePublisher{}
	webhooks := &fakeWebhooks{}

	svc := NewAssessmentService(
		repo,
		&fakeAggregator{records: records},
		features.NewBuilder(),
		reg,
		engines.NewRouter(reg),
		explain.New(logger.NewNoop()),
		publisher,
		webhooks,
		&fakeIdempotency{},
		time.Second,
		nil,
		logger.NewNoop(),
	)
	return &harness{svc: svc, repo: repo, publisher: publisher, webhooks: webhooks}
}

func validRequest() *dto.CreateAssessmentRequest {
	return &dto.CreateAssessmentRequest{
		BusinessName:    "Northwind Traders",
		BusinessAddress: "Main St 1",
		Industry:        "4789",
		Country:         "US",
	}
}

// ================================================================================
// Tests
// ================================================================================

func TestCreate_SingleHorizonAllProvidersHealthy(t *testing.T) {
	h := newHarness(t, healthyRecords())

	req := validRequest()
	req.PredictionHorizon = 3

	resp, err := h.svc.Create(context.Background(), req, "")
	require.NoError(t, err)

	assert.Equal(t, string(models.StatusCompleted), resp.Status)
	require.Len(t, resp.Predictions, 1)
	pred := resp.Predictions["3"]
	assert.Equal(t, 3, pred.HorizonMonths)
	assert.Equal(t, string(models.ModelEnsemble), pred.ModelUsed)
	assert.GreaterOrEqual(t, resp.RiskScore, 0.0)
	assert.LessOrEqual(t, resp.RiskScore, 1.0)
	assert.Equal(t, string(models.LevelForScore(resp.RiskScore)), resp.RiskLevel)
	assert.NotEmpty(t, resp.Explanations)

	assert.Equal(t, []models.EventType{models.EventAssessmentCompleted}, h.publisher.types())
	assert.Len(t, h.webhooks.queued, 1)
}

func TestCreate_ShortHorizonUsesTreeModel(t *testing.T) {
	h := newHarness(t, healthyRecords())

	req := validRequest()
	req.PredictionHorizon = 2

	resp, err := h.svc.Create(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, string(models.ModelTree), resp.Predictions["2"].ModelUsed)
}

func TestCreate_LongHorizonAutoRoutesToSequence(t *testing.T) {
	h := newHarness(t, healthyRecords())

	req := validRequest()
	req.PredictionHorizon = 10

	resp, err := h.svc.Create(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, string(models.ModelSequence), resp.Predictions["10"].ModelUsed)
}

func TestCreate_MultiHorizonWithProviderDown(t *testing.T) {
	degraded := healthyRecords()
	degraded[constants.ProviderSanctions] = models.UnavailableRecord(constants.ProviderSanctions, "circuit breaker open")

	h := newHarness(t, degraded)

	req := validRequest()
	req.PredictionHorizon = 3
	req.PredictionHorizons = []int{12}

	resp, err := h.svc.Create(context.Background(), req, "")
	require.NoError(t, err)

	assert.Equal(t, string(models.StatusCompleted), resp.Status)
	require.Len(t, resp.Predictions, 2)
	assert.Equal(t, string(models.ModelEnsemble), resp.Predictions["3"].ModelUsed)
	assert.Equal(t, string(models.ModelSequence), resp.Predictions["12"].ModelUsed)

	var unavailable bool
	for _, f := range resp.RiskFactors {
		if f.Category == "data_quality" && f.Source == string(constants.ProviderSanctions) {
			unavailable = true
		}
	}
	assert.True(t, unavailable, "a failed provider must surface as a data-unavailable factor")
}

func TestCreate_ProviderOutageLowersConfidence(t *testing.T) {
	req := validRequest()
	req.PredictionHorizon = 3

	full := newHarness(t, healthyRecords())
	fullResp, err := full.svc.Create(context.Background(), req, "")
	require.NoError(t, err)

	degraded := healthyRecords()
	degraded[constants.ProviderSanctions] = models.UnavailableRecord(constants.ProviderSanctions, "timeout")
	partial := newHarness(t, degraded)
	partialResp, err := partial.svc.Create(context.Background(), req, "")
	require.NoError(t, err)

	assert.Equal(t, string(models.StatusCompleted), partialResp.Status)
	assert.Less(t, partialResp.Confidence, fullResp.Confidence)
}

func TestCreate_ExplicitOverrideOutsideRangeRejected(t *testing.T) {
	h := newHarness(t, healthyRecords())

	req := validRequest()
	req.PredictionHorizon = 10
	req.ModelPreference = string(models.ModelTree)

	_, err := h.svc.Create(context.Background(), req, "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnsupportedHorizon(err))

	// Rejected before any state was created.
	assert.Zero(t, h.repo.count())
}

func TestCreate_ExplicitOverrideWithinRange(t *testing.T) {
	h := newHarness(t, healthyRecords())

	req := validRequest()
	req.PredictionHorizon = 4
	req.ModelPreference = string(models.ModelTree)

	resp, err := h.svc.Create(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, string(models.ModelTree), resp.Predictions["4"].ModelUsed)
}

func TestCreate_MissingRequiredFieldRejected(t *testing.T) {
	h := newHarness(t, healthyRecords())

	req := validRequest()
	req.Country = ""

	_, err := h.svc.Create(context.Background(), req, "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Zero(t, h.repo.count())
}

func TestCreate_IdempotencyKeyReplays(t *testing.T) {
	h := newHarness(t, healthyRecords())

	req := validRequest()
	req.PredictionHorizon = 3

	first, err := h.svc.Create(context.Background(), req, "idem-1")
	require.NoError(t, err)

	second, err := h.svc.Create(context.Background(), req, "idem-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, 1, h.repo.count())
}

func TestCreate_DefaultHorizonApplied(t *testing.T) {
	h := newHarness(t, healthyRecords())

	resp, err := h.svc.Create(context.Background(), validRequest(), "")
	require.NoError(t, err)

	_, ok := resp.Predictions[strconv.Itoa(constants.DefaultHorizonMonths)]
	assert.True(t, ok)
}

func TestGet_RoundTripAndMissing(t *testing.T) {
	h := newHarness(t, healthyRecords())

	created, err := h.svc.Create(context.Background(), validRequest(), "")
	require.NoError(t, err)

	got, err := h.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.RiskScore, got.RiskScore)

	_, err = h.svc.Get(context.Background(), "missing")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestCreate_AllProvidersDownStillCompletes(t *testing.T) {
	down := map[constants.ProviderID]models.ExternalDataRecord{
		constants.ProviderFinancial:    models.UnavailableRecord(constants.ProviderFinancial, "open"),
		constants.ProviderSanctions:    models.UnavailableRecord(constants.ProviderSanctions, "open"),
		constants.ProviderAdverseMedia: models.UnavailableRecord(constants.ProviderAdverseMedia, "open"),
	}
	h := newHarness(t, down)

	req := validRequest()
	req.PredictionHorizon = 3

	resp, err := h.svc.Create(context.Background(), req, "")
	require.NoError(t, err)

	// The pipeline degrades to an all-defaults vector instead of failing.
	assert.Equal(t, string(models.StatusCompleted), resp.Status)
	assert.GreaterOrEqual(t, len(resp.RiskFactors), 3)
}
