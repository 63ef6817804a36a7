package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/pkg/constants"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRegistry struct {
	descriptors []models.ModelDescriptor
}

func (f *fakeRegistry) Get(models.ModelID) (service.ModelHandle, error) {
	return service.ModelHandle{}, errors.New("not loaded")
}
func (f *fakeRegistry) Load(models.ModelDescriptor, []byte) error      { return nil }
func (f *fakeRegistry) Swap(models.ModelID, string, []byte) error      { return nil }
func (f *fakeRegistry) Descriptors() []models.ModelDescriptor          { return f.descriptors }
func (f *fakeRegistry) Descriptor(id models.ModelID) (models.ModelDescriptor, bool) {
	for _, d := range f.descriptors {
		if d.ID == id {
			return d, true
		}
	}
	return models.ModelDescriptor{}, false
}

type fakeAggregator struct {
	states []models.CircuitBreakerState
	reset  []constants.ProviderID
}

func (f *fakeAggregator) FetchAll(context.Context, models.BusinessProfile, []constants.ProviderID, time.Duration) map[constants.ProviderID]models.ExternalDataRecord {
	return nil
}
func (f *fakeAggregator) BreakerStates() []models.CircuitBreakerState { return f.states }
func (f *fakeAggregator) ResetBreaker(id constants.ProviderID) bool {
	f.reset = append(f.reset, id)
	for _, s := range f.states {
		if s.ProviderID == id {
			return true
		}
	}
	return false
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestModelHandlerListAndGet(t *testing.T) {
	reg := &fakeRegistry{descriptors: []models.ModelDescriptor{
		{ID: models.ModelTree, Version: "1.0.0", State: models.LoadStateLoaded, MinHorizon: 1, MaxHorizon: 5},
		{ID: models.ModelSequence, Version: "1.0.0", State: models.LoadStateLoaded, MinHorizon: 3},
	}}
	h := NewModelHandler(reg)

	engine := gin.New()
	engine.GET("/models", h.List)
	engine.GET("/models/:id", h.Get)

	rec := serve(engine, http.MethodGet, "/models")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(models.ModelTree))
	assert.Contains(t, rec.Body.String(), string(models.ModelSequence))

	rec = serve(engine, http.MethodGet, "/models/"+string(models.ModelTree))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"max_horizon":5`)

	rec = serve(engine, http.MethodGet, "/models/prophet")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestProviderHandlerHealth(t *testing.T) {
	agg := &fakeAggregator{states: []models.CircuitBreakerState{
		{ProviderID: constants.ProviderFinancial, State: models.BreakerClosed},
		{ProviderID: constants.ProviderSanctions, State: models.BreakerOpen, ConsecutiveFailures: 5},
	}}
	h := NewProviderHandler(agg)

	engine := gin.New()
	engine.GET("/providers/health", h.Health)

	rec := serve(engine, http.MethodGet, "/providers/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(constants.ProviderSanctions))
	assert.Contains(t, rec.Body.String(), `"consecutive_failures":5`)
}

func TestProviderHandlerResetBreaker(t *testing.T) {
	agg := &fakeAggregator{states: []models.CircuitBreakerState{
		{ProviderID: constants.ProviderFinancial, State: models.BreakerOpen},
	}}
	h := NewProviderHandler(agg)

	engine := gin.New()
	engine.POST("/providers/:id/breaker/reset", h.ResetBreaker)

	rec := serve(engine, http.MethodPost, "/providers/"+string(constants.ProviderFinancial)+"/breaker/reset")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reset":true`)

	// Known provider without a breaker yet reports the closed steady state.
	rec = serve(engine, http.MethodPost, "/providers/"+string(constants.ProviderSanctions)+"/breaker/reset")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reset":false`)

	rec = serve(engine, http.MethodPost, "/providers/unknown/breaker/reset")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandlerReadiness(t *testing.T) {
	h := NewHealthHandler(
		DependencyCheck{Name: "postgres", Check: func(context.Context) error { return nil }},
		DependencyCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	)

	engine := gin.New()
	engine.GET("/health/live", h.Live)
	engine.GET("/health/ready", h.Ready)

	rec := serve(engine, http.MethodGet, "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(engine, http.MethodGet, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"ok"`)
	assert.Contains(t, rec.Body.String(), `"redis":"unavailable"`)
	assert.Contains(t, rec.Body.String(), `"degraded"`)
}

func TestHealthHandlerAllReady(t *testing.T) {
	h := NewHealthHandler(
		DependencyCheck{Name: "postgres", Check: func(context.Context) error { return nil }},
	)

	engine := gin.New()
	engine.GET("/health/ready", h.Ready)

	rec := serve(engine, http.MethodGet, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ready"`)
}
