package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/turtacn/riskpulse/pkg/constants"
)

// Metrics aggregates the prometheus instruments of the service. One instance
// is created at startup and threaded through the constructors that need it.
type Metrics struct {
	AssessmentsTotal    *prometheus.CounterVec
	AssessmentDuration  *prometheus.HistogramVec
	ProviderCallsTotal  *prometheus.CounterVec
	ProviderCallSeconds *prometheus.HistogramVec
	BreakerTransitions  *prometheus.CounterVec
	CacheLookupsTotal   *prometheus.CounterVec
	InferenceSeconds    *prometheus.HistogramVec
	ModelSwapsTotal     *prometheus.CounterVec
	WebhookDeliveries   *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
}

// NewMetrics registers the service instruments on the default registry.
func NewMetrics() *Metrics {
	ns := constants.ServiceName
	return &Metrics{
		AssessmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "assessments_total",
			Help:      "Completed risk assessments by final status.",
		}, []string{"status"}),

		AssessmentDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "assessment_duration_seconds",
			Help:      "End-to-end assessment latency.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"status"}),

		ProviderCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "provider_calls_total",
			Help:      "External provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),

		ProviderCallSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "provider_call_seconds",
			Help:      "External provider call latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"provider"}),

		BreakerTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions by provider and new state.",
		}, []string{"provider", "state"}),

		CacheLookupsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cache_lookups_total",
			Help:      "Provider response cache lookups by layer and result.",
		}, []string{"layer", "result"}),

		InferenceSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "inference_seconds",
			Help:      "Model inference latency by model.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"model"}),

		ModelSwapsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "model_swaps_total",
			Help:      "Model hot swaps by model and outcome.",
		}, []string{"model", "outcome"}),

		WebhookDeliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook delivery attempts by outcome.",
		}, []string{"outcome"}),

		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "events_published_total",
			Help:      "Assessment events published by type and outcome.",
		}, []string{"event_type", "outcome"}),
	}
}

// ObserveProviderCall records one provider call outcome with its latency.
func (m *Metrics) ObserveProviderCall(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProviderCallsTotal.WithLabelValues(provider, outcome).Inc()
	m.ProviderCallSeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveCacheLookup records one cache lookup result.
func (m *Metrics) ObserveCacheLookup(layer string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(layer, result).Inc()
}

// ObserveInference records one model inference with its latency.
func (m *Metrics) ObserveInference(model string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.InferenceSeconds.WithLabelValues(model).Observe(elapsed.Seconds())
}

// ObserveAssessment records one finished assessment with its latency.
func (m *Metrics) ObserveAssessment(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AssessmentsTotal.WithLabelValues(status).Inc()
	m.AssessmentDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}
