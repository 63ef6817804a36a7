// Package constants defines shared constants for the riskpulse service:
// provider identifiers, horizon buckets, context keys, and default tuning values.
package constants

import "time"

// ================================================================================
// Service Identity
// ================================================================================

const (
	// ServiceName is the canonical service name used in tracing and metrics.
	ServiceName = "riskpulse"

	// APIVersion is the current public API version prefix.
	APIVersion = "v1"
)

// ================================================================================
// External Data Providers
// ================================================================================

// ProviderID identifies an external risk-data provider.
type ProviderID string

const (
	// ProviderFinancial supplies financial-profile data (revenue, credit, liquidity).
	ProviderFinancial ProviderID = "financial"

	// ProviderSanctions supplies sanctions and compliance screening results.
	ProviderSanctions ProviderID = "sanctions"

	// ProviderAdverseMedia supplies adverse-media sentiment signals.
	ProviderAdverseMedia ProviderID = "adverse_media"
)

// AllProviders lists every provider the aggregator fans out to by default.
var AllProviders = []ProviderID{ProviderFinancial, ProviderSanctions, ProviderAdverseMedia}

// ================================================================================
// Horizon Buckets
// ================================================================================

const (
	// MinHorizonMonths is the smallest accepted prediction horizon.
	MinHorizonMonths = 1

	// ShortHorizonUpper is the exclusive upper bound of the short-horizon bucket [1,3).
	ShortHorizonUpper = 3

	// BlendHorizonUpper is the exclusive upper bound of the blended bucket [3,6).
	BlendHorizonUpper = 6

	// DefaultHorizonMonths is used when a request carries no horizon.
	DefaultHorizonMonths = 3
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type for values stored in request contexts.
type ContextKey string

const (
	// ContextKeyRequestID carries the per-request correlation id.
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyTraceID carries the distributed trace id.
	ContextKeyTraceID ContextKey = "trace_id"

	// ContextKeyCallerID carries the authenticated caller identity.
	ContextKeyCallerID ContextKey = "caller_id"
)

// ================================================================================
// Resilience Defaults
// ================================================================================

const (
	// DefaultFailureThreshold is the consecutive-failure count that opens a breaker.
	DefaultFailureThreshold = 5

	// DefaultCooldownPeriod is how long an open breaker short-circuits calls.
	DefaultCooldownPeriod = 30 * time.Second

	// DefaultProviderTimeout bounds one provider call.
	DefaultProviderTimeout = 2 * time.Second

	// DefaultAggregationDeadline bounds the whole provider fan-out.
	DefaultAggregationDeadline = 5 * time.Second

	// DefaultAggregationConcurrency caps simultaneous provider calls.
	DefaultAggregationConcurrency = 8

	// DefaultProviderRetries is the bounded retry count for transient provider errors.
	DefaultProviderRetries = 2

	// DefaultProviderRateLimit is the per-provider client-side requests/second cap.
	DefaultProviderRateLimit = 20
)

// ================================================================================
// Cache Defaults
// ================================================================================

const (
	// DefaultProviderCacheTTL is how long successful provider payloads stay cached.
	DefaultProviderCacheTTL = 15 * time.Minute

	// DefaultLocalCacheTTL is the in-process L1 TTL layered over redis.
	DefaultLocalCacheTTL = 1 * time.Minute

	// DefaultIdempotencyTTL is how long an Idempotency-Key replay window stays open.
	DefaultIdempotencyTTL = 24 * time.Hour
)

// ================================================================================
// Model Defaults
// ================================================================================

const (
	// DefaultRegistryByteBudget bounds the total size of loaded model blobs.
	DefaultRegistryByteBudget int64 = 256 << 20

	// DefaultShortWeight is the combiner weight of the short-horizon model in [3,6).
	DefaultShortWeight = 0.7

	// DefaultLongWeight is the combiner weight of the long-horizon model in [3,6).
	DefaultLongWeight = 0.3

	// SequenceWindowSize is the fixed history window length consumed by the
	// long-horizon engine, in monthly snapshots.
	SequenceWindowSize = 12
)

// ================================================================================
// Event & Webhook Defaults
// ================================================================================

const (
	// DefaultWebhookMaxAttempts caps webhook delivery retries.
	DefaultWebhookMaxAttempts = 5

	// DefaultWebhookInitialBackoff seeds the exponential retry backoff.
	DefaultWebhookInitialBackoff = 1 * time.Second

	// DefaultWebhookMaxBackoff caps the exponential retry backoff.
	DefaultWebhookMaxBackoff = 1 * time.Minute

	// WebhookSignatureHeader carries the HMAC payload signature.
	WebhookSignatureHeader = "X-Riskpulse-Signature"
)

// ================================================================================
// Persistence Defaults
// ================================================================================

const (
	// DefaultPersistAttempts bounds persistence retries after computation.
	DefaultPersistAttempts = 3
)

// ================================================================================
// HTTP Defaults
// ================================================================================

const (
	// HeaderRequestID is the request correlation header.
	HeaderRequestID = "X-Request-ID"

	// HeaderIdempotencyKey enables create-assessment replay deduplication.
	HeaderIdempotencyKey = "Idempotency-Key"

	// HeaderRetryAfter carries the rate-limit retry hint, in seconds.
	HeaderRetryAfter = "Retry-After"

	// DefaultRateLimitPerMinute is the per-caller API rate limit.
	DefaultRateLimitPerMinute = 120
)
