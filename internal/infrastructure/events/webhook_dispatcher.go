package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/repository"
	"github.com/turtacn/riskpulse/internal/infrastructure/monitoring"
	"github.com/turtacn/riskpulse/pkg/constants"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// WebhookDispatcher delivers assessment events to configured receiver
// endpoints from a bounded queue, off the request path. Payloads are signed
// with HMAC-SHA256; every attempt is recorded on the owning assessment.
type WebhookDispatcher struct {
	endpoints      []string
	secret         []byte
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration

	queue chan models.AssessmentEvent
	repo  repository.AssessmentRepository

	client  *http.Client
	metrics *monitoring.Metrics
	log     logger.Logger

	wg   sync.WaitGroup
	stop context.CancelFunc
}

// NewWebhookDispatcher creates a dispatcher. Call Start to begin delivery.
func NewWebhookDispatcher(cfg config.WebhookConfig, secret string, repo repository.AssessmentRepository, metrics *monitoring.Metrics, log logger.Logger) *WebhookDispatcher {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = constants.DefaultWebhookMaxAttempts
	}
	initialBackoff := cfg.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = constants.DefaultWebhookInitialBackoff
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = constants.DefaultWebhookMaxBackoff
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	return &WebhookDispatcher{
		endpoints:      cfg.Endpoints,
		secret:         []byte(secret),
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		queue:          make(chan models.AssessmentEvent, queueSize),
		repo:           repo,
		client:         &http.Client{Timeout: 10 * time.Second},
		metrics:        metrics,
		log:            log.WithComponent("events.webhook"),
	}
}

// Start launches the delivery worker.
func (d *WebhookDispatcher) Start(ctx context.Context) {
	ctx, d.stop = context.WithCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-d.queue:
				for _, endpoint := range d.endpoints {
					d.deliver(ctx, endpoint, event)
				}
			}
		}
	}()
}

// Stop cancels the worker and waits for the in-flight delivery to finish.
func (d *WebhookDispatcher) Stop() {
	if d.stop != nil {
		d.stop()
	}
	d.wg.Wait()
}

// Enqueue queues an event for delivery. A full queue drops the event with a
// log entry rather than blocking the caller.
func (d *WebhookDispatcher) Enqueue(ctx context.Context, event models.AssessmentEvent) {
	if len(d.endpoints) == 0 {
		return
	}
	select {
	case d.queue <- event:
	default:
		if d.metrics != nil {
			d.metrics.WebhookDeliveries.WithLabelValues("dropped").Inc()
		}
		d.log.Warn(ctx, "webhook queue full, dropping event",
			logger.String("event_id", event.EventID))
	}
}

// deliver posts the event to one endpoint with bounded exponential backoff.
func (d *WebhookDispatcher) deliver(ctx context.Context, endpoint string, event models.AssessmentEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.log.Error(ctx, "failed to marshal webhook payload", err,
			logger.String("event_id", event.EventID))
		return
	}
	signature := Sign(d.secret, payload)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.initialBackoff
	bo.MaxInterval = d.maxBackoff

	var policy backoff.BackOff = backoff.WithMaxRetries(bo, uint64(d.maxAttempts-1))
	policy = backoff.WithContext(policy, ctx)

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		statusCode, attemptErr := d.post(ctx, endpoint, payload, signature)
		d.record(ctx, event, endpoint, attempt, statusCode, attemptErr)
		return attemptErr
	}, policy)

	outcome := "success"
	if err != nil {
		outcome = "exhausted"
		d.log.Warn(ctx, "webhook delivery exhausted",
			logger.String("endpoint", endpoint),
			logger.String("event_id", event.EventID),
			logger.Int("attempts", attempt),
		)
	}
	if d.metrics != nil {
		d.metrics.WebhookDeliveries.WithLabelValues(outcome).Inc()
	}
}

func (d *WebhookDispatcher) post(ctx context.Context, endpoint string, payload []byte, signature string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(constants.WebhookSignatureHeader, signature)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("receiver returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// record appends the delivery attempt to the owning assessment's audit trail.
func (d *WebhookDispatcher) record(ctx context.Context, event models.AssessmentEvent, endpoint string, attempt, statusCode int, attemptErr error) {
	if d.repo == nil || event.Data == nil {
		return
	}
	entry := models.WebhookAttempt{
		Endpoint:    endpoint,
		Attempt:     attempt,
		StatusCode:  statusCode,
		AttemptedAt: time.Now().UTC(),
	}
	if attemptErr != nil {
		entry.Err = attemptErr.Error()
	}
	if err := d.repo.AppendWebhookAttempt(ctx, event.Data.ID, entry); err != nil {
		d.log.Warn(ctx, "failed to record webhook attempt",
			logger.String("assessment_id", event.Data.ID),
			logger.String("error", err.Error()),
		)
	}
}

// Sign computes the hex HMAC-SHA256 signature carried in the webhook header,
// prefixed with the algorithm name.
func Sign(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
