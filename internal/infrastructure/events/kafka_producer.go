// Package events delivers assessment outcomes to the outside world: the
// kafka event stream and signed webhook callbacks.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/domain/models"
	"github.com/turtacn/riskpulse/internal/domain/service"
	"github.com/turtacn/riskpulse/internal/infrastructure/monitoring"
	pkgerrors "github.com/turtacn/riskpulse/pkg/errors"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// KafkaPublisher implements service.EventPublisher over a kafka writer.
// Messages are keyed by assessment id so per-assessment ordering holds
// within a partition.
type KafkaPublisher struct {
	writer  *kafka.Writer
	metrics *monitoring.Metrics
	log     logger.Logger
}

var _ service.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates the publisher for the configured events topic.
func NewKafkaPublisher(cfg config.KafkaConfig, metrics *monitoring.Metrics, log logger.Logger) *KafkaPublisher {
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 100 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.EventsTopic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: writeTimeout,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
	}
	return &KafkaPublisher{
		writer:  writer,
		metrics: metrics,
		log:     log.WithComponent("events.kafka"),
	}
}

// Publish writes one assessment event.
func (p *KafkaPublisher) Publish(ctx context.Context, event models.AssessmentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return pkgerrors.ErrInternal(err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Data.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		if p.metrics != nil {
			p.metrics.EventsPublished.WithLabelValues(string(event.EventType), "failure").Inc()
		}
		p.log.Error(ctx, "failed to publish assessment event", err,
			logger.String("event_id", event.EventID),
			logger.String("event_type", string(event.EventType)),
		)
		return pkgerrors.ErrInternal(err)
	}

	if p.metrics != nil {
		p.metrics.EventsPublished.WithLabelValues(string(event.EventType), "success").Inc()
	}
	p.log.Debug(ctx, "assessment event published",
		logger.String("event_id", event.EventID),
		logger.String("event_type", string(event.EventType)),
	)
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
