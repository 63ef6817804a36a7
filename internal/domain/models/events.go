package models

import "time"

// EventType names an outbound assessment event.
type EventType string

const (
	// EventAssessmentCompleted is emitted after a successful assembly.
	EventAssessmentCompleted EventType = "assessment.completed"

	// EventAssessmentFailed is emitted when an assessment ends failed.
	EventAssessmentFailed EventType = "assessment.failed"
)

// AssessmentEvent is the payload published to Kafka and delivered to webhook
// receivers. Receivers verify the HMAC signature computed over the marshaled
// payload.
type AssessmentEvent struct {
	EventID   string          `json:"event_id"`
	EventType EventType       `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      *RiskAssessment `json:"data"`
}

// NewAssessmentEvent builds an event for the given assessment.
func NewAssessmentEvent(id string, eventType EventType, assessment *RiskAssessment) AssessmentEvent {
	return AssessmentEvent{
		EventID:   id,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Data:      assessment,
	}
}
