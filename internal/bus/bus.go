// Package bus provides event bus implementations for publishing evaluation
// outcomes to other services.
package bus

import (
	"context"
	"time"

	"github.com/ricesearch/contact-eval/internal/pkg/hash"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type (e.g., "evaluation.completed").
	Type string `json:"type"`

	// Source is the component that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// Topics for evaluation events.
const (
	TopicEvaluationCompleted = "contact.evaluation.completed"
	TopicEvaluationFailed    = "contact.evaluation.failed"
)

// Event types.
const (
	TypeEvaluationCompleted = "evaluation.completed"
	TypeEvaluationFailed    = "evaluation.failed"
)

// EvaluationCompleted is the payload of a completed evaluation.
type EvaluationCompleted struct {
	Structure  string              `json:"structure"`
	Prediction string              `json:"prediction"`
	Length     int                 `json:"length"`
	Compared   int                 `json:"compared"`
	Unmatched  int                 `json:"unmatched"`
	Precision  map[string]*float64 `json:"precision"` // null when undefined
}

// EvaluationFailed is the payload of a failed evaluation.
type EvaluationFailed struct {
	Structure  string `json:"structure"`
	Prediction string `json:"prediction"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error"`
}

// NewEvent creates an event for a structure and prediction pair.
func NewEvent(eventType, source, structure, prediction string, payload any) Event {
	now := time.Now()
	return Event{
		ID:        hash.EventID(structure, prediction, now),
		Type:      eventType,
		Source:    source,
		Timestamp: now.UnixMilli(),
		Payload:   payload,
	}
}
