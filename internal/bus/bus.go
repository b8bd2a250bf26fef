// Package bus provides event bus implementations for pipeline notifications.
//
// Mining, scoring, and tracking stages publish events as they produce
// records, so external consumers (dashboards, exporters) can follow a run
// without polling the database.
package bus

import (
	"context"
	"time"
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
	// Type is the event type, normally the topic it is published on.
	Type string `json:"type"`

	// Source is the pipeline stage that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created (unix milliseconds).
	Timestamp int64 `json:"timestamp"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType, source string, payload any) Event {
	return Event{
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

// Topics for pipeline stages.
const (
	// Mining topics.
	TopicMineObservation = "mine.observation"
	TopicMineCompleted   = "mine.completed"

	// Scoring topics.
	TopicScoreComputed = "score.computed"

	// Tracking topics.
	TopicSnapshotCaptured = "snapshot.captured"

	// Import topics.
	TopicAdsImported = "ads.imported"
)
