package events

import "context"

// Stream carrying write-action outcomes.
const StreamActions = "events:actions"

// Event types
const (
	EventActionSubmitted = "action_submitted"
	EventActionSucceeded = "action_succeeded"
	EventActionFailed    = "action_failed"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
