package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OperationEvent describes one completed (or refused) host operation.
type OperationEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// UserID is the principal that requested the operation
	UserID uuid.UUID `json:"user_id"`

	// Operation is one of the domain.Operation* names
	Operation string `json:"operation"`

	// Target summarises what the operation acted on, e.g. the command verb
	Target string `json:"target"`

	// Outcome is one of the domain.Outcome* values
	Outcome string `json:"outcome"`

	// MessageID is the IBM i message or SQL code that explains a failure
	MessageID string `json:"message_id,omitempty"`

	// Duration is the time spent on the host
	Duration time.Duration `json:"duration"`

	// TraceID correlates the event with the HTTP request that caused it
	TraceID string `json:"trace_id,omitempty"`

	// At is when the operation finished
	At time.Time `json:"at"`
}

// NewOperationEvent creates an event for operation by userID, stamped now.
func NewOperationEvent(userID uuid.UUID, operation, target string) *OperationEvent {
	return &OperationEvent{
		ID:        uuid.New(),
		UserID:    userID,
		Operation: operation,
		Target:    target,
		At:        time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *OperationEvent) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *OperationEvent) error

// HandleEvent calls f.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *OperationEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *OperationEvent) error
}
