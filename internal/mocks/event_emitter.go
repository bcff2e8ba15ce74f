package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/as400-api/internal/events"
)

// MockEventEmitter implements events.EventEmitter and records every event.
type MockEventEmitter struct {
	EmitEventFn func(ctx context.Context, event *events.OperationEvent) error

	mu     sync.Mutex
	events []*events.OperationEvent
}

var _ events.EventEmitter = (*MockEventEmitter)(nil)

// EmitEvent implements events.EventEmitter
func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.OperationEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	if m.EmitEventFn != nil {
		return m.EmitEventFn(ctx, event)
	}
	return nil
}

// Events returns the events emitted so far.
func (m *MockEventEmitter) Events() []*events.OperationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*events.OperationEvent(nil), m.events...)
}
