package events

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/redact"
	"github.com/phrazzld/as400-api/internal/store"
)

// AuditRecorder persists every event as an audit entry.
type AuditRecorder struct {
	store store.AuditStore
}

var _ EventHandler = (*AuditRecorder)(nil)

// NewAuditRecorder creates a handler writing to s.
func NewAuditRecorder(s store.AuditStore) *AuditRecorder {
	return &AuditRecorder{store: s}
}

// HandleEvent records event. Credentials are stripped from the target
// before it is stored; the rest stays readable.
func (r *AuditRecorder) HandleEvent(ctx context.Context, event *OperationEvent) error {
	entry := &domain.AuditEntry{
		ID:         event.ID,
		UserID:     event.UserID,
		Operation:  event.Operation,
		Target:     redact.Credentials(event.Target),
		Outcome:    event.Outcome,
		MessageID:  event.MessageID,
		DurationMS: event.Duration.Milliseconds(),
		TraceID:    event.TraceID,
		CreatedAt:  event.At,
	}
	if err := r.store.Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// OperationObserver receives host operation measurements.
type OperationObserver interface {
	ObserveOperation(operation, outcome string, d time.Duration)
}

// MetricsRecorder forwards events to an OperationObserver.
type MetricsRecorder struct {
	observer OperationObserver
}

var _ EventHandler = (*MetricsRecorder)(nil)

// NewMetricsRecorder creates a handler feeding o.
func NewMetricsRecorder(o OperationObserver) *MetricsRecorder {
	return &MetricsRecorder{observer: o}
}

// HandleEvent observes event. It never fails.
func (r *MetricsRecorder) HandleEvent(_ context.Context, event *OperationEvent) error {
	r.observer.ObserveOperation(event.Operation, event.Outcome, event.Duration)
	return nil
}
