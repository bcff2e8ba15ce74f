package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry records one host operation. Target is a redacted summary of
// what was run; it never carries credentials.
type AuditEntry struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Operation  string    `json:"operation"`
	Target     string    `json:"target"`
	Outcome    string    `json:"outcome"`
	MessageID  string    `json:"message_id,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	TraceID    string    `json:"trace_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
