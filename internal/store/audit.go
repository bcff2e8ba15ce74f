package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
)

// AuditStore persists the audit trail of host operations.
type AuditStore interface {
	// Record appends an entry. Entries are never updated.
	Record(ctx context.Context, entry *domain.AuditEntry) error

	// ListByUser returns the most recent entries for userID, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AuditEntry, error)
}
