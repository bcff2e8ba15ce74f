package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/store"
)

// DefaultAuditPage is the number of entries returned when no limit is given.
const DefaultAuditPage = 50

// AuditService reads the audit trail.
type AuditService struct {
	audit store.AuditStore
}

// NewAuditService creates an AuditService.
func NewAuditService(audit store.AuditStore) *AuditService {
	return &AuditService{audit: audit}
}

// ListForUser returns the caller's most recent audit entries, newest first.
func (s *AuditService) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditPage
	}
	entries, err := s.audit.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, NewServiceError("list_audit", "failed to load audit entries", err)
	}
	return entries, nil
}
