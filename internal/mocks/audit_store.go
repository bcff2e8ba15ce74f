package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/store"
)

// MockAuditStore implements store.AuditStore in memory.
type MockAuditStore struct {
	RecordFn     func(ctx context.Context, entry *domain.AuditEntry) error
	ListByUserFn func(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AuditEntry, error)

	mu      sync.Mutex
	Entries []domain.AuditEntry
}

var _ store.AuditStore = (*MockAuditStore)(nil)

// Record implements store.AuditStore
func (m *MockAuditStore) Record(ctx context.Context, entry *domain.AuditEntry) error {
	if m.RecordFn != nil {
		return m.RecordFn(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, *entry)
	return nil
}

// ListByUser implements store.AuditStore, newest first.
func (m *MockAuditStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AuditEntry, error) {
	if m.ListByUserFn != nil {
		return m.ListByUserFn(ctx, userID, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []domain.AuditEntry{}
	for i := len(m.Entries) - 1; i >= 0 && len(result) < limit; i-- {
		if m.Entries[i].UserID == userID {
			result = append(result, m.Entries[i])
		}
	}
	return result, nil
}
