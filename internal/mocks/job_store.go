package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/store"
)

// MockJobStore implements store.JobStore over an in-memory map.
type MockJobStore struct {
	GetJobFn func(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	mu   sync.Mutex
	Jobs map[uuid.UUID]*domain.Job
}

var _ store.JobStore = (*MockJobStore)(nil)

// NewMockJobStore creates an empty MockJobStore.
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{Jobs: make(map[uuid.UUID]*domain.Job)}
}

// Put stores job.
func (m *MockJobStore) Put(job *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Jobs[job.ID] = job
}

// GetJob implements store.JobStore
func (m *MockJobStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	if m.GetJobFn != nil {
		return m.GetJobFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.Jobs[id]; ok {
		return job, nil
	}
	return nil, store.ErrJobNotFound
}
