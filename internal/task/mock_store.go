package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockTaskStore is an in-memory TaskStore for tests. Its behaviour can be
// overridden through the Fn fields.
type MockTaskStore struct {
	mutex   sync.RWMutex
	records map[uuid.UUID]*MockRecord

	SaveFn   func(ctx context.Context, task Task) error
	UpdateFn func(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error
	FinishFn func(ctx context.Context, taskID uuid.UUID, status TaskStatus, result []byte, errorMsg string) error
}

// MockRecord is what the mock store keeps per task.
type MockRecord struct {
	Record
	Result       []byte
	ErrorMessage string
}

// NewMockTaskStore creates an empty MockTaskStore
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{records: make(map[uuid.UUID]*MockRecord)}
}

// Put stores rec directly, bypassing SaveTask.
func (s *MockTaskStore) Put(rec Record) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	s.records[rec.ID] = &MockRecord{Record: rec}
}

// Get returns a copy of the stored record for id.
func (s *MockTaskStore) Get(id uuid.UUID) (MockRecord, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return MockRecord{}, false
	}
	return *rec, true
}

// SaveTask persists a task to the mock store
func (s *MockTaskStore) SaveTask(ctx context.Context, task Task) error {
	if s.SaveFn != nil {
		return s.SaveFn(ctx, task)
	}
	now := time.Now()
	s.Put(Record{
		ID:        task.ID(),
		UserID:    task.UserID(),
		Type:      task.Type(),
		Payload:   task.Payload(),
		Status:    task.Status(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	return nil
}

// UpdateTaskStatus updates the status of a task; unknown IDs are a no-op
func (s *MockTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, taskID, status, errorMsg)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if rec, ok := s.records[taskID]; ok {
		rec.Status = status
		rec.ErrorMessage = errorMsg
		rec.UpdatedAt = time.Now()
	}
	return nil
}

// FinishTask records a terminal status; unknown IDs are a no-op
func (s *MockTaskStore) FinishTask(ctx context.Context, taskID uuid.UUID, status TaskStatus, result []byte, errorMsg string) error {
	if s.FinishFn != nil {
		return s.FinishFn(ctx, taskID, status, result, errorMsg)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if rec, ok := s.records[taskID]; ok {
		rec.Status = status
		rec.Result = result
		rec.ErrorMessage = errorMsg
		rec.UpdatedAt = time.Now()
	}
	return nil
}

// GetPendingTasks retrieves all tasks with "pending" status
func (s *MockTaskStore) GetPendingTasks(ctx context.Context) ([]Record, error) {
	return s.byStatus(TaskStatusPending, 0), nil
}

// GetProcessingTasks retrieves processing tasks last updated more than olderThan ago
func (s *MockTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error) {
	return s.byStatus(TaskStatusProcessing, olderThan), nil
}

func (s *MockTaskStore) byStatus(status TaskStatus, olderThan time.Duration) []Record {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var out []Record
	for _, rec := range s.records {
		if rec.Status != status {
			continue
		}
		if olderThan > 0 && time.Since(rec.UpdatedAt) <= olderThan {
			continue
		}
		out = append(out, rec.Record)
	}
	return out
}
