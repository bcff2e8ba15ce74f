package task

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// MockTask is a simple implementation of the Task interface for testing
type MockTask struct {
	TaskID      uuid.UUID
	TaskUserID  uuid.UUID
	TaskType    string
	TaskPayload []byte
	TaskStatus  TaskStatus
	ExecuteFn   func(ctx context.Context) ([]byte, error)
}

// NewMockTask creates a new pending MockTask
func NewMockTask(id uuid.UUID, taskType string, payload []byte) *MockTask {
	return &MockTask{
		TaskID:      id,
		TaskUserID:  uuid.New(),
		TaskType:    taskType,
		TaskPayload: payload,
		TaskStatus:  TaskStatusPending,
		ExecuteFn:   func(ctx context.Context) ([]byte, error) { return nil, nil },
	}
}

// CreateMockTaskWithPayload creates a MockTask of type "mock_task" carrying message
func CreateMockTaskWithPayload(message string) *MockTask {
	data, _ := json.Marshal(map[string]string{"message": message})
	return NewMockTask(uuid.New(), "mock_task", data)
}

// ID returns the task's unique identifier
func (t *MockTask) ID() uuid.UUID { return t.TaskID }

// UserID returns the submitting user
func (t *MockTask) UserID() uuid.UUID { return t.TaskUserID }

// Type returns the task type identifier
func (t *MockTask) Type() string { return t.TaskType }

// Payload returns the task data
func (t *MockTask) Payload() []byte { return t.TaskPayload }

// Status returns the task status
func (t *MockTask) Status() TaskStatus { return t.TaskStatus }

// Execute runs ExecuteFn
func (t *MockTask) Execute(ctx context.Context) ([]byte, error) { return t.ExecuteFn(ctx) }
