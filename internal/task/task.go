package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
)

// TaskStatus represents the current state of a task
type TaskStatus = domain.JobStatus

// Possible task status values
const (
	TaskStatusPending    = domain.JobStatusPending
	TaskStatusProcessing = domain.JobStatusProcessing
	TaskStatusCompleted  = domain.JobStatusCompleted
	TaskStatusFailed     = domain.JobStatusFailed
)

// ErrUnknownTaskType is returned when a persisted task has no registered factory.
var ErrUnknownTaskType = errors.New("unknown task type")

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// UserID returns the user who submitted the task
	UserID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task data as JSON
	Payload() []byte

	// Status returns the status the task was created or loaded with
	Status() TaskStatus

	// Execute runs the task logic. The returned JSON is stored as the job
	// result, and may be non-nil even when err is non-nil.
	Execute(ctx context.Context) ([]byte, error)
}

// Record is a task as persisted, before it is turned back into a Task.
type Record struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      string
	Payload   []byte
	Status    TaskStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Factory rebuilds an executable Task from a persisted Record.
type Factory func(rec Record) (Task, error)

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue
// allowing services to enqueue tasks for processing
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing
	// Returns an error if the queue is full or closed
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission
	Close()
}

// TaskStore defines the interface for persisting tasks
type TaskStore interface {
	// SaveTask persists a new task
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates the status of a task
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error

	// FinishTask records the terminal status, result and error message of a task
	FinishTask(ctx context.Context, taskID uuid.UUID, status TaskStatus, result []byte, errorMsg string) error

	// GetPendingTasks retrieves all tasks with "pending" status
	GetPendingTasks(ctx context.Context) ([]Record, error)

	// GetProcessingTasks retrieves tasks with "processing" status
	// If olderThan is non-zero, only returns tasks that have been in this state
	// longer than the specified duration
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]Record, error)
}
