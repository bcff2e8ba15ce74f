package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
)

// TaskTypeHostCommand identifies an asynchronous CL command.
const TaskTypeHostCommand = "host_command"

// HostCommandPayload is the persisted payload of a host command task.
type HostCommandPayload struct {
	Command string `json:"command"`
}

// CommandExecutor runs a queued CL command on behalf of userID.
type CommandExecutor interface {
	ExecuteQueuedCommand(ctx context.Context, userID uuid.UUID, cmd string) (*domain.CommandResult, error)
}

// HostCommandTask runs one CL command and stores its CommandResult as the job result.
type HostCommandTask struct {
	id       uuid.UUID
	userID   uuid.UUID
	status   TaskStatus
	payload  HostCommandPayload
	executor CommandExecutor
}

var _ Task = (*HostCommandTask)(nil)

// NewHostCommandTask creates a pending task for cmd.
func NewHostCommandTask(userID uuid.UUID, cmd string, executor CommandExecutor) (*HostCommandTask, error) {
	if userID == uuid.Nil {
		return nil, domain.ErrEmptyUserID
	}
	if executor == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	return &HostCommandTask{
		id:       uuid.New(),
		userID:   userID,
		status:   TaskStatusPending,
		payload:  HostCommandPayload{Command: cmd},
		executor: executor,
	}, nil
}

// HostCommandFactory rebuilds host command tasks loaded from the store.
func HostCommandFactory(executor CommandExecutor) Factory {
	return func(rec Record) (Task, error) {
		var payload HostCommandPayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", TaskTypeHostCommand, err)
		}
		return &HostCommandTask{
			id:       rec.ID,
			userID:   rec.UserID,
			status:   rec.Status,
			payload:  payload,
			executor: executor,
		}, nil
	}
}

// ID returns the task's unique identifier
func (t *HostCommandTask) ID() uuid.UUID { return t.id }

// UserID returns the submitting user
func (t *HostCommandTask) UserID() uuid.UUID { return t.userID }

// Type returns TaskTypeHostCommand
func (t *HostCommandTask) Type() string { return TaskTypeHostCommand }

// Status returns the status the task was created or loaded with
func (t *HostCommandTask) Status() TaskStatus { return t.status }

// Command returns the CL command to run
func (t *HostCommandTask) Command() string { return t.payload.Command }

// Payload returns the JSON encoded HostCommandPayload
func (t *HostCommandTask) Payload() []byte {
	data, err := json.Marshal(t.payload)
	if err != nil {
		return nil
	}
	return data
}

// Execute runs the command. A failed command still yields its result so
// the job exposes the host messages.
func (t *HostCommandTask) Execute(ctx context.Context) ([]byte, error) {
	result, err := t.executor.ExecuteQueuedCommand(ctx, t.userID, t.payload.Command)
	if result == nil {
		return nil, err
	}
	data, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to encode command result: %w", marshalErr)
	}
	return data, err
}
