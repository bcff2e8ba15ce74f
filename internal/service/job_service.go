package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/platform/logger"
	"github.com/phrazzld/as400-api/internal/store"
	"github.com/phrazzld/as400-api/internal/task"
)

// TaskSubmitter persists and queues a task. Implemented by *task.TaskRunner.
type TaskSubmitter interface {
	Submit(ctx context.Context, t task.Task) error
}

// CommandPreparer validates and policy-checks a command before it is
// queued, and runs it once a worker picks it up. Implemented by *HostService.
type CommandPreparer interface {
	task.CommandExecutor
	PrepareCommand(ctx context.Context, userID uuid.UUID, cmd string) (string, error)
}

// JobService manages asynchronous host commands.
type JobService struct {
	host      CommandPreparer
	submitter TaskSubmitter
	jobs      store.JobStore
	logger    *slog.Logger
}

// NewJobService creates a JobService.
func NewJobService(host CommandPreparer, submitter TaskSubmitter, jobs store.JobStore, logger *slog.Logger) (*JobService, error) {
	if host == nil {
		return nil, domain.NewValidationError("host", "cannot be nil", domain.ErrValidation)
	}
	if submitter == nil {
		return nil, domain.NewValidationError("submitter", "cannot be nil", domain.ErrValidation)
	}
	if jobs == nil {
		return nil, domain.NewValidationError("jobs", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{
		host:      host,
		submitter: submitter,
		jobs:      jobs,
		logger:    logger.With("component", "job_service"),
	}, nil
}

// SubmitCommand validates cmd and queues it as a host_command job. The
// returned job is pending. A full queue surfaces as task.ErrQueueFull.
func (s *JobService) SubmitCommand(ctx context.Context, userID uuid.UUID, cmd string) (*domain.Job, error) {
	cmd, err := s.host.PrepareCommand(ctx, userID, cmd)
	if err != nil {
		return nil, err
	}

	t, err := task.NewHostCommandTask(userID, cmd, s.host)
	if err != nil {
		return nil, NewServiceError("submit_command", "failed to create task", err)
	}

	if err := s.submitter.Submit(ctx, t); err != nil {
		if errors.Is(err, task.ErrQueueFull) || errors.Is(err, task.ErrQueueClosed) {
			return nil, err
		}
		return nil, NewServiceError("submit_command", "failed to submit task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("host command queued",
		"job_id", t.ID(),
		"user_id", userID)

	now := time.Now().UTC()
	return &domain.Job{
		ID:        t.ID(),
		UserID:    userID,
		Type:      t.Type(),
		Payload:   t.Payload(),
		Status:    domain.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetJob returns a job owned by userID. Jobs of other users are reported
// as domain.ErrJobNotFound.
func (s *JobService) GetJob(ctx context.Context, userID, jobID uuid.UUID) (*domain.Job, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
		}
		return nil, NewServiceError("get_job", "failed to load job", err)
	}
	if job.UserID != userID {
		logger.FromContextOrDefault(ctx, s.logger).Warn("job requested by another user",
			"job_id", jobID,
			"user_id", userID)
		return nil, fmt.Errorf("%w: %w", domain.ErrJobNotFound, ErrNotOwned)
	}
	return job, nil
}
