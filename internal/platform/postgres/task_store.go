package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/platform/logger"
	"github.com/phrazzld/as400-api/internal/redact"
	"github.com/phrazzld/as400-api/internal/store"
	"github.com/phrazzld/as400-api/internal/task"
)

// PostgresTaskStore persists async tasks. It serves the task runner
// (task.TaskStore) and the job API (store.JobStore) from the same table.
type PostgresTaskStore struct {
	db store.DBTX
}

var (
	_ task.TaskStore = (*PostgresTaskStore)(nil)
	_ store.JobStore = (*PostgresTaskStore)(nil)
)

// NewPostgresTaskStore creates a new PostgresTaskStore
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

// SaveTask persists a task to the database
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID(), t.UserID(), t.Type(), t.Payload(), string(t.Status()), now, now,
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to save task",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"error", redact.Error(err))
		return store.NewStoreError("task", "create", "insert failed", MapError(err))
	}
	return nil
}

// UpdateTaskStatus updates the status of a task. Unknown IDs are logged and ignored.
func (s *PostgresTaskStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status task.TaskStatus, errorMsg string) error {
	log := logger.FromContext(ctx)

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4`,
		string(status), nullableString(errorMsg), time.Now().UTC(), taskID,
	)
	if err != nil {
		log.Error("failed to update task status",
			"task_id", taskID,
			"status", status,
			"error", redact.Error(err))
		return store.NewStoreError("task", "update", "status update failed", MapError(err))
	}
	if err := CheckRowsAffected(result, nil); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("no task found with ID to update status", "task_id", taskID)
			return nil
		}
		return err
	}
	return nil
}

// FinishTask stores the terminal status together with the result document.
func (s *PostgresTaskStore) FinishTask(ctx context.Context, taskID uuid.UUID, status task.TaskStatus, result []byte, errorMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status = $1, result = $2, error_message = $3, updated_at = $4
		WHERE id = $5`,
		string(status), nullableJSON(result), nullableString(errorMsg), time.Now().UTC(), taskID,
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to finish task",
			"task_id", taskID,
			"status", status,
			"error", redact.Error(err))
		return store.NewStoreError("task", "update", "finish failed", MapError(err))
	}
	return CheckRowsAffected(res, store.ErrJobNotFound)
}

// GetPendingTasks retrieves all tasks with "pending" status, oldest first
func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]task.Record, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks retrieves "processing" tasks last updated more than olderThan ago
func (s *PostgresTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Record, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

func (s *PostgresTaskStore) getTasksByStatus(ctx context.Context, status task.TaskStatus, olderThan time.Duration) ([]task.Record, error) {
	query := `
		SELECT id, user_id, type, payload, status, created_at, updated_at
		FROM tasks
		WHERE status = $1`
	args := []any{string(status)}
	if olderThan > 0 {
		query += ` AND updated_at < $2`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to query tasks by status",
			"status", status,
			"error", redact.Error(err))
		return nil, store.NewStoreError("task", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []task.Record
	for rows.Next() {
		var rec task.Record
		var st string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Type, &rec.Payload, &st, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		rec.Status = task.TaskStatus(st)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return records, nil
}

// GetJob returns the task with id as a job.
func (s *PostgresTaskStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	var job domain.Job
	var status string
	var payload, result []byte
	var errorMessage sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, payload, status, result, error_message, created_at, updated_at
		FROM tasks
		WHERE id = $1`, id,
	).Scan(&job.ID, &job.UserID, &job.Type, &payload, &status, &result, &errorMessage, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		logger.FromContext(ctx).Error("failed to query job", "job_id", id, "error", redact.Error(err))
		return nil, store.NewStoreError("job", "get", "query failed", MapError(err))
	}

	job.Status = domain.JobStatus(status)
	job.Payload = payload
	if len(result) > 0 {
		job.Result = result
	}
	job.ErrorMessage = errorMessage.String
	return &job, nil
}
