package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/store"
	"github.com/phrazzld/as400-api/internal/task"
)

var recordColumns = []string{"id", "user_id", "type", "payload", "status", "created_at", "updated_at"}

func TestPostgresTaskStore_SaveTask(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db)
	tk := task.CreateMockTaskWithPayload("hello")

	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(tk.ID(), tk.UserID(), "mock_task", tk.Payload(), "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.SaveTask(context.Background(), tk))
}

func TestPostgresTaskStore_SaveTaskError(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db)

	mock.ExpectExec("INSERT INTO tasks").WillReturnError(errors.New("disk full"))

	err := s.SaveTask(context.Background(), task.CreateMockTaskWithPayload("hello"))

	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "task", storeErr.Entity)
}

func TestPostgresTaskStore_UpdateTaskStatus(t *testing.T) {
	tests := []struct {
		name string
		rows int64
	}{
		{"updated", 1},
		{"unknown task is ignored", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			s := NewPostgresTaskStore(db)
			id := uuid.New()

			mock.ExpectExec("UPDATE tasks SET status").
				WithArgs("processing", sqlmock.AnyArg(), sqlmock.AnyArg(), id).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			assert.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusProcessing, ""))
		})
	}
}

func TestPostgresTaskStore_FinishTask(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db)
	id := uuid.New()
	result := []byte(`{"succeeded":true}`)

	mock.ExpectExec("UPDATE tasks SET status = \\$1, result").
		WithArgs("completed", result, sqlmock.AnyArg(), sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET status = \\$1, result").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.FinishTask(context.Background(), id, task.TaskStatusCompleted, result, ""))
	assert.ErrorIs(t, s.FinishTask(context.Background(), uuid.New(), task.TaskStatusFailed, nil, "boom"), store.ErrJobNotFound)
}

func TestPostgresTaskStore_GetPendingTasks(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db)
	id, userID := uuid.New(), uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("FROM tasks\\s+WHERE status = \\$1\\s+ORDER BY created_at").
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(id.String(), userID.String(), task.TaskTypeHostCommand, []byte(`{"command":"DSPLIB QGPL"}`), "pending", now, now))

	records, err := s.GetPendingTasks(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].ID)
	assert.Equal(t, userID, records[0].UserID)
	assert.Equal(t, task.TaskStatusPending, records[0].Status)
	assert.JSONEq(t, `{"command":"DSPLIB QGPL"}`, string(records[0].Payload))
}

func TestPostgresTaskStore_GetProcessingTasksOlderThan(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db)

	mock.ExpectQuery("AND updated_at < \\$2").
		WithArgs("processing", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	records, err := s.GetProcessingTasks(context.Background(), 30*time.Minute)

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPostgresTaskStore_GetProcessingTasksError(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db)

	mock.ExpectQuery("FROM tasks").WillReturnError(errors.New("connection reset"))

	_, err := s.GetProcessingTasks(context.Background(), 0)
	assert.Error(t, err)
}

func TestPostgresTaskStore_GetJob(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db)
	id, userID := uuid.New(), uuid.New()
	now := time.Now().UTC()

	columns := []string{"id", "user_id", "type", "payload", "status", "result", "error_message", "created_at", "updated_at"}
	mock.ExpectQuery("SELECT id, user_id, type, payload, status, result, error_message").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			id.String(), userID.String(), task.TaskTypeHostCommand,
			[]byte(`{"command":"DLTF FILE(QGPL/X)"}`), "failed",
			[]byte(`{"succeeded":false}`), "host object not found", now, now))

	job, err := s.GetJob(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, userID, job.UserID)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.True(t, job.Finished())
	assert.Equal(t, "host object not found", job.ErrorMessage)
	assert.Equal(t, json.RawMessage(`{"succeeded":false}`), job.Result)
}

func TestPostgresTaskStore_GetJobNotFound(t *testing.T) {
	db, mock := newMock(t)
	s := NewPostgresTaskStore(db)

	mock.ExpectQuery("FROM tasks").WillReturnError(sql.ErrNoRows)

	_, err := s.GetJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrJobNotFound)
}
