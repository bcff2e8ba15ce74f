package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/as400-api/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func waitForStatus(t *testing.T, store *MockTaskStore, id uuid.UUID, want TaskStatus) MockRecord {
	t.Helper()
	var rec MockRecord
	require.Eventually(t, func() bool {
		var ok bool
		rec, ok = store.Get(id)
		return ok && rec.Status == want
	}, 2*time.Second, 10*time.Millisecond, "task %s never reached %s", id, want)
	return rec
}

func TestTaskRunner_Submit(t *testing.T) {
	t.Parallel()

	t.Run("saves before queueing", func(t *testing.T) {
		t.Parallel()
		store := NewMockTaskStore()
		runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())

		task := CreateMockTaskWithPayload("DSPLIB QGPL")
		require.NoError(t, runner.Submit(context.Background(), task))

		rec, ok := store.Get(task.ID())
		require.True(t, ok)
		assert.Equal(t, TaskStatusPending, rec.Status)
		assert.Equal(t, task.TaskUserID, rec.UserID)
	})

	t.Run("queue full marks task failed", func(t *testing.T) {
		t.Parallel()
		store := NewMockTaskStore()
		cfg := DefaultTaskRunnerConfig()
		cfg.QueueSize = 1
		runner := NewTaskRunner(store, cfg, discardLogger())

		require.NoError(t, runner.Submit(context.Background(), CreateMockTaskWithPayload("first")))
		second := CreateMockTaskWithPayload("second")
		err := runner.Submit(context.Background(), second)

		assert.ErrorIs(t, err, ErrQueueFull)
		rec, _ := store.Get(second.ID())
		assert.Equal(t, TaskStatusFailed, rec.Status)
		assert.Contains(t, rec.ErrorMessage, "queue is full")
	})

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		store := NewMockTaskStore()
		store.SaveFn = func(ctx context.Context, task Task) error {
			return errors.New("connection reset")
		}
		runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())

		err := runner.Submit(context.Background(), CreateMockTaskWithPayload("x"))

		assert.ErrorContains(t, err, "failed to save task")
	})

	t.Run("after stop", func(t *testing.T) {
		t.Parallel()
		runner := NewTaskRunner(NewMockTaskStore(), DefaultTaskRunnerConfig(), discardLogger())
		require.NoError(t, runner.Start())
		runner.Stop()

		err := runner.Submit(context.Background(), CreateMockTaskWithPayload("late"))

		assert.ErrorIs(t, err, ErrQueueClosed)
	})
}

func TestTaskRunner_ProcessesTasks(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())

	ok := CreateMockTaskWithPayload("ok")
	ok.ExecuteFn = func(ctx context.Context) ([]byte, error) {
		return []byte(`{"succeeded":true}`), nil
	}
	failing := CreateMockTaskWithPayload("failing")
	failing.ExecuteFn = func(ctx context.Context) ([]byte, error) {
		return []byte(`{"succeeded":false}`), errors.New("CPF9801 object not found")
	}

	handled := make(chan uuid.UUID, 1)
	runner.SetErrorHandler(func(task Task, err error) { handled <- task.ID() })

	require.NoError(t, runner.Submit(context.Background(), ok))
	require.NoError(t, runner.Submit(context.Background(), failing))
	require.NoError(t, runner.Start())
	defer runner.Stop()

	rec := waitForStatus(t, store, ok.ID(), TaskStatusCompleted)
	assert.JSONEq(t, `{"succeeded":true}`, string(rec.Result))
	assert.Empty(t, rec.ErrorMessage)

	rec = waitForStatus(t, store, failing.ID(), TaskStatusFailed)
	assert.JSONEq(t, `{"succeeded":false}`, string(rec.Result), "failed tasks keep their result")
	assert.Contains(t, rec.ErrorMessage, "CPF9801")

	select {
	case id := <-handled:
		assert.Equal(t, failing.ID(), id)
	case <-time.After(2 * time.Second):
		t.Fatal("error handler was not called")
	}
}

func TestTaskRunner_PanicMarksFailed(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())
	runner.SetErrorHandler(func(Task, error) {})

	task := CreateMockTaskWithPayload("panics")
	task.ExecuteFn = func(ctx context.Context) ([]byte, error) { panic("boom") }

	require.NoError(t, runner.Submit(context.Background(), task))
	require.NoError(t, runner.Start())
	defer runner.Stop()

	rec := waitForStatus(t, store, task.ID(), TaskStatusFailed)
	assert.Contains(t, rec.ErrorMessage, "panicked")
}

func TestTaskRunner_Recover(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())

	executed := make(chan uuid.UUID, 2)
	runner.RegisterFactory("mock_task", func(rec Record) (Task, error) {
		task := NewMockTask(rec.ID, rec.Type, rec.Payload)
		task.ExecuteFn = func(ctx context.Context) ([]byte, error) {
			executed <- rec.ID
			return nil, nil
		}
		return task, nil
	})

	pending := Record{ID: uuid.New(), UserID: uuid.New(), Type: "mock_task", Status: TaskStatusPending}
	interrupted := Record{ID: uuid.New(), UserID: uuid.New(), Type: "mock_task", Status: TaskStatusProcessing}
	orphan := Record{ID: uuid.New(), UserID: uuid.New(), Type: "retired_type", Status: TaskStatusPending}
	store.Put(pending)
	store.Put(interrupted)
	store.Put(orphan)

	require.NoError(t, runner.Start())
	defer runner.Stop()

	select {
	case id := <-executed:
		assert.Equal(t, pending.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("pending task not executed")
	}
	waitForStatus(t, store, pending.ID, TaskStatusCompleted)

	rec := waitForStatus(t, store, interrupted.ID, TaskStatusFailed)
	assert.Equal(t, interruptedMessage, rec.ErrorMessage)

	rec = waitForStatus(t, store, orphan.ID, TaskStatusFailed)
	assert.Contains(t, rec.ErrorMessage, "unknown task type")

	select {
	case id := <-executed:
		t.Fatalf("task %s executed after interruption", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTaskRunner_StopLeavesInterruptedTaskProcessing(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	runner := NewTaskRunner(store, DefaultTaskRunnerConfig(), discardLogger())

	started := make(chan struct{})
	task := CreateMockTaskWithPayload("long running")
	task.ExecuteFn = func(ctx context.Context) ([]byte, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	require.NoError(t, runner.Submit(context.Background(), task))
	require.NoError(t, runner.Start())

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not start")
	}
	runner.Stop()

	rec, _ := store.Get(task.ID())
	assert.Equal(t, TaskStatusProcessing, rec.Status)
}

func TestTaskRunner_StuckTasks(t *testing.T) {
	t.Parallel()

	store := NewMockTaskStore()
	cfg := DefaultTaskRunnerConfig()
	cfg.StuckTaskAge = 50 * time.Millisecond
	cfg.StuckTaskCheckInterval = 20 * time.Millisecond
	runner := NewTaskRunner(store, cfg, discardLogger())
	runner.RegisterFactory("mock_task", func(rec Record) (Task, error) {
		return NewMockTask(rec.ID, rec.Type, rec.Payload), nil
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()

	stuck := Record{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Type:      "mock_task",
		Status:    TaskStatusProcessing,
		UpdatedAt: time.Now().Add(-time.Hour),
	}
	store.Put(stuck)

	rec := waitForStatus(t, store, stuck.ID, TaskStatusFailed)
	assert.Equal(t, interruptedMessage, rec.ErrorMessage)
}

func TestRunnerConfigFrom(t *testing.T) {
	cfg := RunnerConfigFrom(config.TaskConfig{WorkerCount: 4, QueueSize: 10, StuckTaskAgeMinutes: 15})

	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 10, cfg.QueueSize)
	assert.Equal(t, 15*time.Minute, cfg.StuckTaskAge)
	assert.Equal(t, 5*time.Minute, cfg.StuckTaskCheckInterval)
}
