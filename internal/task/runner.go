package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/as400-api/internal/config"
	"github.com/phrazzld/as400-api/internal/redact"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// StuckTaskAge defines how long a task can be in processing state
	// before it's considered stuck and reset
	StuckTaskAge time.Duration

	// StuckTaskCheckInterval defines how often to check for stuck tasks
	// If zero, defaults to 5 minutes
	StuckTaskCheckInterval time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount:            2,
		QueueSize:              100,
		StuckTaskAge:           30 * time.Minute,
		StuckTaskCheckInterval: 5 * time.Minute,
	}
}

// RunnerConfigFrom converts the application task settings.
func RunnerConfigFrom(cfg config.TaskConfig) TaskRunnerConfig {
	rc := DefaultTaskRunnerConfig()
	rc.WorkerCount = cfg.WorkerCount
	rc.QueueSize = cfg.QueueSize
	rc.StuckTaskAge = time.Duration(cfg.StuckTaskAgeMinutes) * time.Minute
	return rc
}

// TaskRunner persists, queues and executes tasks.
type TaskRunner struct {
	store      TaskStore
	queue      *TaskQueue
	pool       *WorkerPool
	config     TaskRunnerConfig
	logger     *slog.Logger
	errHandler func(task Task, err error)

	factoriesMu sync.RWMutex
	factories   map[string]Factory

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.StuckTaskCheckInterval == 0 {
		config.StuckTaskCheckInterval = 5 * time.Minute
	}
	logger = logger.With("component", "task_runner")

	ctx, cancel := context.WithCancel(context.Background())

	r := &TaskRunner{
		store:      store,
		queue:      NewTaskQueue(config.QueueSize, logger),
		config:     config,
		logger:     logger,
		factories:  make(map[string]Factory),
		ctx:        ctx,
		cancelFunc: cancel,
		errHandler: func(task Task, err error) {
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", redact.Error(err))
		},
	}
	r.pool = NewWorkerPool(r.queue, WorkerPoolConfig{WorkerCount: config.WorkerCount}, r.processTask, logger)
	r.pool.SetErrorHandler(r.handlePanic)
	return r
}

// SetErrorHandler allows setting a custom error handler function
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// RegisterFactory makes tasks of taskType recoverable after a restart.
func (r *TaskRunner) RegisterFactory(taskType string, factory Factory) {
	r.factoriesMu.Lock()
	defer r.factoriesMu.Unlock()
	r.factories[taskType] = factory
}

// Submit persists task and queues it. When the queue is full or closed the
// task is marked failed and the queue error is returned.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if err := r.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	if err := r.queue.Enqueue(task); err != nil {
		if finishErr := r.store.FinishTask(ctx, task.ID(), TaskStatusFailed, nil, "not queued: "+err.Error()); finishErr != nil {
			r.logger.Error("failed to mark unqueued task as failed",
				"task_id", task.ID(),
				"error", redact.Error(finishErr))
		}
		return err
	}
	return nil
}

// Start recovers unfinished tasks, then starts the workers and the stuck task monitor.
func (r *TaskRunner) Start() error {
	if err := r.Recover(r.ctx); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	r.pool.Start()

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	return nil
}

// Stop cancels in-flight tasks, waits for the workers and closes the queue.
// Interrupted tasks stay in processing and are marked failed on the next start.
func (r *TaskRunner) Stop() {
	r.stopOnce.Do(func() {
		r.cancelFunc()
		r.pool.Stop()
		r.wg.Wait()
		r.queue.Close()
	})
}

// interruptedMessage is stored on tasks that were processing when the
// runner stopped or lost track of them. Their side effects on the host are
// unknown, so they are never run a second time.
const interruptedMessage = "interrupted before completion, not retried"

// Recover queues pending tasks again and marks tasks that were left in
// processing as failed.
func (r *TaskRunner) Recover(ctx context.Context) error {
	pending, err := r.store.GetPendingTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending tasks: %w", err)
	}

	// processing tasks of any age were interrupted by the previous shutdown
	processing, err := r.store.GetProcessingTasks(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec)
	}
	for _, rec := range processing {
		r.abandon(ctx, rec)
	}
	return nil
}

// requeue rebuilds a pending task and queues it.
func (r *TaskRunner) requeue(ctx context.Context, rec Record) {
	log := r.logger.With("task_id", rec.ID, "task_type", rec.Type)

	task, err := r.build(rec)
	if err != nil {
		log.Error("cannot rebuild task, marking failed", "error", redact.Error(err))
		if err := r.store.FinishTask(ctx, rec.ID, TaskStatusFailed, nil, err.Error()); err != nil {
			log.Error("failed to mark task as failed", "error", redact.Error(err))
		}
		return
	}

	if err := r.queue.Enqueue(task); err != nil {
		log.Error("failed to requeue task", "error", err)
		return
	}
	log.Info("requeued task")
}

// abandon marks an interrupted task as failed.
func (r *TaskRunner) abandon(ctx context.Context, rec Record) {
	log := r.logger.With("task_id", rec.ID, "task_type", rec.Type)
	if err := r.store.FinishTask(ctx, rec.ID, TaskStatusFailed, nil, interruptedMessage); err != nil {
		log.Error("failed to mark interrupted task as failed", "error", redact.Error(err))
		return
	}
	log.Warn("interrupted task marked failed")
}

func (r *TaskRunner) build(rec Record) (Task, error) {
	r.factoriesMu.RLock()
	factory, ok := r.factories[rec.Type]
	r.factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, rec.Type)
	}
	return factory(rec)
}

// processTask handles execution of a single task
func (r *TaskRunner) processTask(ctx context.Context, task Task, workerID int) {
	log := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	if err := r.store.UpdateTaskStatus(ctx, task.ID(), TaskStatusProcessing, ""); err != nil {
		log.Error("failed to update task status to processing", "error", redact.Error(err))
		return
	}

	log.Info("processing task")
	result, err := task.Execute(ctx)

	// status updates must land even when ctx was cancelled by Stop
	storeCtx := context.WithoutCancel(ctx)

	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			log.Warn("task interrupted by shutdown, leaving it for recovery")
			return
		}
		if updateErr := r.store.FinishTask(storeCtx, task.ID(), TaskStatusFailed, result, redact.Error(err)); updateErr != nil {
			log.Error("failed to update task status to failed", "error", redact.Error(updateErr))
		}
		r.errHandler(task, err)
		return
	}

	log.Info("task completed successfully")
	if updateErr := r.store.FinishTask(storeCtx, task.ID(), TaskStatusCompleted, result, ""); updateErr != nil {
		log.Error("failed to update task status to completed", "error", redact.Error(updateErr))
	}
}

func (r *TaskRunner) handlePanic(task Task, err error) {
	if updateErr := r.store.FinishTask(context.Background(), task.ID(), TaskStatusFailed, nil, err.Error()); updateErr != nil {
		r.logger.Error("failed to update panicked task status",
			"task_id", task.ID(),
			"error", redact.Error(updateErr))
	}
	r.errHandler(task, err)
}

// stuckTaskMonitor periodically fails tasks that have been in "processing"
// state for longer than StuckTaskAge.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			stuck, err := r.store.GetProcessingTasks(r.ctx, r.config.StuckTaskAge)
			if err != nil {
				if r.ctx.Err() == nil {
					r.logger.Error("failed to check for stuck tasks", "error", redact.Error(err))
				}
				continue
			}
			if len(stuck) > 0 {
				r.logger.Info("found stuck tasks", "count", len(stuck))
			}
			for _, rec := range stuck {
				r.abandon(r.ctx, rec)
			}
		}
	}
}
