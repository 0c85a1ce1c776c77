package workqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/retry"
)

// Queue runs tasks for the lifetime of the server with configurable
// concurrency control. Finished tasks are dropped from the queue; their
// outcome is kept only in the Progress counters.
type Queue struct {
	mu     sync.Mutex
	tasks  []*TaskState
	byID   map[string]*TaskState
	closed bool

	strategy ConcurrencyStrategy

	// retryConfig, when set, retries transient task errors with backoff.
	retryConfig *retry.Config

	// idle is closed whenever no task is pending or running.
	idle chan struct{}
	wg   sync.WaitGroup

	// Cancellation context for running tasks
	ctx    context.Context
	cancel context.CancelFunc

	finished Progress

	logger *zap.Logger
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithStrategy sets the concurrency strategy.
func WithStrategy(strategy ConcurrencyStrategy) QueueOption {
	return func(q *Queue) {
		if strategy != nil {
			q.strategy = strategy
		}
	}
}

// WithRetryConfig enables queue-level retries of transient task errors.
func WithRetryConfig(config *retry.Config) QueueOption {
	return func(q *Queue) {
		q.retryConfig = config
	}
}

// New creates a new work queue with the given options.
// The default strategy runs one LLM task and one data task at a time.
func New(logger *zap.Logger, opts ...QueueOption) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	q := &Queue{
		byID:     make(map[string]*TaskState),
		strategy: NewSlotStrategy(1),
		idle:     idle,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.Named("workqueue"),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Enqueue adds a task to the queue and attempts to start eligible tasks.
func (q *Queue) Enqueue(task Task) {
	q.EnqueueUnique(task)
}

// EnqueueUnique adds a task unless one with the same ID is already pending
// or running. It returns false when the task was not added.
func (q *Queue) EnqueueUnique(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.logger.Warn("queue closed, ignoring enqueue",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()))
		return false
	}

	if _, exists := q.byID[task.ID()]; exists {
		q.logger.Debug("task already queued",
			zap.String("task_id", task.ID()),
			zap.String("task_name", task.Name()))
		return false
	}

	q.resetIdleLocked()

	state := NewTaskState(task)
	q.tasks = append(q.tasks, state)
	q.byID[task.ID()] = state

	q.logger.Debug("task enqueued",
		zap.String("task_id", task.ID()),
		zap.String("task_name", task.Name()),
		zap.Bool("requires_llm", task.RequiresLLM()))

	q.tryStartTasksLocked()
	return true
}

// Has reports whether a task with id is pending or running.
func (q *Queue) Has(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.byID[id]
	return ok
}

// tryStartTasksLocked starts pending tasks in FIFO order as the strategy allows.
// Must be called with lock held.
func (q *Queue) tryStartTasksLocked() {
	if q.closed {
		return
	}

	for _, ts := range q.tasks {
		if ts.Status() != TaskStatusPending {
			continue
		}

		if !q.strategy.TryAcquire(ts.Task.RequiresLLM()) {
			continue
		}
		ts.SetStatus(TaskStatusRunning)

		q.logger.Debug("starting task",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()))

		q.wg.Add(1)
		go q.runTask(ts)
	}
}

func (q *Queue) runTask(ts *TaskState) {
	defer q.wg.Done()

	err := q.execute(ts)
	q.complete(ts, err)
}

// execute runs the task once, or under the retry policy when configured.
// A panicking task fails instead of taking the process down.
func (q *Queue) execute(ts *TaskState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	if q.retryConfig == nil {
		return ts.Task.Execute(q.ctx, q)
	}

	cfg := *q.retryConfig
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		ts.IncrementRetryCount()
		q.mu.Lock()
		q.finished.Retried++
		q.mu.Unlock()
		q.logger.Warn("retryable error, retrying task",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", cfg.MaxRetries),
			zap.Duration("backoff", delay),
			zap.Error(err))
	}
	return retry.DoIfRetryable(q.ctx, &cfg, func() error {
		return ts.Task.Execute(q.ctx, q)
	})
}

// complete records the outcome and removes the task from the queue.
func (q *Queue) complete(ts *TaskState, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.strategy.Release(ts.Task.RequiresLLM())

	switch {
	case err == nil:
		ts.SetStatus(TaskStatusCompleted)
		q.finished.Completed++
		q.logger.Debug("task completed",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()),
			zap.Duration("elapsed", ts.Elapsed()),
			zap.Int("retry_count", ts.RetryCount()))
	case errors.Is(err, context.Canceled):
		ts.SetStatus(TaskStatusCancelled)
		q.finished.Cancelled++
		q.logger.Info("task cancelled",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()))
	default:
		ts.SetStatus(TaskStatusFailed)
		ts.SetError(err)
		q.finished.Failed++
		q.logger.Error("task failed",
			zap.String("task_id", ts.Task.ID()),
			zap.String("task_name", ts.Task.Name()),
			zap.Int("retry_count", ts.RetryCount()),
			zap.Error(err))
	}

	q.removeLocked(ts)

	if len(q.tasks) == 0 {
		q.closeIdleLocked()
		return
	}
	q.tryStartTasksLocked()
}

// removeLocked drops a finished task. Must be called with lock held.
func (q *Queue) removeLocked(ts *TaskState) {
	delete(q.byID, ts.Task.ID())
	for i, t := range q.tasks {
		if t == ts {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return
		}
	}
}

func (q *Queue) closeIdleLocked() {
	select {
	case <-q.idle:
	default:
		close(q.idle)
	}
}

func (q *Queue) resetIdleLocked() {
	select {
	case <-q.idle:
		q.idle = make(chan struct{})
	default:
	}
}

// Wait blocks until no task is pending or running, or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks, drops pending ones, cancels running
// tasks, and waits for them to return or for ctx to expire.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.logger.Info("queue shutting down, signaling running tasks to stop",
			zap.Int("tasks", len(q.tasks)))

		remaining := q.tasks[:0]
		for _, ts := range q.tasks {
			if ts.Status() == TaskStatusPending {
				ts.SetStatus(TaskStatusCancelled)
				q.finished.Cancelled++
				delete(q.byID, ts.Task.ID())
				continue
			}
			remaining = append(remaining, ts)
		}
		q.tasks = remaining
		if len(q.tasks) == 0 {
			q.closeIdleLocked()
		}
		q.cancel()
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Progress returns live and cumulative task counts.
func (q *Queue) Progress() Progress {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := q.finished
	for _, ts := range q.tasks {
		switch ts.Status() {
		case TaskStatusPending:
			p.Pending++
		case TaskStatusRunning:
			p.Running++
		}
	}
	p.Total = p.Pending + p.Running + p.Completed + p.Failed + p.Cancelled
	return p
}

// Progress holds queue statistics.
type Progress struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	// Retried counts retry attempts, not tasks.
	Retried int `json:"retried"`
}
