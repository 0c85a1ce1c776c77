package workqueue

import (
	"context"
	"sync"
	"time"
)

// TaskStatus is the lifecycle state of a queued task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether the task will not run again.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

// Task is a unit of background work.
type Task interface {
	// ID keys the task for EnqueueUnique. Analysis tasks use the analysis id.
	ID() string

	// Name is a human-readable label for logs.
	Name() string

	// RequiresLLM marks tasks that call a provider and count against the
	// strategy's LLM limit.
	RequiresLLM() bool

	// Execute runs the task. ctx is cancelled when the queue shuts down.
	Execute(ctx context.Context, enqueuer TaskEnqueuer) error
}

// TaskEnqueuer lets a running task schedule follow-up work.
type TaskEnqueuer interface {
	Enqueue(task Task)
}

// TaskState tracks one task while it is pending or running.
type TaskState struct {
	Task Task

	mu         sync.RWMutex
	status     TaskStatus
	startedAt  time.Time
	err        error
	retryCount int
}

// NewTaskState wraps task in the pending state.
func NewTaskState(task Task) *TaskState {
	return &TaskState{Task: task, status: TaskStatusPending}
}

func (ts *TaskState) Status() TaskStatus {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.status
}

// SetStatus moves the task to status, stamping the start time on running.
func (ts *TaskState) SetStatus(status TaskStatus) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.status = status
	if status == TaskStatusRunning {
		ts.startedAt = time.Now()
	}
}

// Elapsed is the time since the task started running, or zero if it has not.
func (ts *TaskState) Elapsed() time.Duration {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	if ts.startedAt.IsZero() {
		return 0
	}
	return time.Since(ts.startedAt)
}

func (ts *TaskState) SetError(err error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.err = err
}

func (ts *TaskState) Err() error {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.err
}

// IncrementRetryCount records a retry and returns the new count.
func (ts *TaskState) IncrementRetryCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.retryCount++
	return ts.retryCount
}

func (ts *TaskState) RetryCount() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.retryCount
}

// BaseTask carries the identity fields every task needs.
// Embed it in concrete tasks.
type BaseTask struct {
	id          string
	name        string
	requiresLLM bool
}

// NewBaseTask keys a task by id, normally the id of the record it processes.
func NewBaseTask(id, name string, requiresLLM bool) BaseTask {
	return BaseTask{id: id, name: name, requiresLLM: requiresLLM}
}

func (t BaseTask) ID() string        { return t.id }
func (t BaseTask) Name() string      { return t.name }
func (t BaseTask) RequiresLLM() bool { return t.requiresLLM }
