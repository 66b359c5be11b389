package state

import (
	"context"
	"sync"
	"time"
)

// Status of a transfer task
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
)

// Task represents one in-flight download or upload. Tasks live only as
// long as their command; results are reported and the task discarded.
type Task struct {
	ID        int64
	Source    string
	ChatID    int64
	StartTime time.Time

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
}

// Status returns the task status
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// SetStatus updates the task status
func (t *Task) SetStatus(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
}

// Cancel cancels the task's context
func (t *Task) Cancel() {
	t.SetStatus(StatusCancelled)
	t.cancel()
}

// Tasks registers in-flight tasks so the abort command can cancel them.
// Cancellation is scoped per task, not a process-wide flag.
type Tasks struct {
	mu     sync.Mutex
	nextID int64
	active map[int64]*Task
}

// NewTasks creates an empty registry
func NewTasks() *Tasks {
	return &Tasks{active: make(map[int64]*Task)}
}

// Start registers a new task derived from parent and returns it together
// with its cancellable context. Callers must Finish the task when done.
func (ts *Tasks) Start(parent context.Context, chatID int64, source string) (*Task, context.Context) {
	ctx, cancel := context.WithCancel(parent)

	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.nextID++
	task := &Task{
		ID:        ts.nextID,
		Source:    source,
		ChatID:    chatID,
		StartTime: time.Now(),
		status:    StatusActive,
		cancel:    cancel,
	}
	ts.active[task.ID] = task
	return task, ctx
}

// Finish removes the task from the registry and releases its context.
// The final status is left as set by the caller.
func (ts *Tasks) Finish(task *Task) {
	ts.mu.Lock()
	delete(ts.active, task.ID)
	ts.mu.Unlock()
	task.cancel()
}

// CancelAll cancels every registered task and returns how many were cancelled
func (ts *Tasks) CancelAll() int {
	ts.mu.Lock()
	tasks := make([]*Task, 0, len(ts.active))
	for _, t := range ts.active {
		tasks = append(tasks, t)
	}
	ts.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	return len(tasks)
}

// Len returns the number of in-flight tasks
func (ts *Tasks) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.active)
}
