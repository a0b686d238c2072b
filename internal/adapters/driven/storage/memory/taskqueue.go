package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
)

// Ensure TaskQueue implements the interface.
var _ driven.TaskQueue = (*TaskQueue)(nil)

// TaskQueue is an in-memory implementation of driven.TaskQueue.
// Tasks are kept in enqueue order.
type TaskQueue struct {
	mu    sync.RWMutex
	tasks []domain.IndexingTask
	index map[string]int
	now   func() time.Time
}

// NewTaskQueue creates a new in-memory task queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		index: make(map[string]int),
		now:   time.Now,
	}
}

// Enqueue stores a new pending task and returns it with its ID assigned.
func (q *TaskQueue) Enqueue(_ context.Context, task domain.IndexingTask) (*domain.IndexingTask, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	task.ID = uuid.New().String()
	task.CreatedAt = q.now()
	task.Completed = false
	task.CompletedAt = time.Time{}

	q.index[task.ID] = len(q.tasks)
	q.tasks = append(q.tasks, task)
	return &task, nil
}

// Get retrieves a task by ID.
func (q *TaskQueue) Get(_ context.Context, id string) (*domain.IndexingTask, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	i, ok := q.index[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	task := q.tasks[i]
	return &task, nil
}

// Pending returns tasks not yet completed, oldest first.
func (q *TaskQueue) Pending(_ context.Context) ([]domain.IndexingTask, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	pending := make([]domain.IndexingTask, 0)
	for _, t := range q.tasks {
		if !t.Completed {
			pending = append(pending, t)
		}
	}
	return pending, nil
}

// MarkComplete marks a task completed. Completing a completed task is a no-op.
func (q *TaskQueue) MarkComplete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	i, ok := q.index[id]
	if !ok {
		return domain.ErrNotFound
	}
	if q.tasks[i].Completed {
		return nil
	}
	q.tasks[i].Completed = true
	q.tasks[i].CompletedAt = q.now()
	return nil
}

// List returns up to limit tasks, newest first.
func (q *TaskQueue) List(_ context.Context, limit int) ([]domain.IndexingTask, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if limit <= 0 || limit > len(q.tasks) {
		limit = len(q.tasks)
	}
	out := make([]domain.IndexingTask, 0, limit)
	for i := len(q.tasks) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, q.tasks[i])
	}
	return out, nil
}

// PruneCompleted removes completed tasks that finished before the cutoff.
func (q *TaskQueue) PruneCompleted(_ context.Context, before time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.tasks[:0]
	removed := 0
	for _, t := range q.tasks {
		if t.Completed && t.CompletedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	q.tasks = kept

	q.index = make(map[string]int, len(q.tasks))
	for i, t := range q.tasks {
		q.index[t.ID] = i
	}
	return removed, nil
}
