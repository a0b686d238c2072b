package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

// TaskQueue persists pending indexing tasks.
type TaskQueue interface {
	// Enqueue appends a task and returns it with its assigned ID and CreatedAt.
	Enqueue(ctx context.Context, task domain.IndexingTask) (*domain.IndexingTask, error)

	// Get retrieves a task by ID. Returns domain.ErrNotFound if missing.
	Get(ctx context.Context, id string) (*domain.IndexingTask, error)

	// Pending returns every task not yet completed, oldest first.
	Pending(ctx context.Context) ([]domain.IndexingTask, error)

	// MarkComplete marks a task complete. Marking a completed task again
	// has no effect. Returns domain.ErrNotFound for unknown IDs.
	MarkComplete(ctx context.Context, id string) error

	// List returns the most recent tasks, newest first.
	List(ctx context.Context, limit int) ([]domain.IndexingTask, error)

	// PruneCompleted deletes completed tasks finished before the cutoff and
	// returns how many were removed.
	PruneCompleted(ctx context.Context, before time.Time) (int, error)
}
