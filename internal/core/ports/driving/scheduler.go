package driving

import (
	"context"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

// Scheduler runs the periodic queue drain and optional full rebuilds.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// Tasks returns the persisted scheduled tasks.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// History returns the latest results of a task, newest first.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
}
