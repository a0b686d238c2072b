package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

// QueueService records indexing intents for the next drain.
type QueueService interface {
	// EnqueueFullSiteTask schedules a full-site rebuild.
	EnqueueFullSiteTask(ctx context.Context) (*domain.IndexingTask, error)

	// EnqueueItemUpsert schedules indexing of a single record.
	EnqueueItemUpsert(ctx context.Context, collection, itemID string) (*domain.IndexingTask, error)

	// EnqueueItemRemove schedules removal of a single record.
	EnqueueItemRemove(ctx context.Context, collection, itemID string) (*domain.IndexingTask, error)

	// EnqueueCollectionReindex schedules a re-index of one collection.
	EnqueueCollectionReindex(ctx context.Context, collection string) (*domain.IndexingTask, error)

	// Pending returns the tasks waiting to be drained, oldest first.
	Pending(ctx context.Context) ([]domain.IndexingTask, error)

	// Recent returns the latest tasks regardless of state, newest first.
	Recent(ctx context.Context, limit int) ([]domain.IndexingTask, error)

	// Prune deletes completed tasks older than the given age.
	Prune(ctx context.Context, olderThan time.Duration) (int, error)
}
