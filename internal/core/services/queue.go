package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-indexsync/internal/logger"
)

// Ensure QueueService implements the interface.
var _ driving.QueueService = (*QueueService)(nil)

// QueueService records indexing intents for the engine to drain later.
type QueueService struct {
	queue driven.TaskQueue
}

// NewQueueService creates a new queue service.
func NewQueueService(queue driven.TaskQueue) *QueueService {
	return &QueueService{queue: queue}
}

// EnqueueFullSiteTask asks for a rebuild of the whole index.
func (s *QueueService) EnqueueFullSiteTask(ctx context.Context) (*domain.IndexingTask, error) {
	return s.enqueue(ctx, domain.IndexingTask{Kind: domain.TaskKindFullSiteReindex})
}

// EnqueueItemUpsert asks for one record to be (re-)indexed.
func (s *QueueService) EnqueueItemUpsert(ctx context.Context, collection, itemID string) (*domain.IndexingTask, error) {
	return s.enqueue(ctx, domain.IndexingTask{
		Kind:           domain.TaskKindItemUpsert,
		CollectionName: collection,
		ItemID:         itemID,
	})
}

// EnqueueItemRemove asks for one record to be removed from the index.
func (s *QueueService) EnqueueItemRemove(ctx context.Context, collection, itemID string) (*domain.IndexingTask, error) {
	return s.enqueue(ctx, domain.IndexingTask{
		Kind:           domain.TaskKindItemRemove,
		CollectionName: collection,
		ItemID:         itemID,
	})
}

// EnqueueCollectionReindex asks for every record of a collection to be re-indexed.
func (s *QueueService) EnqueueCollectionReindex(ctx context.Context, collection string) (*domain.IndexingTask, error) {
	return s.enqueue(ctx, domain.IndexingTask{
		Kind:           domain.TaskKindCollectionReindex,
		CollectionName: collection,
	})
}

func (s *QueueService) enqueue(ctx context.Context, task domain.IndexingTask) (*domain.IndexingTask, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}
	stored, err := s.queue.Enqueue(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", task.Kind, err)
	}
	logger.Debug("Enqueued %s task %s (%s/%s)", stored.Kind, stored.ID, stored.CollectionName, stored.ItemID)
	return stored, nil
}

// Pending returns tasks not yet completed, oldest first.
func (s *QueueService) Pending(ctx context.Context) ([]domain.IndexingTask, error) {
	return s.queue.Pending(ctx)
}

// Recent returns up to limit tasks of any state, newest first.
func (s *QueueService) Recent(ctx context.Context, limit int) ([]domain.IndexingTask, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queue.List(ctx, limit)
}

// Prune deletes completed tasks older than olderThan. Pending tasks are never pruned.
func (s *QueueService) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan < 0 {
		return 0, fmt.Errorf("%w: negative retention %s", domain.ErrInvalidInput, olderThan)
	}
	n, err := s.queue.PruneCompleted(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("prune tasks: %w", err)
	}
	logger.Info("Pruned %d completed tasks", n)
	return n, nil
}
