package driving

import (
	"context"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

// IndexingService reconciles the search index with the content store.
// At most one drain or rebuild runs at a time; a concurrent call returns
// domain.ErrIndexingInProgress.
type IndexingService interface {
	// RebuildIndex re-populates the index from every configured collection.
	RebuildIndex(ctx context.Context) error

	// IndexCollection indexes every eligible record of a collection into
	// indexName, or into the current index when indexName is empty.
	// Returns the number of documents written.
	IndexCollection(ctx context.Context, collection, indexName string) (int, error)

	// IndexPendingData drains the pending queue.
	IndexPendingData(ctx context.Context) (*domain.DrainReport, error)

	// Status describes the index naming and engine reachability.
	Status(ctx context.Context) (*IndexStatus, error)

	// Logs returns the latest operation log entries, newest first.
	Logs(ctx context.Context, limit int) ([]domain.LogEntry, error)
}

// IndexStatus is a point-in-time view of the index lifecycle.
type IndexStatus struct {
	// Descriptor names the current, temporary and alias indices.
	Descriptor domain.IndexDescriptor

	// AliasTargets are the indices the alias resolves to.
	AliasTargets []string

	// Reachable reports whether the search engine answered a ping.
	Reachable bool

	// PendingTasks is the number of tasks waiting to be drained.
	PendingTasks int
}
