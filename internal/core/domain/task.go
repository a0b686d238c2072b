package domain

import (
	"fmt"
	"time"
)

// TaskKind identifies what an IndexingTask asks the engine to do.
type TaskKind string

// Available task kinds.
const (
	// TaskKindFullSiteReindex rebuilds the index from every configured collection.
	TaskKindFullSiteReindex TaskKind = "full-site-reindex"

	// TaskKindCollectionReindex re-indexes every record of one collection.
	TaskKindCollectionReindex TaskKind = "collection-reindex"

	// TaskKindItemUpsert indexes (creates or overwrites) a single record.
	TaskKindItemUpsert TaskKind = "item-upsert"

	// TaskKindItemRemove removes a single record from the index.
	TaskKindItemRemove TaskKind = "item-remove"
)

// IsValid returns true if the task kind is recognised.
func (k TaskKind) IsValid() bool {
	switch k {
	case TaskKindFullSiteReindex, TaskKindCollectionReindex, TaskKindItemUpsert, TaskKindItemRemove:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k TaskKind) String() string {
	return string(k)
}

// IndexingTask is one unit of pending indexing work.
type IndexingTask struct {
	// ID is assigned by the queue at enqueue time.
	ID string

	// Kind determines which of CollectionName and ItemID are populated.
	Kind TaskKind

	// CollectionName is required for every kind except full-site reindex.
	CollectionName string

	// ItemID is required for item upserts and removals.
	ItemID string

	// CreatedAt is when the task was enqueued.
	CreatedAt time.Time

	// Completed is set exactly once, by the engine, after a successful apply.
	Completed bool

	// CompletedAt is when the task was marked complete.
	CompletedAt time.Time
}

// Validate checks that the populated fields match the task kind.
func (t IndexingTask) Validate() error {
	switch t.Kind {
	case TaskKindFullSiteReindex:
		if t.CollectionName != "" || t.ItemID != "" {
			return fmt.Errorf("%w: full-site reindex takes no collection or item", ErrInvalidInput)
		}
	case TaskKindCollectionReindex:
		if t.CollectionName == "" {
			return fmt.Errorf("%w: collection reindex requires a collection", ErrInvalidInput)
		}
		if t.ItemID != "" {
			return fmt.Errorf("%w: collection reindex takes no item", ErrInvalidInput)
		}
	case TaskKindItemUpsert, TaskKindItemRemove:
		if t.CollectionName == "" || t.ItemID == "" {
			return fmt.Errorf("%w: %s requires a collection and an item", ErrInvalidInput, t.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown task kind %q", ErrInvalidInput, t.Kind)
	}
	return nil
}

// HasFullSiteTask reports whether any task in the list is a full-site reindex.
func HasFullSiteTask(tasks []IndexingTask) bool {
	for i := range tasks {
		if tasks[i].Kind == TaskKindFullSiteReindex {
			return true
		}
	}
	return false
}

// DrainReport summarises one pass over the pending queue.
type DrainReport struct {
	// Pending is the number of tasks pending when the pass started.
	Pending int

	// Completed is the number of tasks marked complete by the pass.
	Completed int

	// Failed is the number of tasks left pending because they failed.
	Failed int

	// FullRebuild is true when a full-site task caused a rebuild.
	FullRebuild bool
}
