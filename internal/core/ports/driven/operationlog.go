package driven

import (
	"context"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

// OperationLog is the append-only record of indexing outcomes.
type OperationLog interface {
	// Append records an entry, assigning ID and Timestamp when empty.
	Append(ctx context.Context, entry domain.LogEntry) error

	// Recent returns the latest entries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.LogEntry, error)

	// Prune keeps only the most recent 'keep' entries.
	Prune(ctx context.Context, keep int) error
}
