package driven

import (
	"context"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

// ContentStore queries records from the primary content store.
type ContentStore interface {
	// FindMany returns every record of the collection matching the options.
	FindMany(ctx context.Context, collection string, opts domain.QueryOptions) ([]domain.Record, error)

	// FindOne returns a single record with the given relations populated.
	// Returns domain.ErrNotFound if the record does not exist.
	FindOne(ctx context.Context, collection, id string, populate []string) (domain.Record, error)
}
