package driving

import (
	"context"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

// SearchService queries the index through the alias.
type SearchService interface {
	// Search executes a read-only query.
	Search(ctx context.Context, query domain.SearchQuery) (*domain.SearchResult, error)
}
