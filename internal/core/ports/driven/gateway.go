package driven

import (
	"context"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

// SearchGateway is the stateful client to the search engine.
// It is constructed once at startup and shared by the core services.
//
// Failures are classified by wrapping one of domain.ErrConnection,
// domain.ErrIndexCreation, domain.ErrIndexWrite, domain.ErrQuery or
// domain.ErrAlias.
type SearchGateway interface {
	// Ping reports whether the engine is reachable. It never returns an error.
	Ping(ctx context.Context) bool

	// IndexExists reports whether a concrete index exists.
	IndexExists(ctx context.Context, name string) (bool, error)

	// CreateIndex creates the index with the gateway's mapping.
	// It is a no-op when the index already exists.
	CreateIndex(ctx context.Context, name string) error

	// DeleteIndex removes an index. It is best-effort: failures are logged
	// and reported in the result, never returned.
	DeleteIndex(ctx context.Context, name string) domain.CleanupResult

	// AttachAlias points alias at target, detaching it from every other
	// index first and creating target when missing.
	AttachAlias(ctx context.Context, alias, target string) error

	// AliasTargets returns the indices an alias currently resolves to.
	AliasTargets(ctx context.Context, alias string) ([]string, error)

	// UpsertDocument indexes the document by id and refreshes the index.
	UpsertDocument(ctx context.Context, index, id string, doc domain.IndexedDocument) error

	// DeleteDocument removes the document by id and refreshes the index.
	// A missing document returns false and no error.
	DeleteDocument(ctx context.Context, index, id string) (bool, error)

	// Search runs a read-only query.
	Search(ctx context.Context, index string, query domain.SearchQuery) (*domain.SearchResult, error)

	// Close releases resources.
	Close() error
}
