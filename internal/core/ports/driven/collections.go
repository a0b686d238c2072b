package driven

import "github.com/custodia-labs/sercha-indexsync/internal/core/domain"

// CollectionConfigResolver exposes the per-collection indexing rules.
// Configuration is owned outside the core; implementations may reload it
// at any time, so callers resolve per use rather than caching.
type CollectionConfigResolver interface {
	// IsConfigured reports whether the collection is indexed.
	IsConfigured(name string) bool

	// CollectionConfig returns the rules for a collection.
	// Returns domain.ErrConfiguration if the collection is not configured.
	CollectionConfig(name string) (*domain.CollectionIndexConfig, error)

	// ConfiguredCollections returns the indexed collection names, sorted.
	ConfiguredCollections() []string

	// IndexAliasName returns the alias readers and writers use.
	IndexAliasName() string
}
