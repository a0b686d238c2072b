package driven

import "context"

// IndexStateStore persists the name of the index currently serving the alias.
type IndexStateStore interface {
	// CurrentIndexName returns the stored name and whether one was stored.
	CurrentIndexName(ctx context.Context) (string, bool, error)

	// SetCurrentIndexName stores the name.
	SetCurrentIndexName(ctx context.Context, name string) error
}
