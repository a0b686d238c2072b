package domain

// IndexDescriptor names the indices involved in serving and rebuilding.
type IndexDescriptor struct {
	// CurrentName is the index the alias points at.
	CurrentName string

	// TemporaryName is the candidate index used by a blue-green rebuild.
	TemporaryName string

	// AliasName is the stable name readers and incremental writers use.
	AliasName string
}

// DocumentID derives the search document identifier for a record.
// Re-indexing the same record always overwrites the same document.
func DocumentID(collectionName, itemID string) string {
	return collectionName + "-" + itemID
}

// CleanupResult reports the outcome of a best-effort cleanup such as an
// index deletion. Cleanup never fails the caller; Err carries the reason
// when Deleted is false.
type CleanupResult struct {
	Index   string
	Deleted bool
	Err     error
}

// RebuildStrategy selects how a full-site rebuild populates the index.
type RebuildStrategy string

// Available rebuild strategies.
const (
	// RebuildInPlace indexes directly into the current index.
	RebuildInPlace RebuildStrategy = "in-place"

	// RebuildBlueGreen builds a temporary index and swaps the alias onto it.
	RebuildBlueGreen RebuildStrategy = "blue-green"
)

// IsValid returns true if the strategy is recognised.
func (s RebuildStrategy) IsValid() bool {
	return s == RebuildInPlace || s == RebuildBlueGreen
}
