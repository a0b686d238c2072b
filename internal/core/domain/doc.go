// Package domain defines the core business entities for the index
// synchronisation engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - IndexingTask: A pending unit of indexing work
//   - LogEntry: An append-only record of an indexing pass outcome
//   - CollectionIndexConfig: Per-collection extraction rules
//   - IndexDescriptor: Current and temporary index names plus the alias
//   - IndexMapping: The fixed settings and field mapping of every index
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
