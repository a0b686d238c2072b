package mcp

import (
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search queries the index through the alias.
	Search driving.SearchService

	// Indexing runs rebuilds and drains and exposes the operation log.
	Indexing driving.IndexingService

	// Queue records indexing intents.
	Queue driving.QueueService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	// Indexing and Queue are optional; their tools are not registered without them.
	return nil
}
