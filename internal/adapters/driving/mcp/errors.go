// Package mcp provides an MCP (Model Context Protocol) server adapter for
// sercha-indexsync. It lets AI assistants search the index and drive the
// indexing engine.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrUnknownTaskKind is returned by enqueue_task for an unrecognised kind.
var ErrUnknownTaskKind = errors.New("mcp: unknown task kind")
