package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown backend or strategy name.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrIndexingInProgress indicates a drain or rebuild is already running.
	ErrIndexingInProgress = errors.New("indexing in progress")

	// ErrConfiguration indicates a setting or collection configuration is
	// missing or unusable.
	ErrConfiguration = errors.New("configuration error")

	// Search Engine Errors.
	//
	// Gateway adapters wrap the underlying cause with one of these kinds,
	// e.g. fmt.Errorf("%w: %w", ErrIndexWrite, err), so callers classify
	// failures with errors.Is.

	// ErrConnection indicates the search engine is unreachable or timed out.
	ErrConnection = errors.New("search engine unreachable")

	// ErrIndexCreation indicates an index could not be created.
	ErrIndexCreation = errors.New("index creation failed")

	// ErrIndexWrite indicates a document write or delete failed.
	ErrIndexWrite = errors.New("index write failed")

	// ErrQuery indicates a search request failed.
	ErrQuery = errors.New("search query failed")

	// ErrAlias indicates an alias could not be moved.
	ErrAlias = errors.New("alias update failed")
)
