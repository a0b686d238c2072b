package domain

// SearchQuery describes a read-only query against the alias.
type SearchQuery struct {
	// Text is matched against Fields using the ngram analyzer.
	Text string

	// Fields restricts the match. Empty means the default searchable fields.
	Fields []string

	// Size is the maximum number of hits. Zero means the engine default.
	Size int

	// From is the number of hits to skip.
	From int

	// Body is a raw query body. When set, Text and Fields are ignored.
	Body map[string]any
}

// SearchHit is one matching document.
type SearchHit struct {
	// ID is the document identifier (see DocumentID).
	ID string

	// Index is the concrete index that served the hit.
	Index string

	// Score is the relevance score.
	Score float64

	// Source is the stored document.
	Source map[string]any
}

// SearchResult is the response of a search.
type SearchResult struct {
	// Total is the number of matching documents.
	Total int64

	// Hits is the current page of matches.
	Hits []SearchHit
}
