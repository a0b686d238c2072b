package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-indexsync/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// defaultSearchSize is used when a query does not set a size.
const defaultSearchSize = 20

// SearchService runs read-only queries against the alias.
type SearchService struct {
	gateway driven.SearchGateway
	alias   string
}

// NewSearchService creates a new search service querying alias.
func NewSearchService(gateway driven.SearchGateway, alias string) *SearchService {
	return &SearchService{gateway: gateway, alias: alias}
}

// Search runs a query. An empty text query without a raw body returns no hits.
func (s *SearchService) Search(ctx context.Context, query domain.SearchQuery) (*domain.SearchResult, error) {
	logger.Section("Search Execution")

	query.Text = strings.TrimSpace(query.Text)
	if query.Text == "" && query.Body == nil {
		logger.Debug("Empty query, returning no results")
		return &domain.SearchResult{Hits: []domain.SearchHit{}}, nil
	}
	if query.Size <= 0 {
		query.Size = defaultSearchSize
	}
	if len(query.Fields) == 0 {
		query.Fields = SearchableFields()
	}

	logger.Debug("Query: %q on %s (size %d, from %d)", query.Text, s.alias, query.Size, query.From)
	return s.gateway.Search(ctx, s.alias, query)
}
