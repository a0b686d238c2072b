package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

func TestSearchService_EmptyQuery(t *testing.T) {
	gw := newMockGateway()
	svc := NewSearchService(gw, testAlias)

	res, err := svc.Search(context.Background(), domain.SearchQuery{Text: "   "})

	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.Empty(t, gw.searched)
}

func TestSearchService_AppliesDefaults(t *testing.T) {
	gw := newMockGateway()
	ctx := context.Background()
	require.NoError(t, gw.AttachAlias(ctx, testAlias, "sercha-index_000001"))
	require.NoError(t, gw.UpsertDocument(ctx, testAlias, "article-1", domain.IndexedDocument{"title": "Hello"}))
	svc := NewSearchService(gw, testAlias)

	res, err := svc.Search(ctx, domain.SearchQuery{Text: " hello "})

	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "article-1", res.Hits[0].ID)
	require.Len(t, gw.searched, 1)
	assert.Equal(t, "hello", gw.searched[0].Text)
	assert.Equal(t, 20, gw.searched[0].Size)
	assert.Equal(t, SearchableFields(), gw.searched[0].Fields)
}

func TestSearchService_RawBodyWithoutText(t *testing.T) {
	gw := newMockGateway()
	ctx := context.Background()
	require.NoError(t, gw.AttachAlias(ctx, testAlias, "idx"))
	svc := NewSearchService(gw, testAlias)

	_, err := svc.Search(ctx, domain.SearchQuery{Body: map[string]any{"query": map[string]any{"match_all": map[string]any{}}}, Size: 5})

	require.NoError(t, err)
	require.Len(t, gw.searched, 1)
	assert.Equal(t, 5, gw.searched[0].Size)
}

func TestSearchService_MissingAlias(t *testing.T) {
	svc := NewSearchService(newMockGateway(), testAlias)

	_, err := svc.Search(context.Background(), domain.SearchQuery{Text: "x"})

	assert.ErrorIs(t, err, domain.ErrQuery)
}
