package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	if ports.Search == nil {
		ports.Search = &mockSearchService{}
	}
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		mockSearch := &mockSearchService{
			result: &domain.SearchResult{
				Total: 3,
				Hits: []domain.SearchHit{{
					ID:     "article-42",
					Index:  "sercha-index-000001",
					Score:  0.95,
					Source: map[string]any{"title": "Hello"},
				}},
			},
		}
		server := newTestServer(t, &Ports{Search: mockSearch})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "hel", Limit: 5})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, int64(3), output.Total)
		assert.Equal(t, "article-42", output.Results[0].DocumentID)
		assert.Equal(t, "sercha-index-000001", output.Results[0].Index)
		assert.Equal(t, "Hello", output.Results[0].Source["title"])
		assert.Equal(t, 5, mockSearch.lastQuery.Size)
		assert.Equal(t, "hel", mockSearch.lastQuery.Text)
	})

	t.Run("default limit is 10", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server := newTestServer(t, &Ports{Search: mockSearch})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Equal(t, 10, mockSearch.lastQuery.Size)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		server := newTestServer(t, &Ports{Search: &mockSearchService{err: errors.New("search failed")}})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleRebuild(t *testing.T) {
	ctx := context.Background()

	t.Run("runs a rebuild", func(t *testing.T) {
		indexing := &mockIndexingService{}
		server := newTestServer(t, &Ports{Indexing: indexing})

		_, output, err := server.handleRebuild(ctx, nil, RebuildInput{})

		require.NoError(t, err)
		assert.Equal(t, "rebuilt", output.Status)
		assert.Equal(t, 1, indexing.rebuilds)
	})

	t.Run("reports a pass in progress", func(t *testing.T) {
		server := newTestServer(t, &Ports{Indexing: &mockIndexingService{err: domain.ErrIndexingInProgress}})

		_, _, err := server.handleRebuild(ctx, nil, RebuildInput{})

		assert.ErrorIs(t, err, domain.ErrIndexingInProgress)
	})
}

func TestServer_handleIndexPending(t *testing.T) {
	indexing := &mockIndexingService{report: &domain.DrainReport{Pending: 3, Completed: 2, Failed: 1}}
	server := newTestServer(t, &Ports{Indexing: indexing})

	_, output, err := server.handleIndexPending(context.Background(), nil, IndexPendingInput{})

	require.NoError(t, err)
	assert.Equal(t, IndexPendingOutput{Pending: 3, Completed: 2, Failed: 1}, output)
}

func TestServer_handleEnqueue(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		input    EnqueueInput
		wantKind domain.TaskKind
	}{
		{"full", EnqueueInput{Kind: "full"}, domain.TaskKindFullSiteReindex},
		{"upsert", EnqueueInput{Kind: "upsert", Collection: "article", ItemID: "42"}, domain.TaskKindItemUpsert},
		{"remove", EnqueueInput{Kind: "remove", Collection: "article", ItemID: "42"}, domain.TaskKindItemRemove},
		{"collection", EnqueueInput{Kind: "collection", Collection: "article"}, domain.TaskKindCollectionReindex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &mockQueueService{}
			server := newTestServer(t, &Ports{Queue: queue})

			_, output, err := server.handleEnqueue(ctx, nil, tt.input)

			require.NoError(t, err)
			assert.Equal(t, "task-1", output.TaskID)
			assert.Equal(t, tt.wantKind.String(), output.Kind)
			assert.Equal(t, tt.wantKind, queue.last.Kind)
		})
	}

	t.Run("unknown kind", func(t *testing.T) {
		server := newTestServer(t, &Ports{Queue: &mockQueueService{}})

		_, _, err := server.handleEnqueue(ctx, nil, EnqueueInput{Kind: "everything"})

		assert.ErrorIs(t, err, ErrUnknownTaskKind)
	})

	t.Run("missing item id", func(t *testing.T) {
		server := newTestServer(t, &Ports{Queue: &mockQueueService{}})

		_, _, err := server.handleEnqueue(ctx, nil, EnqueueInput{Kind: "upsert", Collection: "article"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestServer_handleLogs(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	indexing := &mockIndexingService{logs: []domain.LogEntry{
		{ID: "1", Timestamp: ts, Outcome: domain.OutcomeSuccess, Message: "Indexing of 1 records complete."},
	}}
	server := newTestServer(t, &Ports{Indexing: indexing})

	_, output, err := server.handleLogs(context.Background(), nil, LogsInput{})

	require.NoError(t, err)
	require.Len(t, output.Entries, 1)
	assert.Equal(t, "success", output.Entries[0].Outcome)
	assert.Equal(t, ts, output.Entries[0].Timestamp)
	assert.Equal(t, 20, indexing.logLimit)
}
