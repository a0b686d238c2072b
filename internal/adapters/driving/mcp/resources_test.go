package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driving"
)

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestExtractLimit(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected int
	}{
		{name: "valid logs URI", uri: "sercha://logs/15", expected: 15},
		{name: "invalid prefix", uri: "file://logs/15", expected: 0},
		{name: "not a number", uri: "sercha://logs/many", expected: 0},
		{name: "empty URI", uri: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractLimit(tt.uri))
		})
	}
}

func TestServer_handleStatusResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns status", func(t *testing.T) {
		indexing := &mockIndexingService{status: &driving.IndexStatus{
			Descriptor: domain.IndexDescriptor{
				CurrentName:   "sercha-index-000001",
				TemporaryName: "sercha-index-000002",
				AliasName:     "sercha",
			},
			AliasTargets: []string{"sercha-index-000001"},
			Reachable:    true,
			PendingTasks: 4,
		}}
		server := newTestServer(t, &Ports{Indexing: indexing})

		result, err := server.handleStatusResource(ctx, makeReadResourceRequest("sercha://status"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, `"current_index": "sercha-index-000001"`)
		assert.Contains(t, result.Contents[0].Text, `"pending_tasks": 4`)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	})

	t.Run("returns error on status failure", func(t *testing.T) {
		server := newTestServer(t, &Ports{Indexing: &mockIndexingService{err: errors.New("database error")}})

		_, err := server.handleStatusResource(ctx, makeReadResourceRequest("sercha://status"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "database error")
	})
}

func TestServer_handlePendingResource(t *testing.T) {
	queue := &mockQueueService{pending: []domain.IndexingTask{{
		ID:             "t-1",
		Kind:           domain.TaskKindItemUpsert,
		CollectionName: "article",
		ItemID:         "42",
		CreatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}}}
	server := newTestServer(t, &Ports{Queue: queue})

	result, err := server.handlePendingResource(context.Background(), makeReadResourceRequest("sercha://tasks/pending"))

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Contains(t, result.Contents[0].Text, `"kind": "item-upsert"`)
	assert.Contains(t, result.Contents[0].Text, `"item_id": "42"`)
}

func TestServer_handleLogsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns entries", func(t *testing.T) {
		indexing := &mockIndexingService{logs: []domain.LogEntry{
			{Outcome: domain.OutcomeFailure, Message: "Indexing of records failed - boom"},
		}}
		server := newTestServer(t, &Ports{Indexing: indexing})

		result, err := server.handleLogsResource(ctx, makeReadResourceRequest("sercha://logs/5"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, "Indexing of records failed - boom")
		assert.Equal(t, 5, indexing.logLimit)
	})

	t.Run("bad limit is not found", func(t *testing.T) {
		server := newTestServer(t, &Ports{Indexing: &mockIndexingService{}})

		_, err := server.handleLogsResource(ctx, makeReadResourceRequest("sercha://logs/zero"))

		assert.Error(t, err)
	})
}
