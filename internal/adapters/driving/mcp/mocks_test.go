package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	result    *domain.SearchResult
	err       error
	lastQuery domain.SearchQuery
}

func (m *mockSearchService) Search(_ context.Context, query domain.SearchQuery) (*domain.SearchResult, error) {
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.SearchResult{}, nil
	}
	return m.result, nil
}

// mockIndexingService is a mock implementation of driving.IndexingService.
type mockIndexingService struct {
	report   *domain.DrainReport
	status   *driving.IndexStatus
	logs     []domain.LogEntry
	err      error
	rebuilds int
	logLimit int
}

func (m *mockIndexingService) RebuildIndex(_ context.Context) error {
	m.rebuilds++
	return m.err
}

func (m *mockIndexingService) IndexCollection(_ context.Context, _, _ string) (int, error) {
	return 0, m.err
}

func (m *mockIndexingService) IndexPendingData(_ context.Context) (*domain.DrainReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.report == nil {
		return &domain.DrainReport{}, nil
	}
	return m.report, nil
}

func (m *mockIndexingService) Status(_ context.Context) (*driving.IndexStatus, error) {
	return m.status, m.err
}

func (m *mockIndexingService) Logs(_ context.Context, limit int) ([]domain.LogEntry, error) {
	m.logLimit = limit
	return m.logs, m.err
}

// mockQueueService is a mock implementation of driving.QueueService.
type mockQueueService struct {
	pending []domain.IndexingTask
	err     error
	last    domain.IndexingTask
}

func (m *mockQueueService) enqueue(task domain.IndexingTask) (*domain.IndexingTask, error) {
	if m.err != nil {
		return nil, m.err
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	task.ID = "task-1"
	m.last = task
	return &task, nil
}

func (m *mockQueueService) EnqueueFullSiteTask(_ context.Context) (*domain.IndexingTask, error) {
	return m.enqueue(domain.IndexingTask{Kind: domain.TaskKindFullSiteReindex})
}

func (m *mockQueueService) EnqueueItemUpsert(_ context.Context, collection, itemID string) (*domain.IndexingTask, error) {
	return m.enqueue(domain.IndexingTask{Kind: domain.TaskKindItemUpsert, CollectionName: collection, ItemID: itemID})
}

func (m *mockQueueService) EnqueueItemRemove(_ context.Context, collection, itemID string) (*domain.IndexingTask, error) {
	return m.enqueue(domain.IndexingTask{Kind: domain.TaskKindItemRemove, CollectionName: collection, ItemID: itemID})
}

func (m *mockQueueService) EnqueueCollectionReindex(_ context.Context, collection string) (*domain.IndexingTask, error) {
	return m.enqueue(domain.IndexingTask{Kind: domain.TaskKindCollectionReindex, CollectionName: collection})
}

func (m *mockQueueService) Pending(_ context.Context) ([]domain.IndexingTask, error) {
	return m.pending, m.err
}

func (m *mockQueueService) Recent(_ context.Context, _ int) ([]domain.IndexingTask, error) {
	return m.pending, m.err
}

func (m *mockQueueService) Prune(_ context.Context, _ time.Duration) (int, error) {
	return 0, m.err
}
