package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bleveadapter "github.com/custodia-labs/sercha-indexsync/internal/adapters/driven/bleve"
	"github.com/custodia-labs/sercha-indexsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/observability"
)

const testAlias = "sercha"

// indexingFixture wires an IndexingService to in-memory collaborators.
type indexingFixture struct {
	svc      *IndexingService
	gateway  *mockGateway
	queue    *memory.TaskQueue
	oplog    *memory.OperationLog
	state    *memory.IndexState
	content  *memory.ContentStore
	resolver *mockResolver
	auth     *IndexAuthority
}

func newIndexingFixture(configs ...domain.CollectionIndexConfig) *indexingFixture {
	f := &indexingFixture{
		gateway:  newMockGateway(),
		queue:    memory.NewTaskQueue(),
		oplog:    memory.NewOperationLog(),
		state:    memory.NewIndexState(),
		content:  memory.NewContentStore(),
		resolver: newMockResolver(testAlias, configs...),
	}
	f.auth = NewIndexAuthority(f.state, "sercha-index", testAlias)
	f.svc = NewIndexingService(f.auth, f.gateway, f.queue, f.oplog, f.content, f.resolver)
	return f
}

// serve creates the current index and points the alias at it.
func (f *indexingFixture) serve(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	current, err := f.auth.CurrentIndexName(ctx)
	require.NoError(t, err)
	require.NoError(t, f.gateway.CreateIndex(ctx, current))
	require.NoError(t, f.gateway.AttachAlias(ctx, testAlias, current))
	return current
}

func (f *indexingFixture) lastLog(t *testing.T) domain.LogEntry {
	t.Helper()
	entries, err := f.oplog.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return entries[0]
}

func (f *indexingFixture) task(t *testing.T, id string) *domain.IndexingTask {
	t.Helper()
	task, err := f.queue.Get(context.Background(), id)
	require.NoError(t, err)
	return task
}

func articleConfig() domain.CollectionIndexConfig {
	return domain.CollectionIndexConfig{
		Name:   "article",
		Fields: []domain.FieldRule{{Name: "title"}},
	}
}

func enqueue(t *testing.T, f *indexingFixture, task domain.IndexingTask) *domain.IndexingTask {
	t.Helper()
	stored, err := f.queue.Enqueue(context.Background(), task)
	require.NoError(t, err)
	return stored
}

func upsert(collection, id string) domain.IndexingTask {
	return domain.IndexingTask{Kind: domain.TaskKindItemUpsert, CollectionName: collection, ItemID: id}
}

func remove(collection, id string) domain.IndexingTask {
	return domain.IndexingTask{Kind: domain.TaskKindItemRemove, CollectionName: collection, ItemID: id}
}

// ==================== Drain Tests ====================

func TestIndexPendingData_EndToEndItemUpsert(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	f.serve(t)
	require.NoError(t, f.content.Put("article", domain.Record{"id": 42, "title": "Hello"}))
	task := enqueue(t, f, upsert("article", "42"))

	report, err := f.svc.IndexPendingData(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &domain.DrainReport{Pending: 1, Completed: 1}, report)
	require.Len(t, f.gateway.upserts, 1)
	assert.Equal(t, upsertCall{
		index: testAlias,
		id:    "article-42",
		doc:   domain.IndexedDocument{"title": "Hello"},
	}, f.gateway.upserts[0])
	assert.True(t, f.task(t, task.ID).Completed)

	entry := f.lastLog(t)
	assert.Equal(t, domain.OutcomeSuccess, entry.Outcome)
	assert.Equal(t, "Indexing of 1 records complete.", entry.Message)
}

func TestIndexPendingData_UpsertIsIdempotent(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	f.serve(t)
	require.NoError(t, f.content.Put("article", domain.Record{"id": 7, "title": "Once"}))
	ctx := context.Background()

	enqueue(t, f, upsert("article", "7"))
	_, err := f.svc.IndexPendingData(ctx)
	require.NoError(t, err)
	first := f.gateway.docs(testAlias)

	enqueue(t, f, upsert("article", "7"))
	_, err = f.svc.IndexPendingData(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, f.gateway.docs(testAlias))
	assert.Len(t, f.gateway.docs(testAlias), 1)
}

func TestIndexPendingData_RemoveIsIdempotent(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	current := f.serve(t)
	ctx := context.Background()
	require.NoError(t, f.gateway.UpsertDocument(ctx, current, "article-5", domain.IndexedDocument{"title": "x"}))

	first := enqueue(t, f, remove("article", "5"))
	_, err := f.svc.IndexPendingData(ctx)
	require.NoError(t, err)

	second := enqueue(t, f, remove("article", "5"))
	_, err = f.svc.IndexPendingData(ctx)
	require.NoError(t, err)

	assert.Empty(t, f.gateway.docs(testAlias))
	assert.True(t, f.task(t, first.ID).Completed)
	assert.True(t, f.task(t, second.ID).Completed)
	assert.Equal(t, domain.OutcomeSuccess, f.lastLog(t).Outcome)
}

func TestIndexPendingData_FullSiteTaskSupersedesSnapshot(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	require.NoError(t, f.content.Put("article", domain.Record{"id": 1, "title": "One"}))
	require.NoError(t, f.content.Put("article", domain.Record{"id": 2, "title": "Two"}))

	a := enqueue(t, f, upsert("article", "1"))
	full := enqueue(t, f, domain.IndexingTask{Kind: domain.TaskKindFullSiteReindex})
	b := enqueue(t, f, remove("article", "2"))

	report, err := f.svc.IndexPendingData(context.Background())

	require.NoError(t, err)
	assert.True(t, report.FullRebuild)
	assert.Equal(t, 3, report.Pending)
	assert.Equal(t, 3, report.Completed)
	for _, id := range []string{a.ID, full.ID, b.ID} {
		assert.True(t, f.task(t, id).Completed)
	}

	pending, _ := f.queue.Pending(context.Background())
	assert.Empty(t, pending)

	// The removal was superseded; the rebuild indexed every record.
	assert.Len(t, f.gateway.docs(testAlias), 2)
	assert.Empty(t, f.gateway.deletes)
	assert.Equal(t, msgRebuildComplete, f.lastLog(t).Message)
}

func TestIndexPendingData_FailedRebuildLeavesSnapshotPending(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	f.gateway.createErr = fmt.Errorf("%w: cluster red", domain.ErrIndexCreation)
	enqueue(t, f, upsert("article", "1"))
	enqueue(t, f, domain.IndexingTask{Kind: domain.TaskKindFullSiteReindex})

	report, err := f.svc.IndexPendingData(context.Background())

	require.ErrorIs(t, err, domain.ErrIndexCreation)
	assert.True(t, report.FullRebuild)
	assert.Equal(t, 2, report.Failed)
	pending, _ := f.queue.Pending(context.Background())
	assert.Len(t, pending, 2)

	entry := f.lastLog(t)
	assert.Equal(t, domain.OutcomeFailure, entry.Outcome)
	assert.Contains(t, entry.Message, "cluster red")
}

func TestIndexPendingData_PartialFailureSurvives(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	f.serve(t)
	for i := 1; i <= 3; i++ {
		require.NoError(t, f.content.Put("article", domain.Record{"id": i, "title": fmt.Sprintf("T%d", i)}))
	}
	t1 := enqueue(t, f, upsert("article", "1"))
	t2 := enqueue(t, f, upsert("article", "2"))
	t3 := enqueue(t, f, upsert("article", "3"))
	f.gateway.upsertErrs["article-2"] = fmt.Errorf("%w: rejected", domain.ErrIndexWrite)

	report, err := f.svc.IndexPendingData(context.Background())

	require.ErrorIs(t, err, domain.ErrIndexWrite)
	assert.Equal(t, &domain.DrainReport{Pending: 3, Completed: 2, Failed: 1}, report)
	assert.True(t, f.task(t, t1.ID).Completed)
	assert.False(t, f.task(t, t2.ID).Completed)
	assert.True(t, f.task(t, t3.ID).Completed)

	entry := f.lastLog(t)
	assert.Equal(t, domain.OutcomeFailure, entry.Outcome)
	assert.True(t, strings.HasPrefix(entry.Message, "Indexing of records failed - "))

	// A re-run retries only the failed task.
	delete(f.gateway.upsertErrs, "article-2")
	report, err = f.svc.IndexPendingData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pending)
	assert.True(t, f.task(t, t2.ID).Completed)
	assert.Equal(t, "Indexing of 1 records complete.", f.lastLog(t).Message)
}

func TestIndexPendingData_UnconfiguredCollectionIsSkipped(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	task := enqueue(t, f, upsert("page", "3"))

	report, err := f.svc.IndexPendingData(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)
	assert.True(t, f.task(t, task.ID).Completed)
	assert.Empty(t, f.gateway.upserts)
	assert.Empty(t, f.gateway.deletes)
}

func TestIndexPendingData_FreshEngineCreatesServingIndex(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	require.NoError(t, f.content.Put("article", domain.Record{"id": 42, "title": "Hello"}))
	task := enqueue(t, f, upsert("article", "42"))
	ctx := context.Background()

	report, err := f.svc.IndexPendingData(ctx)

	require.NoError(t, err)
	assert.Equal(t, &domain.DrainReport{Pending: 1, Completed: 1}, report)
	assert.True(t, f.task(t, task.ID).Completed)

	targets, _ := f.gateway.AliasTargets(ctx, testAlias)
	assert.Equal(t, []string{"sercha-index_000001"}, targets)
	assert.Equal(t, domain.IndexedDocument{"title": "Hello"}, f.gateway.docs("sercha-index_000001")["article-42"])
	assert.Equal(t, domain.OutcomeSuccess, f.lastLog(t).Outcome)
}

func TestIndexPendingData_FreshBleveEngine(t *testing.T) {
	gateway, err := bleveadapter.New(MappingSchema())
	require.NoError(t, err)
	defer gateway.Close()

	f := newIndexingFixture(articleConfig())
	f.svc = NewIndexingService(f.auth, gateway, f.queue, f.oplog, f.content, f.resolver)
	require.NoError(t, f.content.Put("article", domain.Record{"id": 42, "title": "Hello"}))
	enqueue(t, f, upsert("article", "42"))
	ctx := context.Background()

	_, err = f.svc.IndexPendingData(ctx)
	require.NoError(t, err)

	res, err := gateway.Search(ctx, testAlias, domain.SearchQuery{})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "article-42", res.Hits[0].ID)
	assert.Equal(t, "sercha-index_000001", res.Hits[0].Index)
}

func TestIndexPendingData_ServingIndexFailureKeepsTasksPending(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	f.gateway.createErr = fmt.Errorf("%w: cluster red", domain.ErrIndexCreation)
	require.NoError(t, f.content.Put("article", domain.Record{"id": 42, "title": "Hello"}))
	task := enqueue(t, f, upsert("article", "42"))

	report, err := f.svc.IndexPendingData(context.Background())

	require.ErrorIs(t, err, domain.ErrIndexCreation)
	assert.Equal(t, &domain.DrainReport{Pending: 1, Failed: 1}, report)
	assert.False(t, f.task(t, task.ID).Completed)
	assert.Empty(t, f.gateway.upserts)

	entry := f.lastLog(t)
	assert.Equal(t, domain.OutcomeFailure, entry.Outcome)
	assert.Contains(t, entry.Message, "cluster red")
}

func TestIndexPendingData_MissingRecordIsRemoved(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	current := f.serve(t)
	ctx := context.Background()
	require.NoError(t, f.gateway.UpsertDocument(ctx, current, "article-9", domain.IndexedDocument{"title": "gone"}))
	task := enqueue(t, f, upsert("article", "9"))

	_, err := f.svc.IndexPendingData(ctx)

	require.NoError(t, err)
	assert.True(t, f.task(t, task.ID).Completed)
	assert.Equal(t, []string{"article-9"}, f.gateway.deletes)
	assert.Empty(t, f.gateway.docs(testAlias))
}

func TestIndexPendingData_ContentStoreFailureKeepsTaskPending(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	f.serve(t)
	boom := errors.New("content store down")
	f.content.FailReads("article", "1", boom)
	task := enqueue(t, f, upsert("article", "1"))

	_, err := f.svc.IndexPendingData(context.Background())

	require.ErrorIs(t, err, boom)
	assert.False(t, f.task(t, task.ID).Completed)
}

func TestIndexPendingData_CollectionReindex(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	current := f.serve(t)
	require.NoError(t, f.content.Put("article", domain.Record{"id": 1, "title": "One"}))
	require.NoError(t, f.content.Put("article", domain.Record{"id": 2, "title": "Two"}))
	task := enqueue(t, f, domain.IndexingTask{Kind: domain.TaskKindCollectionReindex, CollectionName: "article"})

	_, err := f.svc.IndexPendingData(context.Background())

	require.NoError(t, err)
	assert.True(t, f.task(t, task.ID).Completed)
	for _, call := range f.gateway.upserts {
		assert.Equal(t, current, call.index)
	}
	assert.Len(t, f.gateway.docs(current), 2)
}

func TestIndexPendingData_EmptyQueue(t *testing.T) {
	f := newIndexingFixture(articleConfig())

	report, err := f.svc.IndexPendingData(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &domain.DrainReport{}, report)
	assert.Equal(t, "Indexing of 0 records complete.", f.lastLog(t).Message)
}

func TestIndexPendingData_RejectsConcurrentPass(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	f.svc.mu.Lock()
	defer f.svc.mu.Unlock()

	_, err := f.svc.IndexPendingData(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexingInProgress)

	err = f.svc.RebuildIndex(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexingInProgress)
}

// fakePassLock stands in for a lock shared with other engine processes.
type fakePassLock struct {
	held     bool
	err      error
	acquired int
	released int
}

func (l *fakePassLock) TryAcquire(_ context.Context) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	l.acquired++
	return func() {
		l.held = false
		l.released++
	}, true, nil
}

func TestIndexPendingData_PassLockHeldElsewhere(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	lock := &fakePassLock{held: true}
	f.svc.SetPassLock(lock)
	task := enqueue(t, f, upsert("article", "1"))
	ctx := context.Background()

	_, err := f.svc.IndexPendingData(ctx)
	assert.ErrorIs(t, err, domain.ErrIndexingInProgress)
	assert.ErrorIs(t, f.svc.RebuildIndex(ctx), domain.ErrIndexingInProgress)
	assert.False(t, f.task(t, task.ID).Completed)

	// The in-process guard was released.
	assert.True(t, f.svc.mu.TryLock())
	f.svc.mu.Unlock()
}

func TestIndexPendingData_PassLockReleasedAfterPass(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	lock := &fakePassLock{}
	f.svc.SetPassLock(lock)
	ctx := context.Background()

	_, err := f.svc.IndexPendingData(ctx)
	require.NoError(t, err)
	require.NoError(t, f.svc.RebuildIndex(ctx))

	assert.Equal(t, 2, lock.acquired)
	assert.Equal(t, 2, lock.released)
	assert.False(t, lock.held)
}

func TestIndexPendingData_PassLockError(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	f.svc.SetPassLock(&fakePassLock{err: fmt.Errorf("%w: db down", domain.ErrConnection)})

	_, err := f.svc.IndexPendingData(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnection)
}

// ==================== Eligibility Tests ====================

func TestRebuildIndex_DraftPublishOnlyIndexesPublished(t *testing.T) {
	cfg := articleConfig()
	cfg.DraftPublish = true
	f := newIndexingFixture(cfg)
	require.NoError(t, f.content.Put("article", domain.Record{"id": 1, "title": "Live", "publishedAt": "2024-01-01T00:00:00Z"}))
	require.NoError(t, f.content.Put("article", domain.Record{"id": 2, "title": "Draft", "publishedAt": nil}))

	require.NoError(t, f.svc.RebuildIndex(context.Background()))

	docs := f.gateway.docs(testAlias)
	assert.Contains(t, docs, "article-1")
	assert.NotContains(t, docs, "article-2")
}

func TestIndexPendingData_UnpublishedRecordIsRemoved(t *testing.T) {
	cfg := articleConfig()
	cfg.DraftPublish = true
	f := newIndexingFixture(cfg)
	current := f.serve(t)
	ctx := context.Background()
	require.NoError(t, f.gateway.UpsertDocument(ctx, current, "article-1", domain.IndexedDocument{"title": "Live"}))
	require.NoError(t, f.content.Put("article", domain.Record{"id": 1, "title": "Live", "publishedAt": nil}))
	enqueue(t, f, upsert("article", "1"))

	_, err := f.svc.IndexPendingData(ctx)

	require.NoError(t, err)
	assert.NotContains(t, f.gateway.docs(testAlias), "article-1")
}

func TestUserLinkedRecordsAreNeverIndexed(t *testing.T) {
	cfg := articleConfig()
	cfg.ExcludeUserLinked = true
	f := newIndexingFixture(cfg)
	ctx := context.Background()
	require.NoError(t, f.content.Put("article", domain.Record{"id": 1, "title": "Public"}))
	require.NoError(t, f.content.Put("article", domain.Record{"id": 2, "title": "Mine", "user": map[string]any{"id": 3}}))

	require.NoError(t, f.svc.RebuildIndex(ctx))
	enqueue(t, f, upsert("article", "2"))
	_, err := f.svc.IndexPendingData(ctx)
	require.NoError(t, err)

	docs := f.gateway.docs(testAlias)
	assert.Contains(t, docs, "article-1")
	assert.NotContains(t, docs, "article-2")
	for _, call := range f.gateway.upserts {
		assert.NotEqual(t, "article-2", call.id)
	}
}

// ==================== Rebuild Tests ====================

func TestRebuildIndex_InPlace(t *testing.T) {
	f := newIndexingFixture(articleConfig(), domain.CollectionIndexConfig{
		Name:   "category",
		Fields: []domain.FieldRule{{Name: "name", SearchFieldName: "title"}},
	})
	require.NoError(t, f.content.Put("article", domain.Record{"id": 1, "title": "A"}))
	require.NoError(t, f.content.Put("category", domain.Record{"id": 1, "name": "C"}))
	ctx := context.Background()

	require.NoError(t, f.svc.RebuildIndex(ctx))

	targets, _ := f.gateway.AliasTargets(ctx, testAlias)
	assert.Equal(t, []string{"sercha-index_000001"}, targets)

	name, ok, _ := f.state.CurrentIndexName(ctx)
	assert.True(t, ok)
	assert.Equal(t, "sercha-index_000001", name)

	docs := f.gateway.docs(testAlias)
	assert.Equal(t, domain.IndexedDocument{"title": "C"}, docs["category-1"])
	assert.Equal(t, domain.IndexedDocument{"title": "A"}, docs["article-1"])

	// The rebuild's own marker task is complete.
	tasks, _ := f.queue.List(ctx, 10)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskKindFullSiteReindex, tasks[0].Kind)
	assert.True(t, tasks[0].Completed)

	entry := f.lastLog(t)
	assert.Equal(t, domain.OutcomeSuccess, entry.Outcome)
	assert.Equal(t, "Request to immediately re-index site-wide content completed successfully.", entry.Message)
}

func TestRebuildIndex_InPlaceKeepsExistingAlias(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	current := f.serve(t)
	f.gateway.aliasErr = errors.New("alias should not move")

	require.NoError(t, f.svc.RebuildIndex(context.Background()))

	targets, _ := f.gateway.AliasTargets(context.Background(), testAlias)
	assert.Equal(t, []string{current}, targets)
}

func TestRebuildIndex_FailureIsLoggedAndReturned(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	require.NoError(t, f.content.Put("article", domain.Record{"id": 1, "title": "A"}))
	f.gateway.upsertErrs["article-1"] = fmt.Errorf("%w: mapping conflict", domain.ErrIndexWrite)

	err := f.svc.RebuildIndex(context.Background())

	require.ErrorIs(t, err, domain.ErrIndexWrite)
	entry := f.lastLog(t)
	assert.Equal(t, domain.OutcomeFailure, entry.Outcome)
	assert.Contains(t, entry.Message, "mapping conflict")

	_, ok, _ := f.state.CurrentIndexName(context.Background())
	assert.False(t, ok)
}

func TestRebuildIndex_FailedRebuildsShareOneMarker(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	require.NoError(t, f.content.Put("article", domain.Record{"id": 1, "title": "A"}))
	f.gateway.upsertErrs["article-1"] = fmt.Errorf("%w: mapping conflict", domain.ErrIndexWrite)
	ctx := context.Background()

	require.Error(t, f.svc.RebuildIndex(ctx))
	require.Error(t, f.svc.RebuildIndex(ctx))

	tasks, _ := f.queue.List(ctx, 10)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskKindFullSiteReindex, tasks[0].Kind)
	assert.False(t, tasks[0].Completed)

	delete(f.gateway.upsertErrs, "article-1")
	require.NoError(t, f.svc.RebuildIndex(ctx))

	tasks, _ = f.queue.List(ctx, 10)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Completed)
}

func TestRebuildIndex_BlueGreenReusesPendingMarker(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	f.svc.SetStrategy(domain.RebuildBlueGreen)
	marker := enqueue(t, f, domain.IndexingTask{Kind: domain.TaskKindFullSiteReindex})
	ctx := context.Background()

	require.NoError(t, f.svc.RebuildIndex(ctx))

	tasks, _ := f.queue.List(ctx, 10)
	require.Len(t, tasks, 1)
	assert.Equal(t, marker.ID, tasks[0].ID)
	assert.True(t, tasks[0].Completed)
}

func TestRebuildIndex_BlueGreenAliasAlwaysHasOneTarget(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	f.svc.SetStrategy(domain.RebuildBlueGreen)
	require.NoError(t, f.content.Put("article", domain.Record{"id": 1, "title": "A"}))
	ctx := context.Background()

	for _, want := range []string{"sercha-index_000002", "sercha-index_000003"} {
		require.NoError(t, f.svc.RebuildIndex(ctx))

		targets, err := f.gateway.AliasTargets(ctx, testAlias)
		require.NoError(t, err)
		assert.Equal(t, []string{want}, targets)

		current, err := f.auth.CurrentIndexName(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, current)
		assert.Contains(t, f.gateway.docs(testAlias), "article-1")
	}

	exists, _ := f.gateway.IndexExists(ctx, "sercha-index_000002")
	assert.False(t, exists)
	assert.Contains(t, f.gateway.deleted, "sercha-index_000002")
}

func TestRebuildIndex_BlueGreenFailureKeepsServingOldIndex(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	f.svc.SetStrategy(domain.RebuildBlueGreen)
	old := f.serve(t)
	require.NoError(t, f.content.Put("article", domain.Record{"id": 1, "title": "A"}))
	f.gateway.upsertErrs["article-1"] = fmt.Errorf("%w: rejected", domain.ErrIndexWrite)
	ctx := context.Background()

	err := f.svc.RebuildIndex(ctx)

	require.Error(t, err)
	targets, _ := f.gateway.AliasTargets(ctx, testAlias)
	assert.Equal(t, []string{old}, targets)
	exists, _ := f.gateway.IndexExists(ctx, "sercha-index_000002")
	assert.False(t, exists)
}

func TestRebuildIndex_RecordsMetrics(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	metrics := observability.NewMetrics()
	f.svc.SetMetrics(metrics)
	require.NoError(t, f.content.Put("article", domain.Record{"id": 1, "title": "A"}))

	require.NoError(t, f.svc.RebuildIndex(context.Background()))

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, fam := range families {
		names = append(names, fam.GetName())
	}
	assert.Contains(t, names, "sercha_indexsync_rebuilds_total")
	assert.Contains(t, names, "sercha_indexsync_documents_total")
}

// ==================== IndexCollection Tests ====================

func TestIndexCollection_WorkerPool(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	current := f.serve(t)
	f.svc.SetWorkers(4)
	for i := 0; i < 25; i++ {
		require.NoError(t, f.content.Put("article", domain.Record{"id": i, "title": fmt.Sprint(i)}))
	}

	n, err := f.svc.IndexCollection(context.Background(), "article", "")

	require.NoError(t, err)
	assert.Equal(t, 25, n)
	assert.Len(t, f.gateway.docs(current), 25)
}

func TestIndexCollection_FirstErrorAborts(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	f.serve(t)
	f.svc.SetWorkers(2)
	for i := 0; i < 10; i++ {
		require.NoError(t, f.content.Put("article", domain.Record{"id": i, "title": "x"}))
	}
	f.gateway.upsertErrs["article-3"] = fmt.Errorf("%w: rejected", domain.ErrIndexWrite)

	n, err := f.svc.IndexCollection(context.Background(), "article", "")

	require.ErrorIs(t, err, domain.ErrIndexWrite)
	assert.Less(t, n, 10)
}

func TestIndexCollection_ExplicitIndexAndEmptyCollection(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	ctx := context.Background()
	require.NoError(t, f.gateway.CreateIndex(ctx, "scratch"))

	n, err := f.svc.IndexCollection(ctx, "article", "scratch")

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndexCollection_UnknownCollection(t *testing.T) {
	f := newIndexingFixture(articleConfig())

	_, err := f.svc.IndexCollection(context.Background(), "page", "")

	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

// ==================== Status & Logs ====================

func TestStatus(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	current := f.serve(t)
	enqueue(t, f, upsert("article", "1"))

	status, err := f.svc.Status(context.Background())

	require.NoError(t, err)
	assert.True(t, status.Reachable)
	assert.Equal(t, current, status.Descriptor.CurrentName)
	assert.Equal(t, "sercha-index_000002", status.Descriptor.TemporaryName)
	assert.Equal(t, testAlias, status.Descriptor.AliasName)
	assert.Equal(t, []string{current}, status.AliasTargets)
	assert.Equal(t, 1, status.PendingTasks)
}

func TestStatus_Unreachable(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	f.gateway.reachable = false

	status, err := f.svc.Status(context.Background())

	require.NoError(t, err)
	assert.False(t, status.Reachable)
	assert.Nil(t, status.AliasTargets)
}

func TestLogs(t *testing.T) {
	f := newIndexingFixture(articleConfig())
	_, _ = f.svc.IndexPendingData(context.Background())
	_, _ = f.svc.IndexPendingData(context.Background())

	entries, err := f.svc.Logs(context.Background(), 1)

	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
