package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-indexsync/internal/logger"
	"github.com/custodia-labs/sercha-indexsync/internal/observability"
)

// Ensure IndexingService implements the interface.
var _ driving.IndexingService = (*IndexingService)(nil)

// Operation log messages.
const (
	msgRebuildComplete = "Request to immediately re-index site-wide content completed successfully."
	msgRebuildFailed   = "An error was encountered while trying site-wide re-indexing of content"
	msgDrainComplete   = "Indexing of %d records complete."
	msgDrainFailed     = "Indexing of records failed - %v"
)

// Document operation labels for metrics.
const (
	opUpsert = "upsert"
	opDelete = "delete"
)

// IndexingService keeps the search index consistent with the content store.
// It drains the pending-operations queue and orchestrates full rebuilds.
// At most one drain or rebuild runs at a time.
type IndexingService struct {
	authority   *IndexAuthority
	gateway     driven.SearchGateway
	queue       driven.TaskQueue
	oplog       driven.OperationLog
	content     driven.ContentStore
	collections driven.CollectionConfigResolver

	metrics  *observability.Metrics
	strategy domain.RebuildStrategy
	workers  int
	passLock driven.PassLock

	mu sync.Mutex
}

// NewIndexingService creates a new indexing service using the in-place
// rebuild strategy and a single upsert worker.
func NewIndexingService(
	authority *IndexAuthority,
	gateway driven.SearchGateway,
	queue driven.TaskQueue,
	oplog driven.OperationLog,
	content driven.ContentStore,
	collections driven.CollectionConfigResolver,
) *IndexingService {
	return &IndexingService{
		authority:   authority,
		gateway:     gateway,
		queue:       queue,
		oplog:       oplog,
		content:     content,
		collections: collections,
		strategy:    domain.RebuildInPlace,
		workers:     1,
	}
}

// SetMetrics sets the metrics sink. A nil sink disables metrics.
func (s *IndexingService) SetMetrics(m *observability.Metrics) {
	s.metrics = m
}

// SetStrategy selects the full rebuild strategy. Unknown strategies are ignored.
func (s *IndexingService) SetStrategy(strategy domain.RebuildStrategy) {
	if strategy.IsValid() {
		s.strategy = strategy
	}
}

// SetWorkers bounds the number of concurrent upserts when indexing a collection.
func (s *IndexingService) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	s.workers = n
}

// SetPassLock adds a cross-process lock taken for every drain and rebuild.
// A nil lock leaves only the in-process guard.
func (s *IndexingService) SetPassLock(l driven.PassLock) {
	s.passLock = l
}

// acquire takes the in-process guard and then the pass lock, if any. The
// returned function releases both.
func (s *IndexingService) acquire(ctx context.Context) (func(), error) {
	if !s.mu.TryLock() {
		return nil, domain.ErrIndexingInProgress
	}
	if s.passLock == nil {
		return s.mu.Unlock, nil
	}

	release, ok, err := s.passLock.TryAcquire(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("acquire pass lock: %w", err)
	}
	if !ok {
		s.mu.Unlock()
		logger.Debug("Another engine process holds the pass lock")
		return nil, domain.ErrIndexingInProgress
	}
	return func() {
		release()
		s.mu.Unlock()
	}, nil
}

// RebuildIndex re-indexes every configured collection.
func (s *IndexingService) RebuildIndex(ctx context.Context) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return s.rebuild(ctx)
}

// rebuild runs the configured strategy (caller must hold lock).
func (s *IndexingService) rebuild(ctx context.Context) (err error) {
	ctx, span := observability.StartSpan(ctx, "indexing.rebuild",
		attribute.String("strategy", string(s.strategy)))
	start := time.Now()
	defer func() {
		observability.EndSpan(span, err)
		s.metrics.RebuildObserved(string(s.strategy), observability.ResultLabel(err), time.Since(start))
	}()

	logger.Section("Full Rebuild")

	if s.strategy == domain.RebuildBlueGreen {
		err = s.rebuildBlueGreen(ctx)
	} else {
		err = s.rebuildInPlace(ctx)
	}
	if err != nil {
		s.recordFail(ctx, fmt.Sprintf("%s: %v", msgRebuildFailed, err))
		return err
	}

	s.recordPass(ctx, msgRebuildComplete)
	return nil
}

// rebuildInPlace indexes every collection straight into the current index.
func (s *IndexingService) rebuildInPlace(ctx context.Context) error {
	current, err := s.authority.CurrentIndexName(ctx)
	if err != nil {
		return err
	}
	logger.Info("Rebuilding index %s in place", current)

	if err := s.gateway.CreateIndex(ctx, current); err != nil {
		return err
	}
	if err := s.ensureAlias(ctx, current); err != nil {
		return err
	}

	marker, err := s.fullSiteMarker(ctx)
	if err != nil {
		return err
	}

	if err := s.indexAll(ctx, current); err != nil {
		return err
	}

	if err := s.queue.MarkComplete(ctx, marker.ID); err != nil {
		return fmt.Errorf("mark full-site marker complete: %w", err)
	}
	return s.authority.StoreCurrentIndexName(ctx, current)
}

// rebuildBlueGreen populates a fresh index and swaps the alias onto it.
// Readers keep seeing the old index until the swap.
func (s *IndexingService) rebuildBlueGreen(ctx context.Context) error {
	desc, err := s.authority.Descriptor(ctx)
	if err != nil {
		return err
	}
	logger.Info("Rebuilding into %s (serving %s)", desc.TemporaryName, desc.CurrentName)

	if err := s.gateway.CreateIndex(ctx, desc.TemporaryName); err != nil {
		return err
	}

	marker, err := s.fullSiteMarker(ctx)
	if err != nil {
		s.discard(ctx, desc.TemporaryName)
		return err
	}

	if err := s.indexAll(ctx, desc.TemporaryName); err != nil {
		s.discard(ctx, desc.TemporaryName)
		return err
	}

	if err := s.gateway.AttachAlias(ctx, s.aliasName(), desc.TemporaryName); err != nil {
		s.discard(ctx, desc.TemporaryName)
		return err
	}

	if err := s.queue.MarkComplete(ctx, marker.ID); err != nil {
		return fmt.Errorf("mark full-site marker complete: %w", err)
	}
	if err := s.authority.StoreCurrentIndexName(ctx, desc.TemporaryName); err != nil {
		return err
	}

	if desc.CurrentName != desc.TemporaryName {
		s.discard(ctx, desc.CurrentName)
	}
	return nil
}

// discard deletes an index, logging rather than failing.
func (s *IndexingService) discard(ctx context.Context, name string) {
	res := s.gateway.DeleteIndex(ctx, name)
	if !res.Deleted && res.Err != nil {
		logger.Warn("Could not delete index %s: %v", name, res.Err)
	}
}

// ensureServing makes sure the alias resolves to a single index before
// writes go through it. A missing alias gets the current index, created
// if needed.
func (s *IndexingService) ensureServing(ctx context.Context) error {
	targets, err := s.gateway.AliasTargets(ctx, s.aliasName())
	if err != nil {
		return err
	}
	if len(targets) == 1 {
		return nil
	}

	current, err := s.authority.CurrentIndexName(ctx)
	if err != nil {
		return err
	}
	logger.Info("Alias %s has no serving index, creating %s", s.aliasName(), current)
	if err := s.gateway.CreateIndex(ctx, current); err != nil {
		return err
	}
	return s.ensureAlias(ctx, current)
}

// fullSiteMarker returns the pending full-site task, enqueuing one when
// none is waiting. Failed rebuilds reuse it on the next attempt.
func (s *IndexingService) fullSiteMarker(ctx context.Context) (*domain.IndexingTask, error) {
	pending, err := s.queue.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("get pending tasks: %w", err)
	}
	for i := range pending {
		if pending[i].Kind == domain.TaskKindFullSiteReindex {
			return &pending[i], nil
		}
	}

	marker, err := s.queue.Enqueue(ctx, domain.IndexingTask{Kind: domain.TaskKindFullSiteReindex})
	if err != nil {
		return nil, fmt.Errorf("enqueue full-site marker: %w", err)
	}
	return marker, nil
}

// ensureAlias points the alias at index unless it already points only there.
func (s *IndexingService) ensureAlias(ctx context.Context, index string) error {
	alias := s.aliasName()
	targets, err := s.gateway.AliasTargets(ctx, alias)
	if err != nil {
		return err
	}
	if len(targets) == 1 && targets[0] == index {
		return nil
	}
	logger.Debug("Attaching alias %s to %s (was %v)", alias, index, targets)
	return s.gateway.AttachAlias(ctx, alias, index)
}

// indexAll indexes every configured collection into index.
func (s *IndexingService) indexAll(ctx context.Context, index string) error {
	total := 0
	for _, name := range s.collections.ConfiguredCollections() {
		n, err := s.indexCollection(ctx, name, index)
		if err != nil {
			return fmt.Errorf("index collection %s: %w", name, err)
		}
		total += n
	}
	logger.Info("Indexed %d records into %s", total, index)
	return nil
}

// IndexCollection indexes every eligible record of one collection.
// An empty indexName targets the current index.
func (s *IndexingService) IndexCollection(ctx context.Context, collection, indexName string) (int, error) {
	if indexName == "" {
		current, err := s.authority.CurrentIndexName(ctx)
		if err != nil {
			return 0, err
		}
		indexName = current
	}
	return s.indexCollection(ctx, collection, indexName)
}

func (s *IndexingService) indexCollection(ctx context.Context, collection, indexName string) (n int, err error) {
	ctx, span := observability.StartSpan(ctx, "indexing.collection",
		attribute.String("collection", collection),
		attribute.String("index", indexName))
	defer func() { observability.EndSpan(span, err) }()

	cfg, err := s.collections.CollectionConfig(collection)
	if err != nil {
		return 0, err
	}

	records, err := s.content.FindMany(ctx, collection, cfg.QueryOptions())
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", collection, err)
	}
	logger.Debug("Indexing %d %s records into %s", len(records), collection, indexName)

	return s.upsertAll(ctx, cfg, records, indexName)
}

// upsertAll fans record upserts out over the worker pool. The first
// failure cancels the remaining work.
func (s *IndexingService) upsertAll(
	ctx context.Context,
	cfg *domain.CollectionIndexConfig,
	records []domain.Record,
	indexName string,
) (int, error) {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		count    int
		firstErr error
	)

	jobs := make(chan domain.Record)
	for range min(s.workers, max(len(records), 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				indexed, err := s.upsertRecord(ctx, cfg, rec, indexName)
				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = err
					cancel()
				}
				if indexed {
					count++
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, rec := range records {
		select {
		case jobs <- rec:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return count, firstErr
	}
	return count, parent.Err()
}

// upsertRecord writes one record. Ineligible records are skipped.
func (s *IndexingService) upsertRecord(
	ctx context.Context,
	cfg *domain.CollectionIndexConfig,
	rec domain.Record,
	indexName string,
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !cfg.Eligible(rec) {
		return false, nil
	}
	id := domain.DocumentID(cfg.Name, rec.ID())
	err := s.gateway.UpsertDocument(ctx, indexName, id, ExtractDocument(cfg, rec))
	s.metrics.DocumentWritten(opUpsert, observability.ResultLabel(err))
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", id, err)
	}
	return true, nil
}

// IndexPendingData drains the queue. A pending full-site task triggers a
// rebuild that supersedes every task in the snapshot. Otherwise tasks are
// applied in creation order; a failed task stays pending and the pass
// carries on with the rest.
func (s *IndexingService) IndexPendingData(ctx context.Context) (report *domain.DrainReport, err error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := observability.StartSpan(ctx, "indexing.drain")
	start := time.Now()
	defer func() {
		observability.EndSpan(span, err)
		if report != nil {
			s.metrics.DrainObserved(report.Failed, time.Since(start))
		}
	}()

	logger.Section("Drain")

	tasks, err := s.queue.Pending(ctx)
	if err != nil {
		s.recordFail(ctx, fmt.Sprintf(msgDrainFailed, err))
		return nil, fmt.Errorf("get pending tasks: %w", err)
	}
	report = &domain.DrainReport{Pending: len(tasks)}
	span.SetAttributes(attribute.Int("pending", len(tasks)))

	if domain.HasFullSiteTask(tasks) {
		return s.drainWithRebuild(ctx, tasks, report)
	}

	if len(tasks) > 0 {
		if err = s.ensureServing(ctx); err != nil {
			report.Failed = len(tasks)
			s.recordFail(ctx, fmt.Sprintf(msgDrainFailed, err))
			return report, err
		}
	}

	var errs []error
	for i := range tasks {
		task := &tasks[i]
		if err := s.applyTask(ctx, task); err != nil {
			logger.Warn("Task %s (%s) failed: %v", task.ID, task.Kind, err)
			s.metrics.TaskProcessed(task.Kind.String(), observability.ResultFailure)
			errs = append(errs, fmt.Errorf("task %s: %w", task.ID, err))
			report.Failed++
			continue
		}
		if err := s.queue.MarkComplete(ctx, task.ID); err != nil {
			errs = append(errs, fmt.Errorf("mark task %s complete: %w", task.ID, err))
			report.Failed++
			continue
		}
		s.metrics.TaskProcessed(task.Kind.String(), observability.ResultSuccess)
		report.Completed++
	}

	if len(errs) > 0 {
		err = errors.Join(errs...)
		s.recordFail(ctx, fmt.Sprintf(msgDrainFailed, err))
		return report, err
	}

	s.recordPass(ctx, fmt.Sprintf(msgDrainComplete, len(tasks)))
	return report, nil
}

// drainWithRebuild rebuilds the index and then completes the whole snapshot.
// A failed rebuild leaves every task pending.
func (s *IndexingService) drainWithRebuild(
	ctx context.Context,
	tasks []domain.IndexingTask,
	report *domain.DrainReport,
) (*domain.DrainReport, error) {
	report.FullRebuild = true
	if err := s.rebuild(ctx); err != nil {
		report.Failed = len(tasks)
		return report, err
	}

	var errs []error
	for i := range tasks {
		if err := s.queue.MarkComplete(ctx, tasks[i].ID); err != nil {
			errs = append(errs, fmt.Errorf("mark task %s complete: %w", tasks[i].ID, err))
			report.Failed++
			continue
		}
		s.metrics.TaskProcessed(tasks[i].Kind.String(), observability.ResultSuccess)
		report.Completed++
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.recordFail(ctx, fmt.Sprintf(msgDrainFailed, err))
		return report, err
	}
	return report, nil
}

// applyTask performs the index change one task asks for.
func (s *IndexingService) applyTask(ctx context.Context, task *domain.IndexingTask) error {
	if !s.collections.IsConfigured(task.CollectionName) {
		logger.Debug("Skipping task %s: collection %q is not indexed", task.ID, task.CollectionName)
		return nil
	}

	switch task.Kind {
	case domain.TaskKindItemUpsert:
		return s.applyUpsert(ctx, task)
	case domain.TaskKindItemRemove:
		return s.removeDocument(ctx, domain.DocumentID(task.CollectionName, task.ItemID))
	case domain.TaskKindCollectionReindex:
		_, err := s.IndexCollection(ctx, task.CollectionName, "")
		return err
	default:
		return fmt.Errorf("%w: unexpected task kind %q", domain.ErrInvalidInput, task.Kind)
	}
}

// applyUpsert re-reads a record and writes it through the alias. A record
// that is gone or no longer eligible is removed from the index instead.
func (s *IndexingService) applyUpsert(ctx context.Context, task *domain.IndexingTask) error {
	cfg, err := s.collections.CollectionConfig(task.CollectionName)
	if err != nil {
		return err
	}
	docID := domain.DocumentID(task.CollectionName, task.ItemID)

	rec, err := s.content.FindOne(ctx, task.CollectionName, task.ItemID, cfg.Populate)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Debug("Record %s no longer exists, removing from index", docID)
		return s.removeDocument(ctx, docID)
	}
	if err != nil {
		return fmt.Errorf("fetch %s: %w", docID, err)
	}
	if !cfg.Eligible(rec) {
		logger.Debug("Record %s is not eligible, removing from index", docID)
		return s.removeDocument(ctx, docID)
	}

	err = s.gateway.UpsertDocument(ctx, s.aliasName(), docID, ExtractDocument(cfg, rec))
	s.metrics.DocumentWritten(opUpsert, observability.ResultLabel(err))
	return err
}

// removeDocument deletes a document through the alias. Missing documents are fine.
func (s *IndexingService) removeDocument(ctx context.Context, docID string) error {
	deleted, err := s.gateway.DeleteDocument(ctx, s.aliasName(), docID)
	s.metrics.DocumentWritten(opDelete, observability.ResultLabel(err))
	if err != nil {
		return err
	}
	if !deleted {
		logger.Info("Document %s was not in the index", docID)
	}
	return nil
}

// Status reports index names, alias targets and queue depth.
func (s *IndexingService) Status(ctx context.Context) (*driving.IndexStatus, error) {
	desc, err := s.authority.Descriptor(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.queue.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("get pending tasks: %w", err)
	}

	status := &driving.IndexStatus{
		Descriptor:   desc,
		Reachable:    s.gateway.Ping(ctx),
		PendingTasks: len(pending),
	}
	if status.Reachable {
		targets, err := s.gateway.AliasTargets(ctx, desc.AliasName)
		if err != nil {
			return nil, err
		}
		status.AliasTargets = targets
	}
	return status, nil
}

// Logs returns the most recent operation log entries, newest first.
func (s *IndexingService) Logs(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	return s.oplog.Recent(ctx, limit)
}

func (s *IndexingService) aliasName() string {
	return s.collections.IndexAliasName()
}

// recordPass appends a success entry. Log write failures never fail the caller.
func (s *IndexingService) recordPass(ctx context.Context, message string) {
	logger.Info("%s", message)
	s.appendLog(ctx, domain.OutcomeSuccess, message)
}

// recordFail appends a failure entry.
func (s *IndexingService) recordFail(ctx context.Context, message string) {
	logger.Error("%s", message)
	s.appendLog(ctx, domain.OutcomeFailure, message)
}

func (s *IndexingService) appendLog(ctx context.Context, outcome domain.Outcome, message string) {
	// The pass may have been cancelled; the entry should still land.
	ctx = context.WithoutCancel(ctx)
	if err := s.oplog.Append(ctx, domain.LogEntry{Outcome: outcome, Message: message}); err != nil {
		logger.Error("Could not write operation log: %v", err)
	}
}
