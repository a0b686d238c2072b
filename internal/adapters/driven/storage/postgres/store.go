// Package postgres implements the queue, operation log, index state and
// scheduler ports on PostgreSQL through the pgx database/sql driver.
//
// Use it when several engine processes share one queue; the SQLite store
// is the single-host default. Processes enqueue freely, and PassLock holds
// a session advisory lock so only one of them drains or rebuilds at a time.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/custodia-labs/sercha-indexsync/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
)

const stateKeyCurrentIndex = "current_index_name"

// passLockKey identifies the drain/rebuild advisory lock.
const passLockKey int64 = 0x7365726368610001

// Store owns the connection pool shared by every port wrapper.
type Store struct {
	db *sql.DB
}

// NewStore connects to dsn and applies pending migrations.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", domain.ErrConfiguration)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying postgres schema: %w", err)
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// TaskQueue returns a TaskQueue backed by this store.
func (s *Store) TaskQueue() driven.TaskQueue { return &taskQueue{db: s.db} }

// OperationLog returns an OperationLog backed by this store.
func (s *Store) OperationLog() driven.OperationLog { return &operationLog{db: s.db} }

// IndexState returns an IndexStateStore backed by this store.
func (s *Store) IndexState() driven.IndexStateStore { return &indexState{db: s.db} }

// SchedulerStore returns a SchedulerStore backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore { return &schedulerStore{db: s.db} }

// PassLock returns a PassLock backed by a Postgres advisory lock.
func (s *Store) PassLock() driven.PassLock { return &passLock{db: s.db} }

// ==================== Pass Lock ====================

type passLock struct {
	db *sql.DB
}

// TryAcquire pins one pooled connection for the life of the lock; advisory
// locks belong to the session that took them.
func (l *passLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}

	var ok bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, passLockKey).Scan(&ok); err != nil {
		_ = conn.Close()
		return nil, false, err
	}
	if !ok {
		_ = conn.Close()
		return nil, false, nil
	}

	release := func() {
		var unlocked bool
		err := conn.QueryRowContext(context.Background(), `SELECT pg_advisory_unlock($1)`, passLockKey).Scan(&unlocked)
		if err != nil || !unlocked {
			// Drop the session so the server frees the lock.
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
		_ = conn.Close()
	}
	return release, true, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL)`); err != nil {
		return err
	}
	files, err := listMigrationFiles(migrations.Files)
	if err != nil {
		return err
	}
	for _, file := range files {
		var applied bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, file).Scan(&applied); err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := s.applyMigration(ctx, file); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, file string) error {
	script, err := migrations.Files.ReadFile(file)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("apply migration %s: %w", file, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`, file, time.Now().UTC()); err != nil {
		return fmt.Errorf("record migration %s: %w", file, err)
	}
	return tx.Commit()
}

func listMigrationFiles(migFS fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migFS, ".")
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// ==================== Task Queue ====================

type taskQueue struct {
	db *sql.DB
}

const taskColumns = "id, kind, collection_name, item_id, created_at, completed, completed_at"

func (q *taskQueue) Enqueue(ctx context.Context, task domain.IndexingTask) (*domain.IndexingTask, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}
	task.ID = uuid.New().String()
	task.CreatedAt = time.Now().UTC()
	task.Completed = false
	task.CompletedAt = time.Time{}

	if _, err := q.db.ExecContext(ctx,
		`INSERT INTO indexing_tasks (id, kind, collection_name, item_id, created_at) VALUES ($1,$2,$3,$4,$5)`,
		task.ID, string(task.Kind), nullString(task.CollectionName), nullString(task.ItemID), task.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("inserting indexing task: %w", err)
	}
	return &task, nil
}

func (q *taskQueue) Get(ctx context.Context, id string) (*domain.IndexingTask, error) {
	task, err := scanTask(q.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM indexing_tasks WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	return task, err
}

func (q *taskQueue) Pending(ctx context.Context) ([]domain.IndexingTask, error) {
	return q.query(ctx, `SELECT `+taskColumns+` FROM indexing_tasks WHERE NOT completed ORDER BY seq ASC`)
}

func (q *taskQueue) MarkComplete(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE indexing_tasks SET completed=TRUE, completed_at=COALESCE(completed_at, $1) WHERE id=$2`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("marking task complete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking task complete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	return nil
}

func (q *taskQueue) List(ctx context.Context, limit int) ([]domain.IndexingTask, error) {
	if limit <= 0 {
		return q.query(ctx, `SELECT `+taskColumns+` FROM indexing_tasks ORDER BY seq DESC`)
	}
	return q.query(ctx, `SELECT `+taskColumns+` FROM indexing_tasks ORDER BY seq DESC LIMIT $1`, limit)
}

func (q *taskQueue) PruneCompleted(ctx context.Context, before time.Time) (int, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM indexing_tasks WHERE completed AND completed_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning tasks: %w", err)
	}
	return int(n), nil
}

func (q *taskQueue) query(ctx context.Context, query string, args ...any) ([]domain.IndexingTask, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying indexing tasks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.IndexingTask, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

// ==================== Operation Log ====================

type operationLog struct {
	db *sql.DB
}

func (l *operationLog) Append(ctx context.Context, entry domain.LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if _, err := l.db.ExecContext(ctx,
		`INSERT INTO indexing_logs (id, timestamp, outcome, message) VALUES ($1,$2,$3,$4)`,
		entry.ID, entry.Timestamp.UTC(), string(entry.Outcome), entry.Message); err != nil {
		return fmt.Errorf("appending log entry: %w", err)
	}
	return nil
}

func (l *operationLog) Recent(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	query := `SELECT id, timestamp, outcome, message FROM indexing_logs ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying log entries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.LogEntry, 0)
	for rows.Next() {
		var e domain.LogEntry
		var outcome string
		if err := rows.Scan(&e.ID, &e.Timestamp, &outcome, &e.Message); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		e.Outcome = domain.Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *operationLog) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM indexing_logs WHERE seq NOT IN (SELECT seq FROM indexing_logs ORDER BY seq DESC LIMIT $1)`,
		keep); err != nil {
		return fmt.Errorf("pruning log entries: %w", err)
	}
	return nil
}

// ==================== Index State ====================

type indexState struct {
	db *sql.DB
}

func (s *indexState) CurrentIndexName(ctx context.Context) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM index_state WHERE key=$1`, stateKeyCurrentIndex).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading index state: %w", err)
	}
	return name, true, nil
}

func (s *indexState) SetCurrentIndexName(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO index_state (key, value, updated_at) VALUES ($1,$2,$3)
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=EXCLUDED.updated_at
	`, stateKeyCurrentIndex, name, time.Now().UTC()); err != nil {
		return fmt.Errorf("writing index state: %w", err)
	}
	return nil
}

// ==================== Scheduler ====================

type schedulerStore struct {
	db *sql.DB
}

const scheduledTaskColumns = "id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled"

func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	task, err := scanScheduledTask(s.db.QueryRowContext(ctx,
		`SELECT `+scheduledTaskColumns+` FROM scheduled_tasks WHERE id=$1`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+scheduledTaskColumns+` FROM scheduled_tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled tasks: %w", err)
	}
	defer rows.Close()

	var out []domain.ScheduledTask //nolint:prealloc // size unknown from query
	for rows.Next() {
		task, err := scanScheduledTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (`+scheduledTaskColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name,
			interval_seconds=EXCLUDED.interval_seconds,
			last_run=EXCLUDED.last_run,
			next_run=EXCLUDED.next_run,
			last_error=EXCLUDED.last_error,
			last_success=EXCLUDED.last_success,
			enabled=EXCLUDED.enabled
	`, task.ID, task.Name, int64(task.Interval.Seconds()),
		nullTime(task.LastRun), nullTime(task.NextRun), nullString(task.LastError),
		nullTime(task.LastSuccess), task.Enabled); err != nil {
		return fmt.Errorf("saving scheduled task: %w", err)
	}
	return nil
}

func (s *schedulerStore) DeleteTask(ctx context.Context, taskID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id=$1`, taskID); err != nil {
		return fmt.Errorf("deleting scheduled task: %w", err)
	}
	return nil
}

func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO task_results (task_id, started_at, ended_at, success, error, items_processed)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, result.TaskID, result.StartedAt.UTC(), result.EndedAt.UTC(), result.Success,
		nullString(result.Error), result.ItemsProcessed); err != nil {
		return fmt.Errorf("recording task result: %w", err)
	}
	return nil
}

func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	query := `SELECT task_id, started_at, ended_at, success, error, items_processed
		FROM task_results WHERE task_id=$1 ORDER BY started_at DESC, id DESC`
	args := []any{taskID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying task history: %w", err)
	}
	defer rows.Close()

	var out []domain.TaskResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.TaskResult
		var errMsg sql.NullString
		if err := rows.Scan(&r.TaskID, &r.StartedAt, &r.EndedAt, &r.Success, &errMsg, &r.ItemsProcessed); err != nil {
			return nil, fmt.Errorf("scanning task result: %w", err)
		}
		r.Error = errMsg.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM task_results
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS rn
				FROM task_results
			) ranked WHERE rn <= $1
		)
	`, keep); err != nil {
		return fmt.Errorf("pruning task history: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*domain.IndexingTask, error) {
	var t domain.IndexingTask
	var kind string
	var collection, itemID sql.NullString
	var completedAt sql.NullTime
	if err := row.Scan(&t.ID, &kind, &collection, &itemID, &t.CreatedAt, &t.Completed, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning indexing task: %w", err)
	}
	t.Kind = domain.TaskKind(kind)
	t.CollectionName = collection.String
	t.ItemID = itemID.String
	if completedAt.Valid {
		t.CompletedAt = completedAt.Time
	}
	return &t, nil
}

func scanScheduledTask(row scanner) (*domain.ScheduledTask, error) {
	var t domain.ScheduledTask
	var intervalSeconds int64
	var lastRun, nextRun, lastSuccess sql.NullTime
	var lastError sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &intervalSeconds, &lastRun, &nextRun, &lastError, &lastSuccess, &t.Enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning scheduled task: %w", err)
	}
	t.Interval = time.Duration(intervalSeconds) * time.Second
	t.LastRun = lastRun.Time
	t.NextRun = nextRun.Time
	t.LastError = lastError.String
	t.LastSuccess = lastSuccess.Time
	return &t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

var (
	_ driven.TaskQueue       = (*taskQueue)(nil)
	_ driven.OperationLog    = (*operationLog)(nil)
	_ driven.IndexStateStore = (*indexState)(nil)
	_ driven.SchedulerStore  = (*schedulerStore)(nil)
)
