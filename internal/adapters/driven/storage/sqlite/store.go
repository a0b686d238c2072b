package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-indexsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
)

// timeLayout is a fixed-width UTC layout, so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// stateKeyCurrentIndex is the index_state key holding the current index name.
const stateKeyCurrentIndex = "current_index_name"

// Store is a unified SQLite-based storage that provides access to
// all persistence ports through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.sercha-indexsync/data/indexsync.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".sercha-indexsync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "indexsync.db")

	// WAL lets the webhook enqueue while a drain is reading.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// TaskQueue returns a TaskQueue backed by this store.
func (s *Store) TaskQueue() driven.TaskQueue {
	return &taskQueue{store: s}
}

// OperationLog returns an OperationLog backed by this store.
func (s *Store) OperationLog() driven.OperationLog {
	return &operationLog{store: s}
}

// IndexState returns an IndexStateStore backed by this store.
func (s *Store) IndexState() driven.IndexStateStore {
	return &indexState{store: s}
}

// SchedulerStore returns a SchedulerStore backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations, recording each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ==================== Task Queue ====================

// taskQueue implements driven.TaskQueue.
type taskQueue struct {
	store *Store
}

var _ driven.TaskQueue = (*taskQueue)(nil)

const taskColumns = "id, kind, collection_name, item_id, created_at, completed, completed_at"

// Enqueue stores a new pending task.
func (q *taskQueue) Enqueue(ctx context.Context, task domain.IndexingTask) (*domain.IndexingTask, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}

	task.ID = uuid.New().String()
	task.CreatedAt = time.Now().UTC()
	task.Completed = false
	task.CompletedAt = time.Time{}

	_, err := q.store.db.ExecContext(ctx, `
		INSERT INTO indexing_tasks (id, kind, collection_name, item_id, created_at, completed)
		VALUES (?, ?, ?, ?, ?, 0)
	`, task.ID, string(task.Kind), nullString(task.CollectionName), nullString(task.ItemID),
		formatTime(task.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting indexing task: %w", err)
	}
	return &task, nil
}

// Get retrieves a task by ID.
func (q *taskQueue) Get(ctx context.Context, id string) (*domain.IndexingTask, error) {
	row := q.store.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM indexing_tasks WHERE id = ?", id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	return task, err
}

// Pending returns incomplete tasks in enqueue order.
func (q *taskQueue) Pending(ctx context.Context) ([]domain.IndexingTask, error) {
	return q.query(ctx,
		"SELECT "+taskColumns+" FROM indexing_tasks WHERE completed = 0 ORDER BY seq ASC")
}

// MarkComplete flags a task completed. Repeated calls keep the first completion time.
func (q *taskQueue) MarkComplete(ctx context.Context, id string) error {
	res, err := q.store.db.ExecContext(ctx, `
		UPDATE indexing_tasks
		SET completed = 1, completed_at = COALESCE(completed_at, ?)
		WHERE id = ?
	`, formatTime(time.Now()), id)
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

// List returns up to limit tasks, newest first.
func (q *taskQueue) List(ctx context.Context, limit int) ([]domain.IndexingTask, error) {
	if limit <= 0 {
		limit = -1
	}
	return q.query(ctx,
		"SELECT "+taskColumns+" FROM indexing_tasks ORDER BY seq DESC LIMIT ?", limit)
}

// PruneCompleted deletes completed tasks finished before the cutoff.
func (q *taskQueue) PruneCompleted(ctx context.Context, before time.Time) (int, error) {
	res, err := q.store.db.ExecContext(ctx,
		"DELETE FROM indexing_tasks WHERE completed = 1 AND completed_at < ?", formatTime(before))
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
	rows, err := q.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying indexing tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]domain.IndexingTask, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating indexing tasks: %w", err)
	}
	return tasks, nil
}

// ==================== Operation Log ====================

// operationLog implements driven.OperationLog.
type operationLog struct {
	store *Store
}

var _ driven.OperationLog = (*operationLog)(nil)

// Append records an entry, assigning an ID and timestamp when missing.
func (l *operationLog) Append(ctx context.Context, entry domain.LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO indexing_logs (id, timestamp, outcome, message) VALUES (?, ?, ?, ?)
	`, entry.ID, formatTime(entry.Timestamp), string(entry.Outcome), entry.Message)
	if err != nil {
		return fmt.Errorf("appending log entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *operationLog) Recent(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT id, timestamp, outcome, message FROM indexing_logs ORDER BY seq DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying log entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LogEntry, 0)
	for rows.Next() {
		var entry domain.LogEntry
		var ts, outcome string
		if err := rows.Scan(&entry.ID, &ts, &outcome, &entry.Message); err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		entry.Timestamp = parseTime(ts)
		entry.Outcome = domain.Outcome(outcome)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating log entries: %w", err)
	}
	return entries, nil
}

// Prune keeps only the newest keep entries.
func (l *operationLog) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := l.store.db.ExecContext(ctx, `
		DELETE FROM indexing_logs
		WHERE seq NOT IN (SELECT seq FROM indexing_logs ORDER BY seq DESC LIMIT ?)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning log entries: %w", err)
	}
	return nil
}

// ==================== Index State ====================

// indexState implements driven.IndexStateStore.
type indexState struct {
	store *Store
}

var _ driven.IndexStateStore = (*indexState)(nil)

// CurrentIndexName returns the stored name and whether one was stored.
func (s *indexState) CurrentIndexName(ctx context.Context) (string, bool, error) {
	var name string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT value FROM index_state WHERE key = ?", stateKeyCurrentIndex).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading index state: %w", err)
	}
	return name, true, nil
}

// SetCurrentIndexName stores the current index name.
func (s *indexState) SetCurrentIndexName(ctx context.Context, name string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO index_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, stateKeyCurrentIndex, name, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("writing index state: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*domain.IndexingTask, error) {
	var task domain.IndexingTask
	var kind, createdAt string
	var collection, itemID, completedAt sql.NullString
	var completed int

	if err := row.Scan(&task.ID, &kind, &collection, &itemID, &createdAt, &completed, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning indexing task: %w", err)
	}

	task.Kind = domain.TaskKind(kind)
	task.CollectionName = collection.String
	task.ItemID = itemID.String
	task.CreatedAt = parseTime(createdAt)
	task.Completed = completed == 1
	task.CompletedAt = parseNullableTime(completedAt)
	return &task, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
