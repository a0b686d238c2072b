// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. It implements multiple store interfaces through a single database connection:
//
//   - TaskQueue: Durable queue of pending indexing tasks
//   - OperationLog: Pass/fail log of indexing operations
//   - IndexStateStore: Name of the index currently behind the alias
//   - SchedulerStore: Scheduled task state and run history
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each applied version is recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-indexsync/data/indexsync.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The database runs in WAL mode
// with a busy timeout so enqueues from the webhook do not fail during a drain.
package sqlite
