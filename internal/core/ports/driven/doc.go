// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - SearchGateway: Index lifecycle, alias and document operations
//   - TaskQueue: Durable queue of pending indexing tasks
//   - OperationLog: Append-only pass/fail log
//   - IndexStateStore: The persisted current index name
//   - ContentStore: Record queries against the content API
//   - CollectionConfigResolver: Per-collection indexing rules
//   - ConfigStore: Application configuration
//   - SchedulerStore: Scheduler state and run history
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
