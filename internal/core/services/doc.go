// Package services implements the driving port interfaces.
//
// IndexingService is the reconciliation engine: it drains the queue of
// pending indexing tasks and rebuilds the search index. IndexAuthority names
// indices and owns the mapping they are created with. QueueService,
// SearchService, SettingsService and Scheduler are thin services around the
// driven ports.
package services
