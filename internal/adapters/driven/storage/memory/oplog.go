package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
)

// Ensure OperationLog implements the interface.
var _ driven.OperationLog = (*OperationLog)(nil)

// OperationLog is an in-memory implementation of driven.OperationLog.
type OperationLog struct {
	mu      sync.RWMutex
	entries []domain.LogEntry
}

// NewOperationLog creates a new in-memory operation log.
func NewOperationLog() *OperationLog {
	return &OperationLog{}
}

// Append records an entry, assigning an ID and timestamp when missing.
func (l *OperationLog) Append(_ context.Context, entry domain.LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *OperationLog) Recent(_ context.Context, limit int) ([]domain.LogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]domain.LogEntry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}

// Prune keeps only the newest keep entries.
func (l *OperationLog) Prune(_ context.Context, keep int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if keep < 0 {
		keep = 0
	}
	if len(l.entries) > keep {
		l.entries = append([]domain.LogEntry(nil), l.entries[len(l.entries)-keep:]...)
	}
	return nil
}
