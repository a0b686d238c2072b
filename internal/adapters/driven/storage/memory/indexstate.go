package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
)

// Ensure IndexState implements the interface.
var _ driven.IndexStateStore = (*IndexState)(nil)

// IndexState is an in-memory implementation of driven.IndexStateStore.
type IndexState struct {
	mu      sync.RWMutex
	current string
}

// NewIndexState creates an empty index state.
func NewIndexState() *IndexState {
	return &IndexState{}
}

// CurrentIndexName returns the stored name and whether one was stored.
func (s *IndexState) CurrentIndexName(_ context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != "", nil
}

// SetCurrentIndexName stores the current index name.
func (s *IndexState) SetCurrentIndexName(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = name
	return nil
}
