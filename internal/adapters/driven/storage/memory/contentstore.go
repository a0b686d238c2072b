package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
)

// Ensure ContentStore implements the interface.
var _ driven.ContentStore = (*ContentStore)(nil)

// ContentStore is an in-memory implementation of driven.ContentStore.
// It applies null-check filters and sorts like the remote API does; relation
// population is a no-op because records are stored already populated.
type ContentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]domain.Record
	findErr     map[string]error
}

// NewContentStore creates an empty content store.
func NewContentStore() *ContentStore {
	return &ContentStore{
		collections: make(map[string]map[string]domain.Record),
		findErr:     make(map[string]error),
	}
}

// Put stores or replaces a record. The record must carry an id.
func (s *ContentStore) Put(collection string, rec domain.Record) error {
	id := rec.ID()
	if id == "" {
		return fmt.Errorf("%w: record without id", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]domain.Record)
	}
	s.collections[collection][id] = rec
	return nil
}

// Delete removes a record.
func (s *ContentStore) Delete(collection, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
}

// FailReads makes reads of a record (or of a whole collection, with an
// empty id) return err until cleared with a nil err.
func (s *ContentStore) FailReads(collection, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := collection + "/" + id
	if err == nil {
		delete(s.findErr, key)
		return
	}
	s.findErr[key] = err
}

// FindMany returns the records of a collection matching opts.
func (s *ContentStore) FindMany(_ context.Context, collection string, opts domain.QueryOptions) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.findErr[collection+"/"]; err != nil {
		return nil, err
	}

	out := make([]domain.Record, 0, len(s.collections[collection]))
	for _, rec := range s.collections[collection] {
		if matches(rec, opts.Filters) {
			out = append(out, rec)
		}
	}
	sortRecords(out, opts.Sort)
	return out, nil
}

// FindOne returns one record or domain.ErrNotFound.
func (s *ContentStore) FindOne(_ context.Context, collection, id string, _ []string) (domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.findErr[collection+"/"+id]; err != nil {
		return nil, err
	}
	rec, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrNotFound, collection, id)
	}
	return rec, nil
}

func matches(rec domain.Record, filters []domain.Filter) bool {
	for _, f := range filters {
		isNull := rec[f.Field] == nil
		switch f.Op {
		case domain.FilterNull:
			if !isNull {
				return false
			}
		case domain.FilterNotNull:
			if isNull {
				return false
			}
		}
	}
	return true
}

// sortRecords orders by the given fields, then by id for a stable result.
// Values compare by their formatted string, which orders RFC 3339 timestamps correctly.
func sortRecords(recs []domain.Record, fields []domain.SortField) {
	sort.SliceStable(recs, func(i, j int) bool {
		for _, f := range fields {
			a, b := fmt.Sprint(recs[i][f.Field]), fmt.Sprint(recs[j][f.Field])
			if a == b {
				continue
			}
			if f.Descending {
				return a > b
			}
			return a < b
		}
		return recs[i].ID() < recs[j].ID()
	})
}
