package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
)

// --- Mock implementations for indexing tests ---

// upsertCall records one UpsertDocument call.
type upsertCall struct {
	index string
	id    string
	doc   domain.IndexedDocument
}

// mockGateway implements driven.SearchGateway over in-memory maps.
// Writes to an alias resolve to its single target.
type mockGateway struct {
	mu      sync.Mutex
	indices map[string]map[string]domain.IndexedDocument
	aliases map[string][]string

	upserts []upsertCall
	deletes []string
	deleted []string

	createErr  error
	aliasErr   error
	upsertErrs map[string]error
	deleteErrs map[string]error
	reachable  bool
	searched   []domain.SearchQuery
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		indices:    make(map[string]map[string]domain.IndexedDocument),
		aliases:    make(map[string][]string),
		upsertErrs: make(map[string]error),
		deleteErrs: make(map[string]error),
		reachable:  true,
	}
}

func (m *mockGateway) Ping(_ context.Context) bool {
	return m.reachable
}

func (m *mockGateway) IndexExists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.indices[name]
	return ok, nil
}

func (m *mockGateway) CreateIndex(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.indices[name]; !ok {
		m.indices[name] = make(map[string]domain.IndexedDocument)
	}
	return nil
}

func (m *mockGateway) DeleteIndex(_ context.Context, name string) domain.CleanupResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indices[name]; !ok {
		return domain.CleanupResult{Index: name, Err: domain.ErrNotFound}
	}
	delete(m.indices, name)
	m.deleted = append(m.deleted, name)
	for alias, targets := range m.aliases {
		kept := targets[:0]
		for _, t := range targets {
			if t != name {
				kept = append(kept, t)
			}
		}
		m.aliases[alias] = kept
	}
	return domain.CleanupResult{Index: name, Deleted: true}
}

func (m *mockGateway) AttachAlias(_ context.Context, alias, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.aliasErr != nil {
		return m.aliasErr
	}
	if _, ok := m.indices[target]; !ok {
		m.indices[target] = make(map[string]domain.IndexedDocument)
	}
	m.aliases[alias] = []string{target}
	return nil
}

func (m *mockGateway) AliasTargets(_ context.Context, alias string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.aliases[alias]...), nil
}

// resolve maps an alias to its only target (caller must hold lock).
func (m *mockGateway) resolve(name string) (string, error) {
	if targets, ok := m.aliases[name]; ok {
		if len(targets) != 1 {
			return "", fmt.Errorf("%w: alias %s has %d targets", domain.ErrIndexWrite, name, len(targets))
		}
		return targets[0], nil
	}
	if _, ok := m.indices[name]; !ok {
		return "", fmt.Errorf("%w: no such index %s", domain.ErrIndexWrite, name)
	}
	return name, nil
}

func (m *mockGateway) UpsertDocument(_ context.Context, index, id string, doc domain.IndexedDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, upsertCall{index: index, id: id, doc: doc})
	if err := m.upsertErrs[id]; err != nil {
		return err
	}
	target, err := m.resolve(index)
	if err != nil {
		return err
	}
	m.indices[target][id] = doc
	return nil
}

func (m *mockGateway) DeleteDocument(_ context.Context, index, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, id)
	if err := m.deleteErrs[id]; err != nil {
		return false, err
	}
	target, err := m.resolve(index)
	if err != nil {
		return false, err
	}
	if _, ok := m.indices[target][id]; !ok {
		return false, nil
	}
	delete(m.indices[target], id)
	return true, nil
}

func (m *mockGateway) Search(_ context.Context, index string, query domain.SearchQuery) (*domain.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searched = append(m.searched, query)
	target, err := m.resolve(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrQuery, err)
	}
	ids := make([]string, 0, len(m.indices[target]))
	for id := range m.indices[target] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	res := &domain.SearchResult{Total: int64(len(ids))}
	for _, id := range ids {
		res.Hits = append(res.Hits, domain.SearchHit{ID: id, Index: target, Source: m.indices[target][id]})
	}
	return res, nil
}

func (m *mockGateway) Close() error {
	return nil
}

// docs returns a copy of the documents behind an index or alias.
func (m *mockGateway) docs(name string) map[string]domain.IndexedDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, err := m.resolve(name)
	if err != nil {
		return nil
	}
	out := make(map[string]domain.IndexedDocument, len(m.indices[target]))
	for k, v := range m.indices[target] {
		out[k] = v
	}
	return out
}

// mockResolver implements driven.CollectionConfigResolver from a map.
type mockResolver struct {
	alias   string
	configs map[string]domain.CollectionIndexConfig
}

func newMockResolver(alias string, configs ...domain.CollectionIndexConfig) *mockResolver {
	r := &mockResolver{alias: alias, configs: make(map[string]domain.CollectionIndexConfig)}
	for _, c := range configs {
		r.configs[c.Name] = c
	}
	return r
}

func (r *mockResolver) IsConfigured(name string) bool {
	_, ok := r.configs[name]
	return ok
}

func (r *mockResolver) CollectionConfig(name string) (*domain.CollectionIndexConfig, error) {
	cfg, ok := r.configs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrConfiguration, name)
	}
	return &cfg, nil
}

func (r *mockResolver) ConfiguredCollections() []string {
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *mockResolver) IndexAliasName() string {
	return r.alias
}

// Ensure mocks implement interfaces
var _ driven.SearchGateway = (*mockGateway)(nil)
var _ driven.CollectionConfigResolver = (*mockResolver)(nil)
