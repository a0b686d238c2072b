// Package bleve implements driven.SearchGateway on in-memory Bleve indices.
//
// It is the engine.backend = "bleve" choice for local runs and demos: no
// cluster is needed, and nothing survives a restart. Aliases are
// bleve.IndexAlias values, so searches through an alias behave like
// Elasticsearch alias reads.
package bleve

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexsync/internal/logger"
)

// Ensure Gateway implements the interface.
var _ driven.SearchGateway = (*Gateway)(nil)

// memIndex pairs a Bleve index with the documents it holds, which serve as
// the _source of hits.
type memIndex struct {
	index bleve.Index
	docs  map[string]domain.IndexedDocument
}

type alias struct {
	index   bleve.IndexAlias
	targets []string
}

// Gateway keeps every index in process memory.
type Gateway struct {
	mu      sync.RWMutex
	mapping domain.IndexMapping
	indices map[string]*memIndex
	aliases map[string]*alias
	closed  bool
	log     *logrus.Entry
}

// New creates a gateway that applies mapping to every index it creates.
// The mapping is translated once to validate it.
func New(mapping domain.IndexMapping) (*Gateway, error) {
	if _, err := buildIndexMapping(mapping); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return &Gateway{
		mapping: mapping,
		indices: make(map[string]*memIndex),
		aliases: make(map[string]*alias),
		log:     logger.For("bleve"),
	}, nil
}

// Ping reports whether the gateway is open.
func (g *Gateway) Ping(_ context.Context) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return !g.closed
}

// IndexExists reports whether a concrete index exists.
func (g *Gateway) IndexExists(_ context.Context, name string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return false, fmt.Errorf("%w: gateway closed", domain.ErrConnection)
	}
	_, ok := g.indices[name]
	return ok, nil
}

// CreateIndex creates the index unless it already exists.
func (g *Gateway) CreateIndex(_ context.Context, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createLocked(name)
}

func (g *Gateway) createLocked(name string) error {
	if g.closed {
		return fmt.Errorf("%w: gateway closed", domain.ErrConnection)
	}
	if _, ok := g.indices[name]; ok {
		return nil
	}
	if _, ok := g.aliases[name]; ok {
		return fmt.Errorf("%w: %s is an alias", domain.ErrIndexCreation, name)
	}

	im, err := buildIndexMapping(g.mapping)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexCreation, err)
	}
	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexCreation, err)
	}
	idx.SetName(name)

	g.indices[name] = &memIndex{index: idx, docs: make(map[string]domain.IndexedDocument)}
	g.log.WithField("index", name).Info("search index created")
	return nil
}

// DeleteIndex removes an index and detaches it from every alias.
func (g *Gateway) DeleteIndex(_ context.Context, name string) domain.CleanupResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := domain.CleanupResult{Index: name}
	mi, ok := g.indices[name]
	if !ok {
		result.Err = fmt.Errorf("%w: index %s", domain.ErrNotFound, name)
		g.log.WithError(result.Err).Warn("error while deleting index")
		return result
	}

	for _, a := range g.aliases {
		if remaining := without(a.targets, name); len(remaining) != len(a.targets) {
			a.index.Remove(mi.index)
			a.targets = remaining
		}
	}
	delete(g.indices, name)
	if err := mi.index.Close(); err != nil {
		g.log.WithError(err).WithField("index", name).Warn("closing deleted index")
	}
	result.Deleted = true
	return result
}

// AttachAlias points name at target alone, creating target when missing.
func (g *Gateway) AttachAlias(_ context.Context, name, target string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.indices[name]; ok {
		return fmt.Errorf("%w: an index named %s exists", domain.ErrAlias, name)
	}
	if err := g.createLocked(target); err != nil {
		return err
	}
	in := []bleve.Index{g.indices[target].index}

	a, ok := g.aliases[name]
	if !ok {
		g.aliases[name] = &alias{index: bleve.NewIndexAlias(in...), targets: []string{target}}
		return nil
	}

	out := make([]bleve.Index, 0, len(a.targets))
	for _, t := range a.targets {
		if mi, ok := g.indices[t]; ok && t != target {
			out = append(out, mi.index)
		}
	}
	a.index.Swap(in, out)
	a.targets = []string{target}
	g.log.WithFields(logrus.Fields{"alias": name, "index": target}).Info("alias attached")
	return nil
}

// AliasTargets returns the indices alias resolves to.
func (g *Gateway) AliasTargets(_ context.Context, name string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.aliases[name]
	if !ok {
		return nil, nil
	}
	return append([]string(nil), a.targets...), nil
}

// writeTarget resolves an index or single-target alias (caller must hold lock).
func (g *Gateway) writeTarget(name string) (*memIndex, error) {
	if g.closed {
		return nil, fmt.Errorf("%w: gateway closed", domain.ErrConnection)
	}
	if a, ok := g.aliases[name]; ok {
		if len(a.targets) != 1 {
			return nil, fmt.Errorf("%w: alias %s points at %d indices", domain.ErrIndexWrite, name, len(a.targets))
		}
		name = a.targets[0]
	}
	mi, ok := g.indices[name]
	if !ok {
		return nil, fmt.Errorf("%w: no such index %s", domain.ErrIndexWrite, name)
	}
	return mi, nil
}

// UpsertDocument indexes doc under id. Bleve memory indices are searchable
// immediately, so no refresh is needed.
func (g *Gateway) UpsertDocument(_ context.Context, index, id string, doc domain.IndexedDocument) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	mi, err := g.writeTarget(index)
	if err != nil {
		return err
	}
	if err := mi.index.Index(id, map[string]any(doc)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
	}
	mi.docs[id] = doc
	return nil
}

// DeleteDocument removes id. A missing document returns false and no error.
func (g *Gateway) DeleteDocument(_ context.Context, index, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	mi, err := g.writeTarget(index)
	if err != nil {
		return false, err
	}
	if _, ok := mi.docs[id]; !ok {
		g.log.WithField("id", id).Info("the entry to be removed from the index already does not exist")
		return false, nil
	}
	if err := mi.index.Delete(id); err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
	}
	delete(mi.docs, id)
	return true, nil
}

// Search matches Text against Fields. A Body with a "query" key is parsed
// as a Bleve JSON query instead.
func (g *Gateway) Search(ctx context.Context, index string, q domain.SearchQuery) (*domain.SearchResult, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return nil, fmt.Errorf("%w: gateway closed", domain.ErrConnection)
	}

	var searcher interface {
		SearchInContext(context.Context, *bleve.SearchRequest) (*bleve.SearchResult, error)
	}
	if a, ok := g.aliases[index]; ok {
		searcher = a.index
	} else if mi, ok := g.indices[index]; ok {
		searcher = mi.index
	} else {
		return nil, fmt.Errorf("%w: no such index or alias %s", domain.ErrQuery, index)
	}

	bq, err := buildQuery(q)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrQuery, err)
	}
	size := q.Size
	if size <= 0 {
		size = 10
	}
	req := bleve.NewSearchRequestOptions(bq, size, q.From, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := searcher.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrQuery, err)
	}

	out := &domain.SearchResult{Total: int64(res.Total)}
	for _, hit := range res.Hits {
		h := domain.SearchHit{ID: hit.ID, Index: hit.Index, Score: hit.Score}
		if mi, ok := g.indices[hit.Index]; ok {
			h.Source = mi.docs[hit.ID]
		}
		out.Hits = append(out.Hits, h)
	}
	return out, nil
}

func buildQuery(q domain.SearchQuery) (query.Query, error) {
	if raw, ok := q.Body["query"]; ok {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		return query.ParseQuery(data)
	}
	if q.Text == "" {
		return bleve.NewMatchAllQuery(), nil
	}
	if len(q.Fields) == 0 {
		return bleve.NewMatchQuery(q.Text), nil
	}
	disjuncts := make([]query.Query, 0, len(q.Fields))
	for _, f := range q.Fields {
		mq := bleve.NewMatchQuery(q.Text)
		mq.SetField(f)
		disjuncts = append(disjuncts, mq)
	}
	return bleve.NewDisjunctionQuery(disjuncts...), nil
}

// Close closes every index.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true

	names := make([]string, 0, len(g.indices))
	for name := range g.indices {
		names = append(names, name)
	}
	sort.Strings(names)

	var firstErr error
	for _, name := range names {
		if err := g.indices[name].index.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func without(list []string, name string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != name {
			out = append(out, v)
		}
	}
	return out
}
