package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexsync/internal/logger"
)

// Ensure CollectionResolver implements the interface.
var _ driven.CollectionConfigResolver = (*CollectionResolver)(nil)

// collectionsFile is the on-disk layout of collections.toml:
//
//	[collections.article]
//	draft_publish = true
//	populate = ["categories"]
//
//	[[collections.article.fields]]
//	name = "title"
//
//	[[collections.article.fields]]
//	name = "categories"
//	subfields = ["name"]
type collectionsFile struct {
	Collections map[string]collectionEntry `toml:"collections"`
}

type collectionEntry struct {
	DraftPublish      bool         `toml:"draft_publish"`
	ExcludeUserLinked bool         `toml:"exclude_user_linked"`
	Populate          []string     `toml:"populate"`
	Fields            []fieldEntry `toml:"fields"`
}

type fieldEntry struct {
	Name            string   `toml:"name"`
	SearchFieldName string   `toml:"search_field_name"`
	Subfields       []string `toml:"subfields"`
}

// CollectionResolver serves per-collection indexing rules read from a TOML
// file. Watch reloads the file when it changes; a file that fails to parse
// leaves the previous rules in place.
type CollectionResolver struct {
	mu      sync.RWMutex
	path    string
	alias   string
	configs map[string]domain.CollectionIndexConfig
}

// NewCollectionResolver loads the collection file at path. A missing file
// yields a resolver with no configured collections.
func NewCollectionResolver(path, alias string) (*CollectionResolver, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving collections path: %w", err)
	}
	r := &CollectionResolver{
		path:    abs,
		alias:   alias,
		configs: make(map[string]domain.CollectionIndexConfig),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the absolute path of the collection file.
func (r *CollectionResolver) Path() string {
	return r.path
}

// Reload re-reads the collection file. Once collections are configured, a
// missing or empty file is rejected and the previous rules stay.
func (r *CollectionResolver) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if n := r.count(); n > 0 {
				return fmt.Errorf("%w: collections file %s is missing, keeping %d collections",
					domain.ErrConfiguration, r.path, n)
			}
			logger.Warn("collections file %s not found, no collections configured", r.path)
			r.swap(make(map[string]domain.CollectionIndexConfig))
			return nil
		}
		return fmt.Errorf("reading collections file: %w", err)
	}

	configs, err := parseCollections(data)
	if err != nil {
		return err
	}
	if n := r.count(); len(configs) == 0 && n > 0 {
		return fmt.Errorf("%w: collections file %s configures no collections, keeping %d",
			domain.ErrConfiguration, r.path, n)
	}
	r.swap(configs)
	logger.Debug("loaded %d collection configs from %s", len(configs), r.path)
	return nil
}

func (r *CollectionResolver) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.configs)
}

func (r *CollectionResolver) swap(configs map[string]domain.CollectionIndexConfig) {
	r.mu.Lock()
	r.configs = configs
	r.mu.Unlock()
}

// parseCollections decodes and validates a collection file.
func parseCollections(data []byte) (map[string]domain.CollectionIndexConfig, error) {
	var file collectionsFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parsing collections file: %w", domain.ErrConfiguration, err)
	}

	configs := make(map[string]domain.CollectionIndexConfig, len(file.Collections))
	for name, entry := range file.Collections {
		if len(entry.Fields) == 0 {
			return nil, fmt.Errorf("%w: collection %s has no fields", domain.ErrConfiguration, name)
		}
		cfg := domain.CollectionIndexConfig{
			Name:              name,
			DraftPublish:      entry.DraftPublish,
			ExcludeUserLinked: entry.ExcludeUserLinked,
			Populate:          entry.Populate,
			Fields:            make([]domain.FieldRule, 0, len(entry.Fields)),
		}
		seen := make(map[string]bool, len(entry.Fields))
		for _, f := range entry.Fields {
			if f.Name == "" {
				return nil, fmt.Errorf("%w: collection %s has a field without a name", domain.ErrConfiguration, name)
			}
			rule := domain.FieldRule{Name: f.Name, SearchFieldName: f.SearchFieldName, Subfields: f.Subfields}
			if seen[rule.TargetName()] {
				return nil, fmt.Errorf("%w: collection %s maps two fields to %s",
					domain.ErrConfiguration, name, rule.TargetName())
			}
			seen[rule.TargetName()] = true
			cfg.Fields = append(cfg.Fields, rule)
		}
		configs[name] = cfg
	}
	return configs, nil
}

// IsConfigured reports whether the collection is indexed.
func (r *CollectionResolver) IsConfigured(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.configs[name]
	return ok
}

// CollectionConfig returns a copy of the rules for a collection.
func (r *CollectionResolver) CollectionConfig(name string) (*domain.CollectionIndexConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[name]
	if !ok {
		return nil, fmt.Errorf("%w: collection %s is not configured for indexing", domain.ErrConfiguration, name)
	}
	return &cfg, nil
}

// ConfiguredCollections returns the indexed collection names, sorted.
func (r *CollectionResolver) ConfiguredCollections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IndexAliasName returns the alias readers and writers use.
func (r *CollectionResolver) IndexAliasName() string {
	return r.alias
}

// Watch reloads the file whenever it is written, created or replaced, until
// ctx is cancelled. The parent directory is watched so editors that save by
// rename are picked up.
func (r *CollectionResolver) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(r.path), err)
	}

	log := logger.For("collections")
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !r.shouldReload(event) {
					continue
				}
				if err := r.Reload(); err != nil {
					log.WithError(err).Warn("keeping previous collection configs")
					continue
				}
				log.WithField("collections", r.ConfiguredCollections()).Info("collection configs reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("collections watcher error")
			}
		}
	}()
	return nil
}

func (r *CollectionResolver) shouldReload(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != r.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
