package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
)

// DefaultIndexPrefix is used when no index prefix is configured.
const DefaultIndexPrefix = "sercha-index"

// indexSuffixWidth is the zero-padded width of the generation number.
const indexSuffixWidth = 6

// IndexAuthority computes canonical index names and owns the mapping schema.
type IndexAuthority struct {
	state  driven.IndexStateStore
	prefix string
	alias  string
}

// NewIndexAuthority creates an authority. Generated names look like
// "<prefix>_000001"; the generation number grows with each blue-green rebuild.
func NewIndexAuthority(state driven.IndexStateStore, prefix, alias string) *IndexAuthority {
	if prefix == "" {
		prefix = DefaultIndexPrefix
	}
	return &IndexAuthority{state: state, prefix: prefix, alias: alias}
}

// AliasName returns the alias the authority was configured with.
func (a *IndexAuthority) AliasName() string {
	return a.alias
}

// CurrentIndexName returns the persisted current index name, or the first
// generation name when nothing has been persisted yet.
func (a *IndexAuthority) CurrentIndexName(ctx context.Context) (string, error) {
	name, ok, err := a.state.CurrentIndexName(ctx)
	if err != nil {
		return "", fmt.Errorf("get current index name: %w", err)
	}
	if !ok || name == "" {
		return a.generationName(1), nil
	}
	return name, nil
}

// TemporaryIndexName returns the successor of the current index name.
func (a *IndexAuthority) TemporaryIndexName(ctx context.Context) (string, error) {
	current, err := a.CurrentIndexName(ctx)
	if err != nil {
		return "", err
	}
	return a.generationName(a.generation(current) + 1), nil
}

// StoreCurrentIndexName persists name as the authoritative current index.
func (a *IndexAuthority) StoreCurrentIndexName(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty index name", domain.ErrInvalidInput)
	}
	if err := a.state.SetCurrentIndexName(ctx, name); err != nil {
		return fmt.Errorf("store current index name: %w", err)
	}
	return nil
}

// Descriptor returns the current, temporary and alias names together.
func (a *IndexAuthority) Descriptor(ctx context.Context) (domain.IndexDescriptor, error) {
	current, err := a.CurrentIndexName(ctx)
	if err != nil {
		return domain.IndexDescriptor{}, err
	}
	return domain.IndexDescriptor{
		CurrentName:   current,
		TemporaryName: a.generationName(a.generation(current) + 1),
		AliasName:     a.alias,
	}, nil
}

func (a *IndexAuthority) generationName(n int) string {
	return fmt.Sprintf("%s_%0*d", a.prefix, indexSuffixWidth, n)
}

// generation extracts the trailing number of an index name. Names without
// one (for example a hand-created index) count as generation 0.
func (a *IndexAuthority) generation(name string) int {
	i := strings.LastIndex(name, "_")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// MappingSchema returns the fixed settings and field mapping applied to
// every index at creation. Text fields get the ngram analyzer plus a
// keyword sub-field for exact filtering, sorting and aggregation; fields
// kept only for display are stored but not indexed.
func MappingSchema() domain.IndexMapping {
	return domain.IndexMapping{
		Settings: domain.IndexSettings{
			Analysis: domain.Analysis{
				Tokenizer: map[string]domain.Tokenizer{
					"ngram_tokenizer": {Type: "ngram", MinGram: 3, MaxGram: 5},
				},
				Analyzer: map[string]domain.Analyzer{
					"ngram_analyzer": {
						Type:      "custom",
						Tokenizer: "ngram_tokenizer",
						Filter:    []string{"lowercase"},
					},
				},
			},
			Index: domain.IndexLevelSettings{MaxNgramDiff: 2},
		},
		Mappings: domain.Mappings{
			Properties: map[string]domain.FieldMapping{
				"categories": object(map[string]domain.FieldMapping{
					"createdAt":   displayOnly(domain.FieldTypeDate),
					"id":          displayOnly(domain.FieldTypeLong),
					"name":        searchable(),
					"publishedAt": displayOnly(domain.FieldTypeDate),
					"updatedAt":   displayOnly(domain.FieldTypeDate),
				}),
				"description": searchable(),
				"file":        fileMapping(),
				"labels": object(map[string]domain.FieldMapping{
					"createdAt":   displayOnly(domain.FieldTypeDate),
					"id":          displayOnly(domain.FieldTypeLong),
					"publishedAt": displayOnly(domain.FieldTypeDate),
					"type":        displayOnly(domain.FieldTypeText),
					"updatedAt":   displayOnly(domain.FieldTypeDate),
					"value":       searchable(),
				}),
				"orderCount":    displayOnly(domain.FieldTypeText),
				"title":         searchable(),
				"wishlistCount": displayOnly(domain.FieldTypeText),
			},
		},
	}
}

// SearchableFields lists the analyzed text fields of the mapping, in the
// dotted form used by queries.
func SearchableFields() []string {
	return []string{"title", "description", "categories.name", "labels.value"}
}

func searchable() domain.FieldMapping {
	return domain.FieldMapping{
		Type:     domain.FieldTypeText,
		Analyzer: "ngram_analyzer",
		Fields: map[string]domain.FieldMapping{
			"keyword": {Type: domain.FieldTypeKeyword},
		},
	}
}

func displayOnly(t domain.FieldType) domain.FieldMapping {
	off := false
	return domain.FieldMapping{Type: t, Index: &off}
}

func object(props map[string]domain.FieldMapping) domain.FieldMapping {
	return domain.FieldMapping{Properties: props}
}

// fileMapping maps an uploaded media file and its generated formats.
func fileMapping() domain.FieldMapping {
	props := mediaProperties()
	props["createdAt"] = displayOnly(domain.FieldTypeDate)
	props["folderPath"] = displayOnly(domain.FieldTypeText)
	props["id"] = displayOnly(domain.FieldTypeLong)
	props["provider"] = displayOnly(domain.FieldTypeText)
	props["updatedAt"] = displayOnly(domain.FieldTypeDate)
	props["formats"] = object(map[string]domain.FieldMapping{
		"large":     object(formatProperties()),
		"medium":    object(formatProperties()),
		"small":     object(formatProperties()),
		"thumbnail": object(formatProperties()),
	})
	return object(props)
}

// mediaProperties are the fields shared by a file and each of its formats.
func mediaProperties() map[string]domain.FieldMapping {
	return map[string]domain.FieldMapping{
		"ext":    displayOnly(domain.FieldTypeText),
		"hash":   displayOnly(domain.FieldTypeText),
		"height": displayOnly(domain.FieldTypeLong),
		"mime":   displayOnly(domain.FieldTypeText),
		"name":   displayOnly(domain.FieldTypeText),
		"size":   displayOnly(domain.FieldTypeFloat),
		"url":    displayOnly(domain.FieldTypeText),
		"width":  displayOnly(domain.FieldTypeLong),
	}
}

func formatProperties() map[string]domain.FieldMapping {
	props := mediaProperties()
	props["sizeInBytes"] = displayOnly(domain.FieldTypeLong)
	return props
}
