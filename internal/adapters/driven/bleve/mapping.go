package bleve

import (
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/ngram"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
)

// Bleve has no ngram tokenizer, so an ngram tokenizer becomes a unicode
// tokenizer followed by an ngram token filter of the same size.
const ngramFilterSuffix = "_ngram_filter"

// filterNames maps Elasticsearch token filter names to Bleve's.
var filterNames = map[string]string{
	"lowercase": lowercase.Name,
}

// buildIndexMapping translates the engine-neutral mapping into a Bleve
// index mapping with the same analyzers and field layout.
func buildIndexMapping(m domain.IndexMapping) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	if err := addAnalyzers(im, m.Settings.Analysis); err != nil {
		return nil, err
	}

	im.DefaultMapping = documentMapping(m.Mappings.Properties)
	if err := im.Validate(); err != nil {
		return nil, err
	}
	return im, nil
}

func addAnalyzers(im *mapping.IndexMappingImpl, analysis domain.Analysis) error {
	names := make([]string, 0, len(analysis.Analyzer))
	for name := range analysis.Analyzer {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		a := analysis.Analyzer[name]

		tokenizerName := unicode.Name
		var filters []string

		if tok, ok := analysis.Tokenizer[a.Tokenizer]; ok {
			switch tok.Type {
			case "ngram":
				filterName := a.Tokenizer + ngramFilterSuffix
				err := im.AddCustomTokenFilter(filterName, map[string]interface{}{
					"type": ngram.Name,
					"min":  float64(tok.MinGram),
					"max":  float64(tok.MaxGram),
				})
				if err != nil {
					return fmt.Errorf("tokenizer %s: %w", a.Tokenizer, err)
				}
				filters = append(filters, filterName)
			case "keyword":
				tokenizerName = single.Name
			case "standard", "":
			default:
				return fmt.Errorf("tokenizer %s: unsupported type %q", a.Tokenizer, tok.Type)
			}
		} else if a.Tokenizer == "keyword" {
			tokenizerName = single.Name
		}

		for _, f := range a.Filter {
			bf, ok := filterNames[f]
			if !ok {
				return fmt.Errorf("analyzer %s: unsupported filter %q", name, f)
			}
			filters = append(filters, bf)
		}

		err := im.AddCustomAnalyzer(name, map[string]interface{}{
			"type":          custom.Name,
			"tokenizer":     tokenizerName,
			"token_filters": filters,
		})
		if err != nil {
			return fmt.Errorf("analyzer %s: %w", name, err)
		}
	}
	return nil
}

func documentMapping(props map[string]domain.FieldMapping) *mapping.DocumentMapping {
	dm := bleve.NewDocumentMapping()
	for name, f := range props {
		if f.IsObject() {
			dm.AddSubDocumentMapping(name, documentMapping(f.Properties))
			continue
		}
		dm.AddFieldMappingsAt(name, fieldMappings(name, f)...)
	}
	return dm
}

// fieldMappings returns the mapping for a leaf field plus one per
// multi-field, named "<field>.<sub>" as Elasticsearch addresses them.
func fieldMappings(name string, f domain.FieldMapping) []*mapping.FieldMapping {
	primary := leafMapping(f)
	if !f.IsIndexed() {
		primary.Index = false
		primary.Store = false
		primary.IncludeInAll = false
		primary.DocValues = false
		return []*mapping.FieldMapping{primary}
	}

	out := []*mapping.FieldMapping{primary}
	subs := make([]string, 0, len(f.Fields))
	for sub := range f.Fields {
		subs = append(subs, sub)
	}
	sort.Strings(subs)
	for _, sub := range subs {
		fm := leafMapping(f.Fields[sub])
		fm.Name = name + "." + sub
		fm.IncludeInAll = false
		out = append(out, fm)
	}
	return out
}

func leafMapping(f domain.FieldMapping) *mapping.FieldMapping {
	var fm *mapping.FieldMapping
	switch f.Type {
	case domain.FieldTypeKeyword:
		fm = bleve.NewKeywordFieldMapping()
		fm.Analyzer = keyword.Name
	case domain.FieldTypeDate:
		fm = bleve.NewDateTimeFieldMapping()
	case domain.FieldTypeLong, domain.FieldTypeFloat:
		fm = bleve.NewNumericFieldMapping()
	default:
		fm = bleve.NewTextFieldMapping()
		fm.Analyzer = f.Analyzer
	}
	// Hit sources come from the gateway's document map.
	fm.Store = false
	return fm
}
