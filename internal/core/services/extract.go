package services

import "github.com/custodia-labs/sercha-indexsync/internal/core/domain"

// ExtractDocument copies the configured fields of a record into a document.
// Attributes absent from the record are omitted. Relation values are
// projected to the rule's subfields when any are listed.
func ExtractDocument(cfg *domain.CollectionIndexConfig, rec domain.Record) domain.IndexedDocument {
	doc := make(domain.IndexedDocument, len(cfg.Fields))
	for _, rule := range cfg.Fields {
		val, ok := rec[rule.Name]
		if !ok {
			continue
		}
		doc[rule.TargetName()] = project(val, rule.Subfields)
	}
	return doc
}

// project keeps only the listed keys of an object, or of every object in a
// list. Scalars pass through unchanged.
func project(val any, keys []string) any {
	if len(keys) == 0 {
		return val
	}
	switch v := val.(type) {
	case map[string]any:
		return pick(v, keys)
	case domain.Record:
		return pick(v, keys)
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, project(item, keys))
		}
		return out
	case []map[string]any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, pick(item, keys))
		}
		return out
	default:
		return val
	}
}

func pick(m map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}
