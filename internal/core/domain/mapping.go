package domain

// FieldType is a search engine field data type.
type FieldType string

// Field types used by the index mapping.
const (
	FieldTypeText    FieldType = "text"
	FieldTypeKeyword FieldType = "keyword"
	FieldTypeDate    FieldType = "date"
	FieldTypeLong    FieldType = "long"
	FieldTypeFloat   FieldType = "float"
)

// IndexMapping is the body sent when an index is created: analysis settings
// plus the field mapping. It is applied once and never mutated in place.
type IndexMapping struct {
	Settings IndexSettings `json:"settings"`
	Mappings Mappings      `json:"mappings"`
}

// IndexSettings holds the analysis chain and index-level settings.
type IndexSettings struct {
	Analysis Analysis           `json:"analysis"`
	Index    IndexLevelSettings `json:"index"`
}

// Analysis declares custom tokenizers and analyzers by name.
type Analysis struct {
	Tokenizer map[string]Tokenizer `json:"tokenizer"`
	Analyzer  map[string]Analyzer  `json:"analyzer"`
}

// Tokenizer is a named tokenizer definition.
type Tokenizer struct {
	Type    string `json:"type"`
	MinGram int    `json:"min_gram,omitempty"`
	MaxGram int    `json:"max_gram,omitempty"`
}

// Analyzer is a named analyzer definition.
type Analyzer struct {
	Type      string   `json:"type"`
	Tokenizer string   `json:"tokenizer"`
	Filter    []string `json:"filter,omitempty"`
}

// IndexLevelSettings are settings under the "index" key.
type IndexLevelSettings struct {
	MaxNgramDiff int `json:"max_ngram_diff"`
}

// Mappings holds the top-level document properties.
type Mappings struct {
	Properties map[string]FieldMapping `json:"properties"`
}

// FieldMapping maps one document field. Object fields use Properties;
// leaf fields use Type, and may declare multi-fields in Fields.
type FieldMapping struct {
	Type       FieldType               `json:"type,omitempty"`
	Analyzer   string                  `json:"analyzer,omitempty"`
	Index      *bool                   `json:"index,omitempty"`
	Fields     map[string]FieldMapping `json:"fields,omitempty"`
	Properties map[string]FieldMapping `json:"properties,omitempty"`
}

// IsObject returns true if the field holds nested properties.
func (f FieldMapping) IsObject() bool {
	return len(f.Properties) > 0
}

// IsIndexed returns false only when the mapping explicitly disables indexing.
func (f FieldMapping) IsIndexed() bool {
	return f.Index == nil || *f.Index
}
