package domain

// UserField is the ownership relation checked by ExcludeUserLinked.
const UserField = "user"

// PublishedAtField is the publication timestamp checked for draft/publish collections.
const PublishedAtField = "publishedAt"

// CollectionIndexConfig holds the indexing rules for one content collection.
// It is owned by the configuration resolver and read-only to the core.
type CollectionIndexConfig struct {
	// Name is the content-store collection name.
	Name string

	// Fields lists the attributes copied into the indexed document.
	Fields []FieldRule

	// DraftPublish restricts indexing to records with a non-null publishedAt.
	DraftPublish bool

	// ExcludeUserLinked skips records whose user relation is set.
	ExcludeUserLinked bool

	// Populate lists the relations the content store must resolve.
	Populate []string
}

// FieldRule describes how one record attribute is copied into a document.
type FieldRule struct {
	// Name is the attribute name on the record.
	Name string

	// SearchFieldName renames the attribute in the document. Empty keeps Name.
	SearchFieldName string

	// Subfields projects nested relation or component values to these keys.
	// Empty copies the value as-is.
	Subfields []string
}

// TargetName returns the document field name for this rule.
func (r FieldRule) TargetName() string {
	if r.SearchFieldName != "" {
		return r.SearchFieldName
	}
	return r.Name
}

// Eligible reports whether a record may appear in the index under this config.
func (c CollectionIndexConfig) Eligible(rec Record) bool {
	if c.DraftPublish && rec[PublishedAtField] == nil {
		return false
	}
	if c.ExcludeUserLinked && rec[UserField] != nil {
		return false
	}
	return true
}

// QueryOptions returns the fetch query used to index the whole collection.
// Both filters compose conjunctively when both apply.
func (c CollectionIndexConfig) QueryOptions() QueryOptions {
	opts := QueryOptions{
		Sort:     []SortField{{Field: "createdAt", Descending: true}},
		Populate: c.Populate,
	}
	if c.DraftPublish {
		opts.Filters = append(opts.Filters, Filter{Field: PublishedAtField, Op: FilterNotNull})
	}
	if c.ExcludeUserLinked {
		opts.Filters = append(opts.Filters, Filter{Field: UserField, Op: FilterNull})
	}
	return opts
}
