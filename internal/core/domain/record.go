package domain

import (
	"fmt"
	"strconv"
)

// Record is a content-store record as returned by the content API.
type Record map[string]any

// ID returns the record identifier in its canonical string form.
// JSON numbers decode as float64, so whole numbers are printed without a fraction.
func (r Record) ID() string {
	switch v := r["id"].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// IndexedDocument is a transformed record ready for the search engine.
type IndexedDocument map[string]any

// FilterOp is a null-check applied to a record field.
type FilterOp string

// Supported filter operators.
const (
	FilterNull    FilterOp = "$null"
	FilterNotNull FilterOp = "$notNull"
)

// Filter restricts a content-store query.
type Filter struct {
	Field string
	Op    FilterOp
}

// SortField orders a content-store query.
type SortField struct {
	Field      string
	Descending bool
}

// QueryOptions configures a content-store FindMany call.
type QueryOptions struct {
	Sort     []SortField
	Filters  []Filter
	Populate []string
}
