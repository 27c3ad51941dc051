package object

import "strings"

// SearchRecord is one row of a projection or aggregation query, keyed by
// result column name. Column order follows the query's select list.
type SearchRecord struct {
	columns []string
	values  map[string]any
}

// NewSearchRecord returns an empty record.
func NewSearchRecord() *SearchRecord {
	return &SearchRecord{values: make(map[string]any)}
}

// Set stores a value under column, keeping first-seen column order.
func (r *SearchRecord) Set(column string, value any) {
	k := strings.ToLower(column)
	if _, ok := r.values[k]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[k] = value
}

// Get returns the value stored under column.
func (r *SearchRecord) Get(column string) (any, bool) {
	v, ok := r.values[strings.ToLower(column)]
	return v, ok
}

// Columns returns the column names in select-list order.
func (r *SearchRecord) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of columns in the record.
func (r *SearchRecord) Len() int { return len(r.columns) }
