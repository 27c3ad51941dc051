package manager

import (
	"github.com/meridian-gis/entitycore/errors"
	"github.com/meridian-gis/entitycore/model"
	"github.com/meridian-gis/entitycore/query"
)

// Filter is the caller-facing search request: requested fields, an
// optional textual condition, sort, pagination and output CRS. A nil
// Page means "all matching rows, no count round trip".
type Filter struct {
	Fields    []string
	Condition string
	SortField string
	SortDesc  bool
	Page      *PageRequest
	SRID      int

	Aggregates []query.AggregateSpec
}

// PageRequest is a zero-based page boundary.
type PageRequest struct {
	Number int
	Size   int
}

// builder translates the filter into a select builder for the type.
func (f Filter) builder(t *model.EntityType, parser ConditionParser) (*query.SelectBuilder, error) {
	b := query.NewSelectBuilder(t)
	if len(f.Fields) > 0 {
		b.WithFields(f.Fields...)
	}
	if f.Condition != "" {
		if parser == nil {
			return nil, errors.Unprocessablef("no condition parser configured for expression %q", f.Condition)
		}
		cond, err := parser.Parse(t, f.Condition)
		if err != nil {
			return nil, errors.UnprocessableWrap(err, "failed to parse filter condition")
		}
		b.Where(cond)
	}
	if f.SortField != "" {
		dir := query.Asc
		if f.SortDesc {
			dir = query.Desc
		}
		b.Sort(f.SortField, dir)
	}
	if f.Page != nil {
		b.Page(f.Page.Number, f.Page.Size)
	}
	if f.SRID > 0 {
		b.SRID(f.SRID)
	}
	if len(f.Aggregates) > 0 {
		b.Aggregate(f.Aggregates...)
	}
	return b, b.Err()
}
