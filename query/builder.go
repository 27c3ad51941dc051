package query

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/meridian-gis/entitycore/errors"
	"github.com/meridian-gis/entitycore/model"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// AggregateFunc is one of the supported SQL aggregate functions.
type AggregateFunc string

const (
	AggCount AggregateFunc = "count"
	AggSum   AggregateFunc = "sum"
	AggMin   AggregateFunc = "min"
	AggMax   AggregateFunc = "max"
	AggAvg   AggregateFunc = "avg"
)

// AggregateSpec requests one aggregate column. An empty Alias defaults
// to "<func>_<field>".
type AggregateSpec struct {
	Func  AggregateFunc
	Field string
	Alias string
}

func (s AggregateSpec) alias() string {
	if s.Alias != "" {
		return s.Alias
	}
	return string(s.Func) + "_" + strings.ToLower(s.Field)
}

// SelectBuilder accumulates the parts of one entity query and renders it
// into an executable SELECT plus a parallel COUNT sharing the same
// filter. Builders are single-use and not safe for concurrent use.
type SelectBuilder struct {
	entityType *model.EntityType

	fields     []model.Field
	fieldCodes map[string]struct{}

	conditions []Condition

	sortField string
	sortDir   Direction

	paged    bool
	page     int
	pageSize int

	srid int

	aggregates []AggregateSpec

	err error
}

// NewSelectBuilder starts a query over the given entity type. With no
// WithFields call the select covers every base field of the type.
func NewSelectBuilder(entityType *model.EntityType) *SelectBuilder {
	return &SelectBuilder{
		entityType: entityType,
		fieldCodes: make(map[string]struct{}),
	}
}

// WithFields restricts the select to the named base fields. Unresolvable
// codes are dropped, duplicates collapse to the first mention.
func (b *SelectBuilder) WithFields(codes ...string) *SelectBuilder {
	for _, f := range b.entityType.BaseFieldsByCode(codes) {
		key := strings.ToLower(f.CodeName())
		if _, seen := b.fieldCodes[key]; seen {
			continue
		}
		b.fieldCodes[key] = struct{}{}
		b.fields = append(b.fields, f)
	}
	return b
}

// WithID filters on the primary id.
func (b *SelectBuilder) WithID(id int) *SelectBuilder {
	return b.Where(Eq("id", id))
}

// WithGUID filters on the immutable guid.
func (b *SelectBuilder) WithGUID(guid uuid.UUID) *SelectBuilder {
	return b.Where(Eq("guid", guid.String()))
}

// WithName filters on the name standard field.
func (b *SelectBuilder) WithName(name string) *SelectBuilder {
	return b.Where(Eq("name", name))
}

// Where adds a filter condition; conditions combine with AND.
func (b *SelectBuilder) Where(c Condition) *SelectBuilder {
	if c != nil {
		b.conditions = append(b.conditions, c)
	}
	return b
}

// Sort orders results by a field. Unresolvable, geometry and relation
// fields are silently ignored since they have no sortable column form.
func (b *SelectBuilder) Sort(field string, dir Direction) *SelectBuilder {
	f, ok := b.entityType.Field(field)
	if !ok {
		return b
	}
	switch f.(type) {
	case *model.RelationField, *model.GeometryField:
		return b
	}
	b.sortField = strings.ToLower(f.CodeName())
	if dir != Desc {
		dir = Asc
	}
	b.sortDir = dir
	return b
}

// Page requests one page of results, zero-based.
func (b *SelectBuilder) Page(page, size int) *SelectBuilder {
	b.paged = true
	b.page = page
	b.pageSize = size
	return b
}

// SRID sets the output spatial reference for geometry columns. Zero
// keeps each column's native CRS.
func (b *SelectBuilder) SRID(srid int) *SelectBuilder {
	b.srid = srid
	return b
}

// Aggregate adds an aggregate output column. Any aggregate switches the
// builder into aggregation mode: Build emits aggregate columns grouped by
// the requested non-aggregated fields. An aggregate over an unknown field
// or a relation field leaves the builder in an error state, reported by
// Err and checked before execution.
func (b *SelectBuilder) Aggregate(specs ...AggregateSpec) *SelectBuilder {
	for _, s := range specs {
		f, ok := b.entityType.Field(s.Field)
		if !ok {
			b.fail(errors.Unprocessablef("aggregate field %q not found on type %s", s.Field, b.entityType.CodeName()))
			continue
		}
		if !model.InnerField(f) {
			b.fail(errors.Unprocessablef("aggregate field %q is a relation and has no value column", s.Field))
			continue
		}
		if s.Alias != "" && !identPattern.MatchString(strings.ToLower(s.Alias)) {
			b.fail(errors.Unprocessablef("aggregate alias %q is not a plain identifier", s.Alias))
			continue
		}
		s.Field = strings.ToLower(f.CodeName())
		b.aggregates = append(b.aggregates, s)
	}
	return b
}

// Err reports the first invalid input accumulated while building. A
// non-nil Err makes the rendered SQL meaningless; callers check it before
// executing.
func (b *SelectBuilder) Err() error { return b.err }

func (b *SelectBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// EntityType returns the queried type.
func (b *SelectBuilder) EntityType() *model.EntityType { return b.entityType }

// OutputSRID returns the requested output spatial reference, zero when
// unset.
func (b *SelectBuilder) OutputSRID() int { return b.srid }

// Paged reports whether a page was requested, in which case a separate
// COUNT round trip is warranted.
func (b *SelectBuilder) Paged() bool { return b.paged }

// Aggregated reports whether the builder renders aggregate columns.
func (b *SelectBuilder) Aggregated() bool { return len(b.aggregates) > 0 }

// SelectedFields returns the base fields the select covers, in select
// order. Meaningless in aggregation mode.
func (b *SelectBuilder) SelectedFields() []model.Field {
	if len(b.fields) > 0 {
		out := make([]model.Field, len(b.fields))
		copy(out, b.fields)
		return out
	}
	var out []model.Field
	for _, f := range b.entityType.Fields() {
		out = append(out, f)
	}
	return out
}

// SearchColumns returns the result column names: group keys then
// aggregate aliases in aggregation mode, standard then base field codes
// otherwise.
func (b *SelectBuilder) SearchColumns() []string {
	if b.Aggregated() {
		var out []string
		for _, f := range b.groupFields() {
			out = append(out, strings.ToLower(f.CodeName()))
		}
		for _, a := range b.aggregates {
			out = append(out, a.alias())
		}
		return out
	}
	var out []string
	for _, f := range model.StandardFields() {
		out = append(out, f.CodeName())
	}
	for _, f := range b.SelectedFields() {
		out = append(out, strings.ToLower(f.CodeName()))
	}
	return out
}

type joinClause struct {
	sql string
}

// Build renders the SELECT statement with positional parameters.
func (b *SelectBuilder) Build() (string, []any) {
	if b.Aggregated() {
		return b.buildAggregate()
	}

	var (
		selects []string
		joins   []joinClause
		grouped bool
	)
	for _, sf := range model.StandardFields() {
		selects = append(selects, "o."+sf.CodeName())
	}
	for _, f := range b.SelectedFields() {
		expr, join, aggregated := b.fieldExpr(f)
		selects = append(selects, expr)
		if join != nil {
			joins = append(joins, *join)
		}
		grouped = grouped || aggregated
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selects, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(model.EntityTable(b.entityType.CodeName()))
	sb.WriteString(" o")
	for _, j := range joins {
		sb.WriteString(" ")
		sb.WriteString(j.sql)
	}

	where, args := b.renderWhere()
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if grouped {
		sb.WriteString(" GROUP BY o.id")
	}
	if b.sortField != "" {
		fmt.Fprintf(&sb, " ORDER BY o.%s %s", b.sortField, b.sortDir)
	}
	if b.paged {
		fmt.Fprintf(&sb, " LIMIT %d OFFSET %d", b.pageSize, b.page*b.pageSize)
	}

	return NumberPlaceholders(sb.String()), args
}

// Count renders the parallel COUNT statement sharing the filter but no
// sort or pagination.
func (b *SelectBuilder) Count() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT count(DISTINCT o.id) FROM ")
	sb.WriteString(model.EntityTable(b.entityType.CodeName()))
	sb.WriteString(" o")

	where, args := b.renderWhere()
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	return NumberPlaceholders(sb.String()), args
}

func (b *SelectBuilder) buildAggregate() (string, []any) {
	var selects, groups []string
	for _, f := range b.groupFields() {
		expr, _, _ := b.fieldExpr(f)
		selects = append(selects, expr)
		groups = append(groups, "o."+strings.ToLower(f.CodeName()))
	}
	for _, a := range b.aggregates {
		selects = append(selects, fmt.Sprintf("%s(o.%s) AS %s", a.Func, a.Field, a.alias()))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(selects, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(model.EntityTable(b.entityType.CodeName()))
	sb.WriteString(" o")

	where, args := b.renderWhere()
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if len(groups) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(groups, ", "))
	}
	return NumberPlaceholders(sb.String()), args
}

// groupFields returns the explicitly requested non-aggregated fields,
// which become the GROUP BY keys of an aggregation query. Relation fields
// have no groupable column and are skipped, like unresolvable sort
// fields.
func (b *SelectBuilder) groupFields() []model.Field {
	var out []model.Field
	for _, f := range b.fields {
		if model.InnerField(f) {
			out = append(out, f)
		}
	}
	return out
}

// fieldExpr renders one select-list entry. Relation fields fold their
// targets into an id array, which forces GROUP BY o.id on the query.
func (b *SelectBuilder) fieldExpr(f model.Field) (expr string, join *joinClause, aggregated bool) {
	code := strings.ToLower(f.CodeName())
	switch field := f.(type) {
	case *model.RelationField:
		if field.HasRelationTable() {
			alias := "j_" + code
			join = &joinClause{sql: fmt.Sprintf(
				"LEFT JOIN %s %s ON %s.%s = o.id",
				model.RelationTable(b.entityType.CodeName(), field), alias, alias, model.RelationSrcColumn,
			)}
			expr = fmt.Sprintf(
				"array_agg(DISTINCT %s.%s) FILTER (WHERE %s.%s IS NOT NULL) AS %s",
				alias, model.RelationDstColumn, alias, model.RelationDstColumn, code,
			)
			return expr, join, true
		}
		alias := "r_" + code
		join = &joinClause{sql: fmt.Sprintf(
			"LEFT JOIN %s %s ON %s.%s = o.id",
			model.EntityTable(field.Relates()), alias, alias, strings.ToLower(field.ReverseField()),
		)}
		expr = fmt.Sprintf(
			"array_agg(DISTINCT %s.id) FILTER (WHERE %s.id IS NOT NULL) AS %s",
			alias, alias, code,
		)
		return expr, join, true
	case *model.GeometryField:
		if b.srid > 0 && b.srid != field.CRS() {
			return fmt.Sprintf("ST_AsText(ST_Transform(o.%s, %d)) AS %s", code, b.srid, code), nil, false
		}
		return fmt.Sprintf("ST_AsText(o.%s) AS %s", code, code), nil, false
	default:
		return "o." + code, nil, false
	}
}

func (b *SelectBuilder) renderWhere() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}
	sql, args := And(b.conditions...).Render()
	return sql, args
}

// NumberPlaceholders rewrites `?` placeholders into positional $n
// parameters.
func NumberPlaceholders(sql string) string {
	if !strings.Contains(sql, "?") {
		return sql
	}
	var sb strings.Builder
	n := 0
	for _, r := range sql {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
