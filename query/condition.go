package query

import (
	"fmt"
	"regexp"
	"strings"
)

// Condition is one fragment of a WHERE clause. Render returns SQL with
// `?` placeholders and the matching argument list; the builder renumbers
// placeholders into positional parameters.
type Condition interface {
	Render() (string, []any)
}

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// column maps a field code to its qualified column reference. Codes are
// lowercased on the way in; anything that is not a plain identifier
// panics rather than reaching the SQL text.
func column(field string) string {
	code := strings.ToLower(field)
	if !identPattern.MatchString(code) {
		panic(fmt.Sprintf("query: invalid field code %q", field))
	}
	return "o." + code
}

// Operator is a binary comparison operator.
type Operator string

const (
	OpEq      Operator = "="
	OpNotEq   Operator = "<>"
	OpLess    Operator = "<"
	OpLessEq  Operator = "<="
	OpGreater Operator = ">"
	OpGreatEq Operator = ">="
	OpLike    Operator = "LIKE"
	OpILike   Operator = "ILIKE"
)

type compare struct {
	field string
	op    Operator
	value any
}

func (c compare) Render() (string, []any) {
	return fmt.Sprintf("%s %s ?", column(c.field), c.op), []any{c.value}
}

// Compare builds "field op value".
func Compare(field string, op Operator, value any) Condition {
	return compare{field: field, op: op, value: value}
}

// Eq builds an equality comparison.
func Eq(field string, value any) Condition { return Compare(field, OpEq, value) }

type in struct {
	field  string
	values []any
}

func (c in) Render() (string, []any) {
	if len(c.values) == 0 {
		// Empty IN matches nothing.
		return "1 = 0", nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(c.values)), ", ")
	return fmt.Sprintf("%s IN (%s)", column(c.field), placeholders), c.values
}

// In builds "field IN (values...)".
func In(field string, values ...any) Condition {
	return in{field: field, values: values}
}

type between struct {
	field    string
	low, hig any
}

func (c between) Render() (string, []any) {
	return fmt.Sprintf("%s BETWEEN ? AND ?", column(c.field)), []any{c.low, c.hig}
}

// Between builds an inclusive range comparison.
func Between(field string, low, high any) Condition {
	return between{field: field, low: low, hig: high}
}

type isNull struct {
	field string
	null  bool
}

func (c isNull) Render() (string, []any) {
	if c.null {
		return column(c.field) + " IS NULL", nil
	}
	return column(c.field) + " IS NOT NULL", nil
}

// IsNull builds "field IS NULL".
func IsNull(field string) Condition { return isNull{field: field, null: true} }

// NotNull builds "field IS NOT NULL".
func NotNull(field string) Condition { return isNull{field: field} }

type group struct {
	op    string
	conds []Condition
}

func (g group) Render() (string, []any) {
	if len(g.conds) == 0 {
		return "", nil
	}
	if len(g.conds) == 1 {
		return g.conds[0].Render()
	}
	parts := make([]string, 0, len(g.conds))
	var args []any
	for _, c := range g.conds {
		sql, a := c.Render()
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		args = append(args, a...)
	}
	return "(" + strings.Join(parts, " "+g.op+" ") + ")", args
}

// And joins conditions with AND.
func And(conds ...Condition) Condition { return group{op: "AND", conds: conds} }

// Or joins conditions with OR.
func Or(conds ...Condition) Condition { return group{op: "OR", conds: conds} }

type not struct {
	inner Condition
}

func (n not) Render() (string, []any) {
	sql, args := n.inner.Render()
	return "NOT (" + sql + ")", args
}

// Not negates a condition.
func Not(c Condition) Condition { return not{inner: c} }

type spatial struct {
	field string
	fn    string
	wkt   string
	srid  int
}

func (s spatial) Render() (string, []any) {
	return fmt.Sprintf("%s(%s, ST_SetSRID(ST_GeomFromText(?), %d))", s.fn, column(s.field), s.srid), []any{s.wkt}
}

// Intersects builds an ST_Intersects test against a WKT literal in the
// given spatial reference.
func Intersects(field, wkt string, srid int) Condition {
	return spatial{field: field, fn: "ST_Intersects", wkt: wkt, srid: srid}
}

// Within builds an ST_Within test against a WKT literal.
func Within(field, wkt string, srid int) Condition {
	return spatial{field: field, fn: "ST_Within", wkt: wkt, srid: srid}
}

type raw struct {
	sql  string
	args []any
}

func (r raw) Render() (string, []any) { return r.sql, r.args }

// Raw wraps a prebuilt fragment with `?` placeholders. Callers own the
// fragment's safety.
func Raw(sql string, args ...any) Condition { return raw{sql: sql, args: args} }
