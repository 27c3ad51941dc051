// Package repo persists entity objects to Postgres tables laid out per
// the runtime schema: one primary table per entity type, one join table
// per relation-table field, plus reverse foreign-key columns on related
// tables.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridian-gis/entitycore/db"
	"github.com/meridian-gis/entitycore/errors"
	"github.com/meridian-gis/entitycore/logger"
	"github.com/meridian-gis/entitycore/model"
	"github.com/meridian-gis/entitycore/object"
	"github.com/meridian-gis/entitycore/query"
)

// Page is one page of query results. Total carries the unbounded match
// count when the query was paged, otherwise the item count.
type Page struct {
	Items []*object.EntityObject
	Total int
}

// Repository executes entity queries and writes against a Querier, which
// is either a pool or an open transaction.
type Repository struct {
	q      db.Querier
	logger *zap.SugaredLogger
}

// New creates a Repository. logger may be nil for silent operation.
func New(q db.Querier, log *zap.SugaredLogger) *Repository {
	return &Repository{q: q, logger: log}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx db.Querier) *Repository {
	clone := *r
	clone.q = tx
	return &clone
}

// FindAll executes the query and returns matching objects. When the
// builder is paged a parallel COUNT supplies the total; unpaged queries
// skip the second round trip.
func (r *Repository) FindAll(ctx context.Context, b *query.SelectBuilder) (*Page, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	sqlText, args := b.Build()
	start := time.Now()

	rows, err := r.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s objects", b.EntityType().CodeName())
	}
	defer rows.Close()

	var items []*object.EntityObject
	for rows.Next() {
		obj, err := scanObject(b, rows)
		if err != nil {
			return nil, err
		}
		items = append(items, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to iterate %s objects", b.EntityType().CodeName())
	}

	if r.logger != nil {
		r.logger.Debugw("executed object query",
			logger.FieldEntityType, b.EntityType().CodeName(),
			logger.FieldCount, len(items),
			logger.FieldDuration, time.Since(start),
		)
	}

	page := &Page{Items: items, Total: len(items)}
	if b.Paged() {
		total, err := r.Count(ctx, b)
		if err != nil {
			return nil, err
		}
		page.Total = total
	}
	return page, nil
}

// FindOne executes the query and returns the single matching object, or a
// not-found error.
func (r *Repository) FindOne(ctx context.Context, b *query.SelectBuilder) (*object.EntityObject, error) {
	page, err := r.FindAll(ctx, b)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, errors.NotFoundf("%s object not found", b.EntityType().CodeName())
	}
	return page.Items[0], nil
}

// FindByID loads one object by primary id; srid 0 keeps native geometry
// CRS.
func (r *Repository) FindByID(ctx context.Context, t *model.EntityType, id, srid int) (*object.EntityObject, error) {
	obj, err := r.FindOne(ctx, query.NewSelectBuilder(t).WithID(id).SRID(srid))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NotFoundf("%s object %d not found", t.CodeName(), id)
		}
		return nil, err
	}
	return obj, nil
}

// FindByGUID loads one object by its immutable guid.
func (r *Repository) FindByGUID(ctx context.Context, t *model.EntityType, guid uuid.UUID, srid int) (*object.EntityObject, error) {
	obj, err := r.FindOne(ctx, query.NewSelectBuilder(t).WithGUID(guid).SRID(srid))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NotFoundf("%s object %s not found", t.CodeName(), guid)
		}
		return nil, err
	}
	return obj, nil
}

// FindByName loads one object by its name standard field.
func (r *Repository) FindByName(ctx context.Context, t *model.EntityType, name string, srid int) (*object.EntityObject, error) {
	obj, err := r.FindOne(ctx, query.NewSelectBuilder(t).WithName(name).SRID(srid))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NotFoundf("%s object %q not found", t.CodeName(), name)
		}
		return nil, err
	}
	return obj, nil
}

// Count executes the builder's COUNT variant.
func (r *Repository) Count(ctx context.Context, b *query.SelectBuilder) (int, error) {
	if err := b.Err(); err != nil {
		return 0, err
	}
	sqlText, args := b.Count()
	var total int
	if err := r.q.QueryRowContext(ctx, sqlText, args...).Scan(&total); err != nil {
		return 0, errors.Wrapf(err, "failed to count %s objects", b.EntityType().CodeName())
	}
	return total, nil
}

// FindRecords executes the query as a column-oriented result, one record
// per row. Used for projections and aggregations where full object
// materialization is not wanted.
func (r *Repository) FindRecords(ctx context.Context, b *query.SelectBuilder) ([]*object.SearchRecord, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}
	sqlText, args := b.Build()

	rows, err := r.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %s records", b.EntityType().CodeName())
	}
	defer rows.Close()

	columns := b.SearchColumns()
	var records []*object.SearchRecord
	for rows.Next() {
		dests := make([]any, len(columns))
		for i := range dests {
			dests[i] = new(any)
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s record", b.EntityType().CodeName())
		}
		rec := object.NewSearchRecord()
		for i, col := range columns {
			rec.Set(col, normalizeRecordValue(*dests[i].(*any)))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to iterate %s records", b.EntityType().CodeName())
	}
	return records, nil
}

// FindUniqueValues returns the distinct non-null values of one base field
// across active objects of the type.
func (r *Repository) FindUniqueValues(ctx context.Context, t *model.EntityType, fieldCode string) ([]any, error) {
	field, ok := t.Field(fieldCode)
	if !ok {
		return nil, errors.NotFoundf("field %q not found on type %s", fieldCode, t.CodeName())
	}
	if !model.InnerField(field) {
		return nil, errors.Unprocessablef("field %q is a relation and has no value column", fieldCode)
	}

	code := strings.ToLower(field.CodeName())
	sqlText := "SELECT DISTINCT o." + code + " FROM " + model.EntityTable(t.CodeName()) +
		" o WHERE o." + code + " IS NOT NULL AND o.status = $1 ORDER BY o." + code

	rows, err := r.q.QueryContext(ctx, sqlText, int(object.StatusActive))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query unique values of %s.%s", t.CodeName(), fieldCode)
	}
	defer rows.Close()

	var values []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrapf(err, "failed to scan unique value of %s.%s", t.CodeName(), fieldCode)
		}
		values = append(values, normalizeRecordValue(v))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to iterate unique values of %s.%s", t.CodeName(), fieldCode)
	}
	return values, nil
}

func normalizeRecordValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
