package repo

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/meridian-gis/entitycore/errors"
	"github.com/meridian-gis/entitycore/model"
	"github.com/meridian-gis/entitycore/object"
	"github.com/meridian-gis/entitycore/query"
)

func renumber(sql string) string { return query.NumberPlaceholders(sql) }

// Temporal write formats. Postgres casts the text forms on insert, which
// keeps array literals uniform for multi-valued columns.
const (
	dateWriteLayout     = "2006-01-02"
	timeWriteLayout     = "15:04:05"
	dateTimeWriteLayout = "2006-01-02 15:04:05.999999"
)

// writeParam is one column of an INSERT or UPDATE: the placeholder
// expression (with `?` markers) and the driver arguments it consumes.
type writeParam struct {
	column string
	expr   string
	args   []any
}

// prepareParam renders the write expression for one field value.
// Geometry columns wrap their text payload in the matching constructor
// and pin the field CRS; attachment columns cast their JSON text.
func prepareParam(f model.Field, value any) (writeParam, error) {
	p := writeParam{column: strings.ToLower(f.CodeName()), expr: "?"}

	if gf, ok := f.(*model.GeometryField); ok {
		if f.Multiple() {
			return writeParam{}, errors.Unprocessablef("multi-valued geometry field %q is not writable", f.CodeName())
		}
		if value == nil {
			p.args = []any{nil}
			return p, nil
		}
		geom, ok := value.(object.Geometry)
		if !ok {
			return writeParam{}, errors.Unprocessablef("geometry field %q holds %T", f.CodeName(), value)
		}
		fn := "ST_GeomFromText"
		if geom.Kind == object.GeoJSON {
			fn = "ST_GeomFromGeoJSON"
		}
		p.expr = fmt.Sprintf("ST_SetSRID(%s(?), %d)", fn, gf.CRS())
		p.args = []any{geom.Text}
		return p, nil
	}

	if f.Type() == model.Attachment {
		p.expr = "?::JSONB"
		arg, err := attachmentArg(value)
		if err != nil {
			return writeParam{}, err
		}
		p.args = []any{arg}
		return p, nil
	}

	if f.Multiple() {
		arr, err := arrayArg(f, value)
		if err != nil {
			return writeParam{}, err
		}
		p.args = []any{arr}
		return p, nil
	}

	arg, err := singleArg(f, value)
	if err != nil {
		return writeParam{}, err
	}
	p.args = []any{arg}
	return p, nil
}

func singleArg(f model.Field, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case bool, float64, int, string:
		return v, nil
	case uuid.UUID:
		return v.String(), nil
	case time.Time:
		switch f.Type() {
		case model.Date:
			return v.Format(dateWriteLayout), nil
		case model.Time:
			return v.Format(timeWriteLayout), nil
		default:
			return v, nil
		}
	}
	return nil, errors.Unprocessablef("field %q holds unsupported value %T", f.CodeName(), value)
}

// arrayArg encodes a multi-valued payload through the pq array codec.
// Temporal elements travel as preformatted text; the server coerces the
// literal to the column's element type.
func arrayArg(f model.Field, value any) (any, error) {
	values, ok := value.([]any)
	if !ok {
		if value == nil {
			values = nil
		} else {
			return nil, errors.Unprocessablef("multi-valued field %q holds %T", f.CodeName(), value)
		}
	}

	switch f.Type() {
	case model.Boolean:
		out := make([]bool, 0, len(values))
		for _, v := range values {
			b, ok := v.(bool)
			if !ok {
				return nil, errors.Unprocessablef("field %q element holds %T", f.CodeName(), v)
			}
			out = append(out, b)
		}
		return pq.Array(out), nil
	case model.Numeric:
		out := make([]float64, 0, len(values))
		for _, v := range values {
			n, ok := v.(float64)
			if !ok {
				return nil, errors.Unprocessablef("field %q element holds %T", f.CodeName(), v)
			}
			out = append(out, n)
		}
		return pq.Array(out), nil
	case model.Date, model.Time, model.DateTime:
		layout := dateTimeWriteLayout
		if f.Type() == model.Date {
			layout = dateWriteLayout
		} else if f.Type() == model.Time {
			layout = timeWriteLayout
		}
		out := make([]string, 0, len(values))
		for _, v := range values {
			t, ok := v.(time.Time)
			if !ok {
				return nil, errors.Unprocessablef("field %q element holds %T", f.CodeName(), v)
			}
			out = append(out, t.Format(layout))
		}
		return pq.Array(out), nil
	default:
		out := make([]string, 0, len(values))
		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				return nil, errors.Unprocessablef("field %q element holds %T", f.CodeName(), v)
			}
			out = append(out, s)
		}
		return pq.Array(out), nil
	}
}

func attachmentArg(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case []object.ObjectAttachment:
		if len(v) == 0 {
			return "[]", nil
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, errors.UnprocessableWrap(err, "failed to encode attachments")
		}
		return string(encoded), nil
	}
	return nil, errors.Unprocessablef("attachment column holds %T", value)
}

// relationIDs extracts target object ids from a relation field's write
// value.
func relationIDs(f model.Field, value any) ([]int64, error) {
	collect := func(v any) (int64, error) {
		switch ref := v.(type) {
		case *object.EntityObject:
			return int64(ref.ID), nil
		case float64:
			return int64(ref), nil
		case int:
			return int64(ref), nil
		}
		return 0, errors.Unprocessablef("relation field %q holds %T", f.CodeName(), v)
	}

	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]int64, 0, len(v))
		for _, e := range v {
			id, err := collect(e)
			if err != nil {
				return nil, err
			}
			out = append(out, id)
		}
		return out, nil
	default:
		id, err := collect(v)
		if err != nil {
			return nil, err
		}
		return []int64{id}, nil
	}
}
