package repo

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/meridian-gis/entitycore/errors"
	"github.com/meridian-gis/entitycore/model"
	"github.com/meridian-gis/entitycore/object"
	"github.com/meridian-gis/entitycore/query"
)

// stdRow holds the scan destinations for the standard-field columns that
// lead every object select.
type stdRow struct {
	id          int
	name        sql.NullString
	status      int
	parentID    sql.NullInt64
	guid        sql.NullString
	createUser  sql.NullString
	createDate  sql.NullTime
	changeUser  sql.NullString
	changeDate  sql.NullTime
	attachments sql.NullString
}

func (s *stdRow) dests() []any {
	return []any{
		&s.id, &s.name, &s.status, &s.parentID, &s.guid,
		&s.createUser, &s.createDate, &s.changeUser, &s.changeDate,
		&s.attachments,
	}
}

// scanObject decodes one result row into an EntityObject. Column order
// mirrors the builder's select list: standard fields first, then the
// selected base fields.
func scanObject(b *query.SelectBuilder, rows *sql.Rows) (*object.EntityObject, error) {
	t := b.EntityType()
	fields := b.SelectedFields()

	var std stdRow
	dests := std.dests()
	fieldDests := make([]any, len(fields))
	for i, f := range fields {
		fieldDests[i] = fieldDest(f)
		dests = append(dests, fieldDests[i])
	}

	if err := rows.Scan(dests...); err != nil {
		return nil, errors.Wrapf(err, "failed to scan %s object", t.CodeName())
	}

	obj := object.NewEntityObject(t.CodeName())
	if err := applyStandard(obj, &std); err != nil {
		return nil, err
	}
	for i, f := range fields {
		if err := applyField(obj, f, fieldDests[i]); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func applyStandard(obj *object.EntityObject, std *stdRow) error {
	obj.ID = std.id
	obj.Name = std.name.String
	obj.Status = object.StatusFromInt(std.status)
	if std.parentID.Valid {
		id := int(std.parentID.Int64)
		obj.ParentID = &id
	}
	if std.guid.Valid && std.guid.String != "" {
		guid, err := uuid.Parse(std.guid.String)
		if err != nil {
			return errors.Wrapf(err, "stored guid %q is malformed", std.guid.String)
		}
		obj.GUID = guid
	}
	obj.Metadata.CreateUser = std.createUser.String
	obj.Metadata.ChangeUser = std.changeUser.String
	if std.createDate.Valid {
		obj.Metadata.CreateDate = std.createDate.Time.UTC()
	}
	if std.changeDate.Valid {
		obj.Metadata.ChangeDate = std.changeDate.Time.UTC()
	}
	if std.attachments.Valid && std.attachments.String != "" {
		var attachments []object.ObjectAttachment
		if err := json.Unmarshal([]byte(std.attachments.String), &attachments); err != nil {
			return errors.UnprocessableWrap(err, "failed to decode stored attachments")
		}
		obj.SetAttachments(attachments)
	}
	return nil
}

// fieldDest picks the scan destination for one base-field column.
// Relation columns arrive as id arrays from array_agg; other multi-valued
// columns are decoded from the array literal element-wise.
func fieldDest(f model.Field) any {
	if _, ok := f.(*model.RelationField); ok {
		return &pq.Int64Array{}
	}
	if f.Multiple() {
		return &pq.StringArray{}
	}
	switch f.Type() {
	case model.Boolean:
		return &sql.NullBool{}
	case model.Numeric:
		return &sql.NullFloat64{}
	case model.Date, model.DateTime:
		return &sql.NullTime{}
	default:
		// Time columns and textual payloads (string, geometry WKT,
		// attachment JSON) all scan as text.
		return &sql.NullString{}
	}
}

func applyField(obj *object.EntityObject, f model.Field, dest any) error {
	code := strings.ToLower(f.CodeName())

	if rel, ok := f.(*model.RelationField); ok {
		ids := *dest.(*pq.Int64Array)
		attrs := make([]object.Attribute, 0, len(ids))
		for _, id := range ids {
			ref := object.NewEntityObject(rel.Relates())
			ref.ID = int(id)
			attr, err := object.NewAttribute(model.Relation, ref)
			if err != nil {
				return err
			}
			attrs = append(attrs, attr)
		}
		obj.Set(code, attrs...)
		return nil
	}

	if f.Multiple() {
		elems := *dest.(*pq.StringArray)
		attrs := make([]object.Attribute, 0, len(elems))
		for _, elem := range elems {
			attr, err := object.NewAttribute(f.Type(), elem)
			if err != nil {
				return errors.Wrapf(err, "failed to decode %s element %q", code, elem)
			}
			attrs = append(attrs, attr)
		}
		obj.Set(code, attrs...)
		return nil
	}

	raw := singleValue(dest)
	if raw == nil {
		obj.Set(code)
		return nil
	}
	attr, err := object.NewAttribute(f.Type(), raw)
	if err != nil {
		return errors.Wrapf(err, "failed to decode column %s", code)
	}
	obj.Set(code, attr)
	return nil
}

func singleValue(dest any) any {
	switch v := dest.(type) {
	case *sql.NullBool:
		if v.Valid {
			return v.Bool
		}
	case *sql.NullFloat64:
		if v.Valid {
			return v.Float64
		}
	case *sql.NullTime:
		if v.Valid {
			return v.Time.UTC()
		}
	case *sql.NullString:
		if v.Valid {
			return v.String
		}
	}
	return nil
}
