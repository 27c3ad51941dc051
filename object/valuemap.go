package object

import (
	"github.com/meridian-gis/entitycore/model"
)

// FieldValue pairs a resolved field with its write value. Multiple fields
// carry a []any, single fields carry the attribute payload or nil.
type FieldValue struct {
	Field model.Field
	Value any
}

// AttributeValueMap resolves the object's supplied attributes against the
// entity type's base fields, in attribute insertion order. Fields absent
// from the object are skipped, so partial updates touch only supplied
// columns. Unresolvable codes and standard-field codes are dropped.
func AttributeValueMap(entityType *model.EntityType, obj *EntityObject) []FieldValue {
	var out []FieldValue
	for _, code := range obj.Attributes().Fields() {
		field, ok := entityType.Field(code)
		if !ok {
			continue
		}
		if _, std := field.(model.StandardField); std {
			continue
		}
		attrs, _ := obj.Get(code)
		out = append(out, FieldValue{Field: field, Value: fieldValue(field, attrs)})
	}
	return out
}

// FullAttributeValueMap prepends the standard fields to the resolved
// attribute values, giving the complete column set of an insert.
func FullAttributeValueMap(entityType *model.EntityType, obj *EntityObject) []FieldValue {
	var out []FieldValue
	for _, sf := range model.StandardFields() {
		out = append(out, FieldValue{Field: sf, Value: obj.StandardFieldValue(sf)})
	}
	return append(out, AttributeValueMap(entityType, obj)...)
}

func fieldValue(field model.Field, attrs []Attribute) any {
	if field.Multiple() {
		values := make([]any, 0, len(attrs))
		for _, a := range attrs {
			if !a.IsNull() {
				values = append(values, a.Value())
			}
		}
		return values
	}
	if len(attrs) == 0 || attrs[0].IsNull() {
		return nil
	}
	return attrs[0].Value()
}
