package manager

import (
	"github.com/meridian-gis/entitycore/errors"
	"github.com/meridian-gis/entitycore/model"
	"github.com/meridian-gis/entitycore/object"
)

// Validate enforces required-field presence. A new object is checked
// against every field of the type; an existing object only against the
// fields the caller actually supplied, so partial updates may omit
// required fields without clearing them. Violations accumulate instead
// of failing fast.
func Validate(t *model.EntityType, obj *object.EntityObject) error {
	var v errors.Validation

	supplied := object.AttributeValueMap(t, obj)

	if obj.IsNew() {
		byField := make(map[model.Field]any, len(supplied))
		for _, fv := range supplied {
			byField[fv.Field] = fv.Value
		}
		for _, f := range t.Fields() {
			checkRequired(&v, f, byField[f])
		}
		return v.Err()
	}

	for _, fv := range supplied {
		checkRequired(&v, fv.Field, fv.Value)
	}
	return v.Err()
}

// checkRequired rejects a required field whose value is empty: nil for
// single-valued fields, nil or zero-length for multi-valued ones.
func checkRequired(v *errors.Validation, f model.Field, value any) {
	if !f.Required() {
		return
	}
	if f.Multiple() {
		values, _ := value.([]any)
		if len(values) == 0 {
			v.Reject(f.CodeName(), "required multi-valued field has no values")
		}
		return
	}
	if value == nil {
		v.Reject(f.CodeName(), "required field has no value")
	}
}
