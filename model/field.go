package model

import "fmt"

// Field describes one attribute slot of an entity type. Concrete variants
// are StandardField, *BaseField, *RelationField and *GeometryField; code
// that needs variant-specific behavior type-switches over them.
type Field interface {
	CodeName() string
	Type() FieldType
	Multiple() bool
	Required() bool
}

// StandardField is one of the fixed fields every entity type carries. They
// are stored as dedicated columns and are never user-defined.
type StandardField int

const (
	StdID StandardField = iota
	StdName
	StdStatus
	StdParentID
	StdGUID
	StdCreateUser
	StdCreateDate
	StdChangeUser
	StdChangeDate
	StdAttachments
)

type standardFieldSpec struct {
	code      string
	fieldType FieldType
}

var standardFieldSpecs = map[StandardField]standardFieldSpec{
	StdID:          {"id", Numeric},
	StdName:        {"name", String},
	StdStatus:      {"status", Numeric},
	StdParentID:    {"parent_id", Numeric},
	StdGUID:        {"guid", String},
	StdCreateUser:  {"create_user", String},
	StdCreateDate:  {"create_date", DateTime},
	StdChangeUser:  {"change_user", String},
	StdChangeDate:  {"change_date", DateTime},
	StdAttachments: {"attachments", Attachment},
}

func (f StandardField) spec() standardFieldSpec {
	s, ok := standardFieldSpecs[f]
	if !ok {
		panic(fmt.Sprintf("model: invalid standard field %d", int(f)))
	}
	return s
}

func (f StandardField) CodeName() string { return f.spec().code }
func (f StandardField) Type() FieldType  { return f.spec().fieldType }
func (f StandardField) Multiple() bool   { return false }
func (f StandardField) Required() bool   { return false }

// StandardFields returns the fixed field set in column order.
func StandardFields() []StandardField {
	return []StandardField{
		StdID, StdName, StdStatus, StdParentID, StdGUID,
		StdCreateUser, StdCreateDate, StdChangeUser, StdChangeDate,
		StdAttachments,
	}
}

// BaseField is a user-defined field on an entity type.
type BaseField struct {
	code      string
	fieldType FieldType
	multiple  bool
	required  bool
}

// NewBaseField builds a user-defined field descriptor. Panics on an unknown
// field type: descriptors come from resolved schemas, so a bad tag is a
// schema/code mismatch.
func NewBaseField(code string, fieldType FieldType, multiple, required bool) *BaseField {
	if !fieldType.Valid() {
		panic(fmt.Sprintf("model: invalid field type %d for field %q", int(fieldType), code))
	}
	return &BaseField{code: code, fieldType: fieldType, multiple: multiple, required: required}
}

func (f *BaseField) CodeName() string { return f.code }
func (f *BaseField) Type() FieldType  { return f.fieldType }
func (f *BaseField) Multiple() bool   { return f.multiple }
func (f *BaseField) Required() bool   { return f.required }

// RelationField references objects of another entity type. It is persisted
// either through a dedicated relation table or through a reverse
// foreign-key column on the related type's table.
type RelationField struct {
	BaseField
	relates      string
	relationTab  bool
	reverseField string
}

// NewRelationField builds a relation persisted through a relation table.
func NewRelationField(code string, multiple, required bool, relates string) *RelationField {
	return &RelationField{
		BaseField:   BaseField{code: code, fieldType: Relation, multiple: multiple, required: required},
		relates:     relates,
		relationTab: true,
	}
}

// NewReverseRelationField builds a relation persisted through reverseField,
// a foreign-key column on the related type's table pointing back at the
// parent.
func NewReverseRelationField(code string, multiple, required bool, relates, reverseField string) *RelationField {
	return &RelationField{
		BaseField:    BaseField{code: code, fieldType: Relation, multiple: multiple, required: required},
		relates:      relates,
		reverseField: reverseField,
	}
}

// Relates returns the target entity type code.
func (f *RelationField) Relates() string { return f.relates }

// HasRelationTable reports whether the relation is persisted through a
// dedicated relation table rather than a reverse foreign key.
func (f *RelationField) HasRelationTable() bool { return f.relationTab }

// ReverseField returns the reverse foreign-key column name; empty for
// relation-table persistence.
func (f *RelationField) ReverseField() string { return f.reverseField }

// GeometryField is a spatial field stored in a fixed coordinate reference
// system.
type GeometryField struct {
	BaseField
	crs int
}

// NewGeometryField builds a geometry field stored under the given SRID.
func NewGeometryField(code string, multiple, required bool, crs int) *GeometryField {
	return &GeometryField{
		BaseField: BaseField{code: code, fieldType: Geometry, multiple: multiple, required: required},
		crs:       crs,
	}
}

// CRS returns the stored projection (SRID).
func (f *GeometryField) CRS() int { return f.crs }

// InnerField reports whether f is stored as a column on the entity's own
// table. Every field except relations is inner.
func InnerField(f Field) bool {
	_, isRelation := f.(*RelationField)
	return !isRelation
}
