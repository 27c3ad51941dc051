// Package model defines the runtime schema descriptors the engine operates
// over: the field-type taxonomy, standard and user-defined fields, the
// immutable EntityType descriptor, and the database naming rules derived
// from it.
package model

import "fmt"

// FieldType is the closed tag over attribute value kinds. Every dispatch on
// it must be exhaustive; an unknown tag is a programmer error and panics.
type FieldType int

const (
	Boolean FieldType = iota
	Numeric
	String
	Date
	Time
	DateTime
	Relation
	Geometry
	Attachment
)

var fieldTypeNames = map[FieldType]string{
	Boolean:    "BOOLEAN",
	Numeric:    "NUMERIC",
	String:     "STRING",
	Date:       "DATE",
	Time:       "TIME",
	DateTime:   "DATE_TIME",
	Relation:   "RELATION",
	Geometry:   "GEOMETRY",
	Attachment: "ATTACHMENT",
}

func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Valid reports whether t is one of the known tags.
func (t FieldType) Valid() bool {
	_, ok := fieldTypeNames[t]
	return ok
}
