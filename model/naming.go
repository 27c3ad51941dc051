package model

import "strings"

// Database naming rules. One primary table per entity type, one relation
// table per relation-table-style field; reverse-FK relations live as a
// column on the related type's table and need no naming here.
const (
	entityTablePrefix   = "et_"
	relationTablePrefix = "rel_"

	// RelationSrcColumn holds the parent object id in a relation table.
	RelationSrcColumn = "src_id"
	// RelationDstColumn holds the related object id in a relation table.
	RelationDstColumn = "dst_id"
)

// EntityTable returns the primary table name for an entity type code.
func EntityTable(typeCode string) string {
	return entityTablePrefix + strings.ToLower(typeCode)
}

// RelationTable returns the relation table name for a relation-table-style
// field of the given owner type.
func RelationTable(ownerCode string, f *RelationField) string {
	return relationTablePrefix + strings.ToLower(ownerCode) + "_" + strings.ToLower(f.CodeName())
}
