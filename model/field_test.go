package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStandardFieldSpecs tests the fixed column set every type carries
func TestStandardFieldSpecs(t *testing.T) {
	testCases := []struct {
		field     StandardField
		code      string
		fieldType FieldType
	}{
		{StdID, "id", Numeric},
		{StdName, "name", String},
		{StdStatus, "status", Numeric},
		{StdParentID, "parent_id", Numeric},
		{StdGUID, "guid", String},
		{StdCreateUser, "create_user", String},
		{StdCreateDate, "create_date", DateTime},
		{StdChangeUser, "change_user", String},
		{StdChangeDate, "change_date", DateTime},
		{StdAttachments, "attachments", Attachment},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			assert.Equal(t, tc.code, tc.field.CodeName())
			assert.Equal(t, tc.fieldType, tc.field.Type())
			assert.False(t, tc.field.Multiple())
			assert.False(t, tc.field.Required())
		})
	}

	assert.Len(t, StandardFields(), len(testCases))
}

// TestStandardFieldInvalid tests that an unknown standard field is fatal
func TestStandardFieldInvalid(t *testing.T) {
	assert.Panics(t, func() {
		_ = StandardField(99).CodeName()
	})
}

// TestNewBaseFieldInvalidType tests that an unknown field type is fatal
func TestNewBaseFieldInvalidType(t *testing.T) {
	assert.Panics(t, func() {
		NewBaseField("height", FieldType(42), false, false)
	})
}

// TestEntityTypeFieldLookup tests case-insensitive field resolution
func TestEntityTypeFieldLookup(t *testing.T) {
	et, err := NewEntityType("asset",
		NewBaseField("Label", String, false, true),
		NewBaseField("tags", Numeric, true, false),
	)
	require.NoError(t, err)

	testCases := []struct {
		name  string
		code  string
		found bool
	}{
		{"exact casing", "Label", true},
		{"lower casing", "label", true},
		{"upper casing", "LABEL", true},
		{"standard field", "create_user", true},
		{"standard field mixed case", "Create_User", true},
		{"unknown field", "missing", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := et.Field(tc.code)
			assert.Equal(t, tc.found, ok)
		})
	}
}

// TestEntityTypeDuplicateField tests that duplicate codes are rejected
func TestEntityTypeDuplicateField(t *testing.T) {
	_, err := NewEntityType("asset",
		NewBaseField("label", String, false, false),
		NewBaseField("LABEL", Numeric, false, false),
	)
	assert.Error(t, err)
}

// TestBaseFieldsByCode tests resolution drops unknown and standard codes
func TestBaseFieldsByCode(t *testing.T) {
	et, err := NewEntityType("asset",
		NewBaseField("label", String, false, true),
		NewBaseField("tags", Numeric, true, false),
	)
	require.NoError(t, err)

	fields := et.BaseFieldsByCode([]string{"label", "missing", "id", "TAGS"})
	require.Len(t, fields, 2)
	assert.Equal(t, "label", fields[0].CodeName())
	assert.Equal(t, "tags", fields[1].CodeName())
}

// TestRelationFieldStyles tests the two relation persistence styles
func TestRelationFieldStyles(t *testing.T) {
	joined := NewRelationField("parts", true, false, "part")
	assert.True(t, joined.HasRelationTable())
	assert.Equal(t, "part", joined.Relates())

	reverse := NewReverseRelationField("children", true, false, "node", "owner_id")
	assert.False(t, reverse.HasRelationTable())
	assert.Equal(t, "owner_id", reverse.ReverseField())

	assert.False(t, InnerField(joined))
	assert.True(t, InnerField(NewBaseField("label", String, false, false)))
}

// TestNaming tests table naming rules
func TestNaming(t *testing.T) {
	assert.Equal(t, "et_asset", EntityTable("Asset"))

	f := NewRelationField("Parts", true, false, "part")
	assert.Equal(t, "rel_asset_parts", RelationTable("Asset", f))
}
