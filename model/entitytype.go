package model

import (
	"strings"

	"github.com/meridian-gis/entitycore/errors"
)

// EntityType is the immutable, already-resolved schema descriptor the
// engine is invoked with. Field lookup is case-insensitive; declared order
// is preserved because it drives generated SQL column order.
type EntityType struct {
	code   string
	fields []Field
	index  map[string]Field
}

// NewEntityType builds a descriptor from user-defined fields. Field codes
// must be unique per type (case-insensitively) and must not shadow a
// standard field.
func NewEntityType(code string, fields ...Field) (*EntityType, error) {
	t := &EntityType{
		code:   code,
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]Field, len(fields)+10),
	}
	for _, sf := range StandardFields() {
		t.index[strings.ToLower(sf.CodeName())] = sf
	}
	for _, f := range fields {
		key := strings.ToLower(f.CodeName())
		if _, exists := t.index[key]; exists {
			return nil, errors.Newf("duplicate field code %q in entity type %q", f.CodeName(), code)
		}
		t.index[key] = f
		t.fields = append(t.fields, f)
	}
	return t, nil
}

// CodeName returns the entity type code.
func (t *EntityType) CodeName() string { return t.code }

// Fields returns the user-defined fields in declared order.
func (t *EntityType) Fields() []Field {
	out := make([]Field, len(t.fields))
	copy(out, t.fields)
	return out
}

// Field resolves a field (standard or user-defined) by code name,
// case-insensitively.
func (t *EntityType) Field(code string) (Field, bool) {
	f, ok := t.index[strings.ToLower(code)]
	return f, ok
}

// BaseFieldsByCode resolves the given codes to user-defined fields,
// silently dropping unknown codes and standard fields. Used when a caller
// names the attribute subset it wants loaded.
func (t *EntityType) BaseFieldsByCode(codes []string) []Field {
	out := make([]Field, 0, len(codes))
	for _, code := range codes {
		if f, ok := t.Field(code); ok {
			if _, std := f.(StandardField); !std {
				out = append(out, f)
			}
		}
	}
	return out
}
