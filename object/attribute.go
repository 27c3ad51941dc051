package object

import (
	"fmt"
	"time"

	"github.com/meridian-gis/entitycore/model"
)

// Attribute is one typed value of a field. It is a tagged union over the
// closed model.FieldType set; the payload is nil when the field holds no
// value. A field's value is always carried as []Attribute even for
// single-valued fields, which lets one persistence pipeline cover scalar
// and array storage.
//
// Payload types by tag:
//
//	Boolean    bool
//	Numeric    float64
//	String     string
//	Date       time.Time (date component only)
//	Time       time.Time (clock component only)
//	DateTime   time.Time
//	Relation   *EntityObject (reference: id + entity type, name optional)
//	Geometry   Geometry
//	Attachment string (JSON text)
type Attribute struct {
	fieldType model.FieldType
	value     any
}

// Type returns the attribute's field-type tag.
func (a Attribute) Type() model.FieldType { return a.fieldType }

// Value returns the payload, or nil when the attribute holds no value.
func (a Attribute) Value() any { return a.value }

// IsNull reports whether the attribute holds no value.
func (a Attribute) IsNull() bool { return a.value == nil }

func (a Attribute) String() string {
	if a.value == nil {
		return a.fieldType.String() + "(null)"
	}
	return fmt.Sprintf("%s(%v)", a.fieldType, a.value)
}

// GeometryKind distinguishes the two textual geometry encodings the engine
// accepts and emits.
type GeometryKind int

const (
	WKT GeometryKind = iota
	GeoJSON
)

// Geometry is a geometry payload in textual form. Geometry never travels
// as raw binary: it round-trips through the attribute model as WKT or
// GeoJSON text.
type Geometry struct {
	Kind GeometryKind
	Text string
}

// DetectGeometry wraps geometry text, classifying GeoJSON by its leading
// brace.
func DetectGeometry(text string) Geometry {
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		if r == '{' {
			return Geometry{Kind: GeoJSON, Text: text}
		}
		break
	}
	return Geometry{Kind: WKT, Text: text}
}

// Layouts accepted for temporal attribute text. ISO-8601 with either the
// canonical 'T' separator or the space form Postgres emits.
var (
	dateLayouts     = []string{"2006-01-02"}
	timeLayouts     = []string{"15:04:05.999999999", "15:04:05", "15:04"}
	dateTimeLayouts = []string{
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999-07",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
	}
)

func parseTemporal(layouts []string, text string) (time.Time, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, text)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
