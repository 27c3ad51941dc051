package object

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meridian-gis/entitycore/errors"
	"github.com/meridian-gis/entitycore/model"
)

// converters is the single conversion table keyed by field-type tag. Each
// converter receives a non-nil raw value of unknown static type and
// produces the payload for that tag, or an error naming the target type.
var converters map[model.FieldType]func(raw any) (any, error)

func init() {
	converters = map[model.FieldType]func(raw any) (any, error){
		model.Boolean:    convertBoolean,
		model.Numeric:    convertNumeric,
		model.String:     convertString,
		model.Date:       convertDate,
		model.Time:       convertTime,
		model.DateTime:   convertDateTime,
		model.Relation:   convertRelation,
		model.Geometry:   convertGeometry,
		model.Attachment: convertAttachment,
	}
}

// NewAttribute wraps a raw value into the attribute variant matching
// fieldType. A nil raw value yields a null attribute of that type, never
// an error. An unknown field type is a programmer error and panics.
func NewAttribute(fieldType model.FieldType, raw any) (Attribute, error) {
	convert, ok := converters[fieldType]
	if !ok {
		panic(fmt.Sprintf("object: unsupported field type %d", int(fieldType)))
	}
	if raw == nil {
		return Attribute{fieldType: fieldType}, nil
	}
	value, err := convert(raw)
	if err != nil {
		return Attribute{}, err
	}
	return Attribute{fieldType: fieldType, value: value}, nil
}

// NullAttribute returns the null attribute of the given type.
func NullAttribute(fieldType model.FieldType) Attribute {
	a, _ := NewAttribute(fieldType, nil)
	return a
}

// NewAttributeFromEpochText is the bulk-conversion entry point for
// column-oriented sources that carry every value as text and temporal
// values as epoch milliseconds. Blank text yields a null attribute of the
// requested type; types without an epoch rule convert through the
// standard table, so the attribute's tag always matches the field's.
func NewAttributeFromEpochText(fieldType model.FieldType, text string) (Attribute, error) {
	if strings.TrimSpace(text) == "" {
		return NewAttribute(fieldType, nil)
	}
	switch fieldType {
	case model.Boolean:
		v, err := strconv.ParseBool(text)
		if err != nil {
			return Attribute{}, conversionError(fieldType, text)
		}
		return Attribute{fieldType: fieldType, value: v}, nil
	case model.Numeric:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Attribute{}, conversionError(fieldType, text)
		}
		return Attribute{fieldType: fieldType, value: v}, nil
	case model.Date, model.Time, model.DateTime:
		millis, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Attribute{}, conversionError(fieldType, text)
		}
		return Attribute{fieldType: fieldType, value: time.UnixMilli(millis).UTC()}, nil
	default:
		return NewAttribute(fieldType, text)
	}
}

func conversionError(fieldType model.FieldType, raw any) error {
	return errors.Unprocessablef("failed to convert %T value to attribute type %s", raw, fieldType)
}

func convertBoolean(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, conversionError(model.Boolean, raw)
		}
		return b, nil
	}
	return nil, conversionError(model.Boolean, raw)
}

func convertNumeric(raw any) (any, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, conversionError(model.Numeric, raw)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, conversionError(model.Numeric, raw)
		}
		return f, nil
	}
	return nil, conversionError(model.Numeric, raw)
}

func convertString(raw any) (any, error) {
	if s, ok := raw.(string); ok {
		return s, nil
	}
	return nil, conversionError(model.String, raw)
}

func convertDate(raw any) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := parseTemporal(dateLayouts, v)
		if err != nil {
			return nil, conversionError(model.Date, raw)
		}
		return t, nil
	}
	return nil, conversionError(model.Date, raw)
}

func convertTime(raw any) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := parseTemporal(timeLayouts, v)
		if err != nil {
			return nil, conversionError(model.Time, raw)
		}
		return t, nil
	}
	return nil, conversionError(model.Time, raw)
}

func convertDateTime(raw any) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		t, err := parseTemporal(dateTimeLayouts, v)
		if err != nil {
			return nil, conversionError(model.DateTime, raw)
		}
		return t, nil
	}
	return nil, conversionError(model.DateTime, raw)
}

func convertRelation(raw any) (any, error) {
	switch v := raw.(type) {
	case *EntityObject:
		return v, nil
	case string:
		ref, err := ParseReference(v)
		if err != nil {
			return nil, err
		}
		return ref, nil
	case map[string]any:
		return referenceFromMap(v)
	}
	return nil, conversionError(model.Relation, raw)
}

func convertGeometry(raw any) (any, error) {
	switch v := raw.(type) {
	case Geometry:
		return v, nil
	case string:
		return DetectGeometry(v), nil
	}
	return nil, conversionError(model.Geometry, raw)
}

func convertAttachment(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []ObjectAttachment:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, errors.UnprocessableWrap(err, "failed to encode attachments")
		}
		return string(encoded), nil
	}
	return nil, conversionError(model.Attachment, raw)
}

// ParseReference decodes a JSON-encoded object reference into a reference
// EntityObject carrying at least an id and optionally entity type and
// name.
func ParseReference(text string) (*EntityObject, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, errors.UnprocessableWrap(err, "failed to parse object reference")
	}
	return referenceFromMap(m)
}

func referenceFromMap(m map[string]any) (*EntityObject, error) {
	rawID, ok := m["id"]
	if !ok {
		return nil, errors.Unprocessablef("object reference has no id")
	}
	var id int
	switch v := rawID.(type) {
	case float64:
		id = int(v)
	case int:
		id = v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, errors.Unprocessablef("object reference id %q is not an integer", v.String())
		}
		id = int(n)
	default:
		return nil, errors.Unprocessablef("object reference id has unsupported type %T", rawID)
	}

	ref := NewEntityObject("")
	ref.ID = id
	if et, ok := m["entityType"].(string); ok {
		ref.EntityType = et
	}
	if name, ok := m["name"].(string); ok {
		ref.Name = name
	}
	return ref, nil
}
