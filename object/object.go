package object

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-gis/entitycore/model"
)

// Attributes is a case-insensitive mapping from field code to an ordered
// list of attribute values. Insertion order of keys is preserved because
// it drives generated SQL column order. An absent key means "not
// loaded/not set"; a present key with an empty list means "explicitly
// cleared".
type Attributes struct {
	keys   []string
	values map[string][]Attribute
}

// NewAttributes returns an empty attribute map.
func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string][]Attribute)}
}

func (m *Attributes) key(field string) string { return strings.ToLower(field) }

// Add appends values under field, creating the (possibly empty) entry if
// absent.
func (m *Attributes) Add(field string, attrs ...Attribute) {
	k := m.key(field)
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, field)
		m.values[k] = []Attribute{}
	}
	m.values[k] = append(m.values[k], attrs...)
}

// Set replaces the entry for field. Set with no attributes stores an
// explicit empty list.
func (m *Attributes) Set(field string, attrs ...Attribute) {
	k := m.key(field)
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, field)
	}
	if attrs == nil {
		attrs = []Attribute{}
	}
	m.values[k] = attrs
}

// Get returns the values for field and whether the field is present.
func (m *Attributes) Get(field string) ([]Attribute, bool) {
	v, ok := m.values[m.key(field)]
	return v, ok
}

// Fields returns the field codes in insertion order.
func (m *Attributes) Fields() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of present fields.
func (m *Attributes) Len() int { return len(m.keys) }

// Clone returns a deep-enough copy (attribute values are immutable).
func (m *Attributes) Clone() *Attributes {
	c := NewAttributes()
	for _, field := range m.keys {
		vals, _ := m.Get(field)
		c.Set(field, append([]Attribute(nil), vals...)...)
	}
	return c
}

// EntityObject is the in-memory representation of one record of a runtime-
// defined entity type.
type EntityObject struct {
	// ID <= 0 means the object has not been persisted yet.
	ID int

	// GUID is assigned on first persist and immutable afterwards;
	// uuid.Nil means unassigned.
	GUID uuid.UUID

	EntityType string
	Name       string
	Metadata   Metadata
	Status     Status
	ParentID   *int

	// CheckRule controls whether business-rule checks run on save.
	// Transient.
	CheckRule bool

	attributes  *Attributes
	attachments []ObjectAttachment
}

// NewEntityObject builds an empty active object of the given type with
// rule checks enabled.
func NewEntityObject(entityType string) *EntityObject {
	return &EntityObject{
		EntityType: entityType,
		Status:     StatusActive,
		CheckRule:  true,
		attributes: NewAttributes(),
	}
}

// IsNew reports whether the object has not been persisted yet.
func (o *EntityObject) IsNew() bool { return o.ID <= 0 }

// Attributes returns the object's attribute map.
func (o *EntityObject) Attributes() *Attributes {
	if o.attributes == nil {
		o.attributes = NewAttributes()
	}
	return o.attributes
}

// SetAttributes replaces the attribute map with a copy of attrs.
func (o *EntityObject) SetAttributes(attrs *Attributes) {
	if attrs == nil {
		o.attributes = NewAttributes()
		return
	}
	o.attributes = attrs.Clone()
}

// Add appends attribute values under field.
func (o *EntityObject) Add(field string, attrs ...Attribute) {
	o.Attributes().Add(field, attrs...)
}

// Set replaces the values under field.
func (o *EntityObject) Set(field string, attrs ...Attribute) {
	o.Attributes().Set(field, attrs...)
}

// Get returns the values for field and whether the field was supplied.
func (o *EntityObject) Get(field string) ([]Attribute, bool) {
	return o.Attributes().Get(field)
}

// GetSingle returns the first value for field, if any.
func (o *EntityObject) GetSingle(field string) (Attribute, bool) {
	vals, ok := o.Attributes().Get(field)
	if !ok || len(vals) == 0 {
		return Attribute{}, false
	}
	return vals[0], true
}

// SingleValue resolves the single value of a field, standard or
// user-defined. Returns nil when the field holds no value.
func (o *EntityObject) SingleValue(field model.Field) any {
	if sf, ok := field.(model.StandardField); ok {
		return o.StandardFieldValue(sf)
	}
	attr, ok := o.GetSingle(field.CodeName())
	if !ok {
		return nil
	}
	return attr.Value()
}

// Attachments returns the attachment list.
func (o *EntityObject) Attachments() []ObjectAttachment { return o.attachments }

// SetAttachments replaces the attachment list; nil becomes empty.
func (o *EntityObject) SetAttachments(attachments []ObjectAttachment) {
	if attachments == nil {
		attachments = []ObjectAttachment{}
	}
	o.attachments = attachments
}

// AddAttachment appends one attachment.
func (o *EntityObject) AddAttachment(a ObjectAttachment) {
	o.attachments = append(o.attachments, a)
}

// RemoveAttachment removes the attachment with the given guid, reporting
// whether it was present.
func (o *EntityObject) RemoveAttachment(guid string) bool {
	for i, a := range o.attachments {
		if a.GUID == guid {
			o.attachments = append(o.attachments[:i], o.attachments[i+1:]...)
			return true
		}
	}
	return false
}

// FindAttachment returns the attachment with the given guid.
func (o *EntityObject) FindAttachment(guid string) (ObjectAttachment, bool) {
	for _, a := range o.attachments {
		if a.GUID == guid {
			return a, true
		}
	}
	return ObjectAttachment{}, false
}

// StandardFieldValue returns the current value of a standard field, nil
// when unset. Status is returned as its stored integer value.
func (o *EntityObject) StandardFieldValue(field model.StandardField) any {
	switch field {
	case model.StdID:
		return o.ID
	case model.StdName:
		if o.Name == "" {
			return nil
		}
		return o.Name
	case model.StdStatus:
		return int(o.Status)
	case model.StdParentID:
		if o.ParentID == nil {
			return nil
		}
		return *o.ParentID
	case model.StdGUID:
		if o.GUID == uuid.Nil {
			return nil
		}
		return o.GUID
	case model.StdCreateUser:
		return nilIfEmpty(o.Metadata.CreateUser)
	case model.StdCreateDate:
		return nilIfZeroTime(o.Metadata.CreateDate)
	case model.StdChangeUser:
		return nilIfEmpty(o.Metadata.ChangeUser)
	case model.StdChangeDate:
		return nilIfZeroTime(o.Metadata.ChangeDate)
	case model.StdAttachments:
		return o.attachments
	}
	panic(fmt.Sprintf("object: invalid standard field %d", int(field)))
}

// SetStandardFieldValue assigns a standard field from a raw value, used
// when decoding rows. A nil value resets the field to its zero state.
func (o *EntityObject) SetStandardFieldValue(field model.StandardField, value any) {
	switch field {
	case model.StdID:
		o.ID = toInt(value)
	case model.StdName:
		if value == nil {
			o.Name = ""
		} else {
			o.Name = fmt.Sprintf("%v", value)
		}
	case model.StdStatus:
		if value == nil {
			o.Status = StatusActive
		} else {
			o.Status = StatusFromInt(toInt(value))
		}
	case model.StdParentID:
		if value == nil {
			o.ParentID = nil
		} else {
			id := toInt(value)
			o.ParentID = &id
		}
	case model.StdGUID:
		switch v := value.(type) {
		case nil:
			o.GUID = uuid.Nil
		case uuid.UUID:
			o.GUID = v
		case string:
			o.GUID = uuid.MustParse(v)
		default:
			panic(fmt.Sprintf("object: unsupported guid value %T", value))
		}
	case model.StdCreateUser:
		o.Metadata.CreateUser = stringOrEmpty(value)
	case model.StdCreateDate:
		o.Metadata.CreateDate = timeOrZero(value)
	case model.StdChangeUser:
		o.Metadata.ChangeUser = stringOrEmpty(value)
	case model.StdChangeDate:
		o.Metadata.ChangeDate = timeOrZero(value)
	case model.StdAttachments:
		if value == nil {
			o.SetAttachments(nil)
		} else {
			o.SetAttachments(value.([]ObjectAttachment))
		}
	default:
		panic(fmt.Sprintf("object: invalid standard field %d", int(field)))
	}
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nilIfZeroTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func toInt(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	panic(fmt.Sprintf("object: unsupported integer value %T", value))
}

func stringOrEmpty(value any) string {
	if value == nil {
		return ""
	}
	return value.(string)
}

func timeOrZero(value any) time.Time {
	if value == nil {
		return time.Time{}
	}
	return value.(time.Time)
}
