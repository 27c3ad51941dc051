// Package object holds the in-memory representation of one entity record:
// the EntityObject, its typed attribute values, metadata and attachments,
// plus the conversion factory that wraps raw values into typed attributes.
package object

import "fmt"

// Status is the two-state lifecycle of an entity object. The only
// transitions are activate (INACTIVE -> ACTIVE), soft delete
// (ACTIVE -> INACTIVE) and hard delete (INACTIVE -> removed). Persisted as
// its integer value.
type Status int

const (
	StatusActive Status = iota
	StatusInactive
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusInactive:
		return "INACTIVE"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// StatusFromInt decodes a stored status value. Panics on values outside
// the closed enumeration: a stored row can only hold what the engine
// wrote.
func StatusFromInt(v int) Status {
	if v != int(StatusActive) && v != int(StatusInactive) {
		panic(fmt.Sprintf("object: invalid status value %d", v))
	}
	return Status(v)
}
