package errors

import (
	"strings"

	crdb "github.com/cockroachdb/errors"
)

// Sentinel markers for the engine's error taxonomy. Callers classify with
// errors.Is; the concrete errors carry resource names and details on top.
var (
	// ErrNotFound covers missing entity types, objects, fields and
	// attachments. Maps to a missing-resource response at the boundary.
	ErrNotFound = crdb.New("not found")

	// ErrConflict covers activate-on-active and duplicate attachment guids.
	ErrConflict = crdb.New("conflict")

	// ErrUnprocessable covers malformed input: unparseable values,
	// unsupported attribute conversions, bad condition text.
	ErrUnprocessable = crdb.New("unprocessable input")

	// ErrGeometry covers driver spatial output that fails the expected
	// textual pattern.
	ErrGeometry = crdb.New("geometry processing")

	// ErrLimitExceeded is a quota rejection, raised before any write.
	ErrLimitExceeded = crdb.New("limit exceeded")
)

// NotFoundf builds a not-found error for a named resource.
func NotFoundf(format string, args ...any) error {
	return crdb.WithStackDepth(crdb.Mark(crdb.Newf(format, args...), ErrNotFound), 1)
}

// Conflictf builds a conflict error.
func Conflictf(format string, args ...any) error {
	return crdb.WithStackDepth(crdb.Mark(crdb.Newf(format, args...), ErrConflict), 1)
}

// Unprocessablef builds an unprocessable-input error.
func Unprocessablef(format string, args ...any) error {
	return crdb.WithStackDepth(crdb.Mark(crdb.Newf(format, args...), ErrUnprocessable), 1)
}

// UnprocessableWrap wraps a parse failure as unprocessable input.
func UnprocessableWrap(err error, msg string) error {
	return crdb.Mark(crdb.Wrap(err, msg), ErrUnprocessable)
}

// Geometryf builds a geometry-processing error.
func Geometryf(format string, args ...any) error {
	return crdb.WithStackDepth(crdb.Mark(crdb.Newf(format, args...), ErrGeometry), 1)
}

// GeometryWrap wraps a spatial query failure.
func GeometryWrap(err error, msg string) error {
	return crdb.Mark(crdb.Wrap(err, msg), ErrGeometry)
}

// LimitExceededf builds a quota rejection for a limit key.
func LimitExceededf(format string, args ...any) error {
	return crdb.WithStackDepth(crdb.Mark(crdb.Newf(format, args...), ErrLimitExceeded), 1)
}

// Validation accumulates required-field violations. It is not fail-fast:
// the validator collects every violation before the caller inspects it.
type Validation struct {
	Violations []FieldViolation
}

// FieldViolation names one rejected field.
type FieldViolation struct {
	Field   string
	Message string
}

func (v *Validation) Error() string {
	if len(v.Violations) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, fv := range v.Violations {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(fv.Field)
		b.WriteString(": ")
		b.WriteString(fv.Message)
	}
	return b.String()
}

// Reject records a violation for a field.
func (v *Validation) Reject(field, message string) {
	v.Violations = append(v.Violations, FieldViolation{Field: field, Message: message})
}

// Valid reports whether no violations were recorded.
func (v *Validation) Valid() bool {
	return len(v.Violations) == 0
}

// Err returns the accumulated error, or nil when valid.
func (v *Validation) Err() error {
	if v.Valid() {
		return nil
	}
	return v
}

// IsValidation reports whether err is an accumulated validation failure.
func IsValidation(err error) bool {
	var v *Validation
	return As(err, &v)
}
