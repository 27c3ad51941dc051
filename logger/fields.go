package logger

// Standard field names for structured logging. Use these constants instead
// of raw strings so log queries stay consistent across packages.
const (
	FieldEntityType = "entity_type"
	FieldObjectID   = "object_id"
	FieldObjectGUID = "object_guid"
	FieldField      = "field"
	FieldSRID       = "srid"

	FieldOperation = "operation"
	FieldQuery     = "query"
	FieldDuration  = "duration_ms"

	FieldCount = "count"
	FieldPage  = "page"
	FieldSize  = "size"

	FieldError = "error"
	FieldUser  = "user"
)
