// Package uid generates identifiers: UUIDv7 strings for correlation and event
// ids, snowflake integers for database keys.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates positive, roughly time-ordered int64 identifiers.
type NumberID interface {
	Generate() int64
}
