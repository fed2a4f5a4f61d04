package validator

// Validator validates a struct and returns a ValidationError (field to
// message) when tags are violated.
type Validator interface {
	Validate(data any) error
}
