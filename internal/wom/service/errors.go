package service

import "fmt"

// ValidationError reports a request field that failed a rule. No state is
// mutated when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PolicyError reports an operation rejected by a business rule rather than a
// malformed field (e.g. adding a note to an order that is not in progress).
type PolicyError struct {
	Message string
}

func (e *PolicyError) Error() string {
	return e.Message
}
