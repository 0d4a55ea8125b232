// Package domain holds the validated value types shared by the publish
// path, the delivery worker and the subscription handlers. Values of these
// types can only be obtained through their Parse functions.
package domain

import "fmt"

// ValidationError reports why a raw input was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
