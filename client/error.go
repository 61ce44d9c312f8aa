package client

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidConfig marks a client configuration rejected by [Build].
	ErrInvalidConfig = errors.New("invalid client configuration")

	// ErrNilRequest is reported when a nil request is submitted.
	ErrNilRequest = errors.New("request must not be nil")

	// ErrAlreadySubmitted is reported when a request is submitted more
	// than once; a request represents a single attempt.
	ErrAlreadySubmitted = errors.New("request already submitted")
)

// FieldError represents a single validation error for a specific
// configuration field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors represents a collection of field errors.
type FieldErrors []FieldError

// Error implements the error interface, returning a human-readable
// summary of all field errors.
func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return strings.Join(parts, "; ")
}

// Unwrap ties every validation failure back to [ErrInvalidConfig].
func (fe FieldErrors) Unwrap() error {
	return ErrInvalidConfig
}
