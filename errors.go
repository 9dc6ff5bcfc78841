// Package synapse holds the runtime error contracts shared by code generated
// from a compiled schema: cursor decoding failures, aggregated validation
// failures of domain conversions, and missing records in batched loads.
//
// These errors are recoverable by the caller and are never produced by the
// compiler itself; compile-time failures live in compiler/gen.
package synapse

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for runtime contracts.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("synapse: record not found")

	// ErrInvalidCursor is returned when a pagination cursor cannot be decoded
	// or belongs to a different connection or ordering.
	ErrInvalidCursor = errors.New("synapse: invalid cursor")

	// ErrValidation is returned when a domain conversion fails.
	ErrValidation = errors.New("synapse: validation failed")

	// ErrNotImplemented is returned by generated operations without a
	// default behavior that were not overridden.
	ErrNotImplemented = errors.New("synapse: operation not implemented")
)

// NotFoundError represents an error when a record is not found.
type NotFoundError struct {
	label string
	key   any // Optional: the key that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.key != nil {
		return fmt.Sprintf("synapse: %s not found (key=%v)", e.label, e.key)
	}
	return fmt.Sprintf("synapse: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the record label.
func (e *NotFoundError) Label() string {
	return e.label
}

// Key returns the key that was searched for, if available.
func (e *NotFoundError) Key() any {
	return e.key
}

// NewNotFoundError returns a new NotFoundError for the given record type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithKey returns a new NotFoundError with the key that was
// searched for.
func NewNotFoundErrorWithKey(label string, key any) *NotFoundError {
	return &NotFoundError{label: label, key: key}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// InvalidCursorError is returned when decoding a pagination cursor fails.
// Callers recover by re-requesting without a cursor.
type InvalidCursorError struct {
	Cursor string
	Reason string
	Cause  error
}

// Error returns the error string.
func (e *InvalidCursorError) Error() string {
	var b strings.Builder
	b.WriteString("synapse: invalid cursor")
	if e.Cursor != "" {
		fmt.Fprintf(&b, " %q", e.Cursor)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *InvalidCursorError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrInvalidCursor.
func (e *InvalidCursorError) Is(target error) bool {
	return target == ErrInvalidCursor
}

// NewInvalidCursorError returns a new InvalidCursorError.
func NewInvalidCursorError(cursor, reason string, cause error) *InvalidCursorError {
	return &InvalidCursorError{Cursor: cursor, Reason: reason, Cause: cause}
}

// IsInvalidCursor returns true if the error is an InvalidCursorError.
func IsInvalidCursor(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidCursorError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidCursor)
}

// FieldError is one rule failure of a domain conversion.
type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error returns the error string.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Code)
}

// ValidationError aggregates every rule failure of one conversion attempt.
type ValidationError struct {
	Type   string // Domain type name
	Fields []*FieldError
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("synapse: validation failed")
	if e.Type != "" {
		sb.WriteString(" for ")
		sb.WriteString(e.Type)
	}
	if len(e.Fields) == 1 {
		sb.WriteString(": ")
		sb.WriteString(e.Fields[0].Error())
		return sb.String()
	}
	for i, f := range e.Fields {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, f)
	}
	return sb.String()
}

// Is reports whether the target matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Unwrap returns the field errors so errors.As can reach them.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		errs[i] = f
	}
	return errs
}

// ByField returns the failures of one field.
func (e *ValidationError) ByField(field string) []*FieldError {
	var errs []*FieldError
	for _, f := range e.Fields {
		if f.Field == field {
			errs = append(errs, f)
		}
	}
	return errs
}

// NewValidationError returns a ValidationError if there are failures,
// otherwise nil.
func NewValidationError(typ string, fields ...*FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Type: typ, Fields: fields}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// NotImplementedError names the operation that has no implementation.
type NotImplementedError struct {
	Operation string
}

// Error returns the error string.
func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("synapse: operation %s not implemented", e.Operation)
}

// Is reports whether the target matches ErrNotImplemented.
func (e *NotImplementedError) Is(target error) bool {
	return target == ErrNotImplemented
}

// NewNotImplementedError returns a NotImplementedError for the operation.
func NewNotImplementedError(operation string) *NotImplementedError {
	return &NotImplementedError{Operation: operation}
}
