package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a record with a conflicting unique field already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidOperator indicates a filter was built with an operator outside the closed set.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrUnknownField indicates a filter or patch references a field absent from the schema.
	ErrUnknownField = errors.New("unknown field")

	// ErrNotPatchable indicates a partial update supplied a field outside the patchable allow-list.
	ErrNotPatchable = errors.New("field not patchable")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found record.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AlreadyExistsError provides details about a duplicate record.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AlreadyExistsError) Unwrap() error {
	return ErrAlreadyExists
}

// InvalidOperatorError reports a filter operator outside the supported set.
type InvalidOperatorError struct {
	Operator string
}

// Error implements the error interface.
func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("invalid filter operator: %q", e.Operator)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *InvalidOperatorError) Unwrap() error {
	return ErrInvalidOperator
}

// UnknownFieldError reports a field name that does not exist on the backing schema.
type UnknownFieldError struct {
	Entity string
	Field  string
}

// Error implements the error interface.
func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q on %s", e.Field, e.Entity)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *UnknownFieldError) Unwrap() error {
	return ErrUnknownField
}

// NotPatchableError reports a partial-update field outside the patchable allow-list.
type NotPatchableError struct {
	Entity string
	Field  string
}

// Error implements the error interface.
func (e *NotPatchableError) Error() string {
	return fmt.Sprintf("field %q of %s is not patchable", e.Field, e.Entity)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotPatchableError) Unwrap() error {
	return ErrNotPatchable
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewInvalidOperatorError creates a new InvalidOperatorError.
func NewInvalidOperatorError(operator string) *InvalidOperatorError {
	return &InvalidOperatorError{Operator: operator}
}

// NewUnknownFieldError creates a new UnknownFieldError.
func NewUnknownFieldError(entity, field string) *UnknownFieldError {
	return &UnknownFieldError{
		Entity: entity,
		Field:  field,
	}
}

// NewNotPatchableError creates a new NotPatchableError.
func NewNotPatchableError(entity, field string) *NotPatchableError {
	return &NotPatchableError{
		Entity: entity,
		Field:  field,
	}
}
