// Package domain provides the record types and error taxonomy for structstore.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// validate is the shared validator instance. validator.Validate is safe for
// concurrent use and caches struct metadata, so a single instance is enough.
var validate = validator.New()

// User is the demo record type served by structstore. It carries the usual
// shape of a stored record: a caller-generated identity, business fields, and
// a pair of store-generated timestamps that are nil until the row has been
// written at least once.
type User struct {
	ID       string `db:"id" json:"id" validate:"required"`
	Username string `db:"username" json:"username" validate:"required,min=3,max=64"`
	Email    string `db:"email" json:"email" validate:"required,email"`
	FullName string `db:"full_name" json:"full_name,omitempty" validate:"max=128"`
	Active   bool   `db:"active" json:"active"`

	// Store-generated. Nil until the database has computed them; the record
	// adapter drops nil values so an explicit NULL is never written.
	CreatedAt *time.Time `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// NewUser constructs a User with a generated identity, active by default.
func NewUser(username, email string) *User {
	return &User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		Active:   true,
	}
}

// Validate runs struct validation and reports the first failing field as a
// ValidationError.
func (u *User) Validate() error {
	return ValidateRecord(u)
}

// ValidateRecord validates any record type with `validate` struct tags,
// translating validator failures into the domain error taxonomy. Only the
// first failing field is reported; callers wanting the full list should use
// ValidationMessages on the returned error.
func ValidateRecord(rec interface{}) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &recordValidationError{
			ValidationError: ValidationError{
				Field:   strings.ToLower(verrs[0].Field()),
				Message: "failed " + verrs[0].Tag() + " validation",
			},
			causes: verrs,
		}
	}
	return NewValidationError("record", err.Error())
}

// recordValidationError carries the full validator failure list behind a
// domain ValidationError so HTTP bodies can enumerate every failing field.
type recordValidationError struct {
	ValidationError
	causes validator.ValidationErrors
}

// ValidationMessages flattens a validation error into field-keyed messages
// for HTTP error bodies. Non-validation errors produce a single generic entry.
func ValidationMessages(err error) []string {
	var rve *recordValidationError
	if errors.As(err, &rve) {
		msgs := make([]string, 0, len(rve.causes))
		for _, fe := range rve.causes {
			msgs = append(msgs, strings.ToLower(fe.Field())+": failed "+fe.Tag()+" validation")
		}
		return msgs
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return []string{ve.Field + ": " + ve.Message}
	}
	return []string{err.Error()}
}
