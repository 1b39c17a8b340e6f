// Package filter provides the predicate and pagination value types used to
// restrict repository queries. A Filter is a single (field, operator, value)
// triple; a slice of Filters is combined with logical AND. There is no OR
// support and no grouping, deliberately.
package filter

import (
	"reflect"
	"strings"

	"github.com/helixir/structstore/internal/domain"
)

// Operator is one of the closed set of comparison operators a Filter may use.
// The canonical tokens are lowercase, matching the query-string convention
// (`created_at[lte]=...`).
type Operator string

// The supported filter operators.
const (
	EQ  Operator = "eq"  // equal to
	NE  Operator = "ne"  // not equal to
	GT  Operator = "gt"  // greater than
	GTE Operator = "gte" // greater than or equal to
	LT  Operator = "lt"  // less than
	LTE Operator = "lte" // less than or equal to
	IN  Operator = "in"  // set membership
)

// operators is the closed set of valid operators.
var operators = map[Operator]struct{}{
	EQ:  {},
	NE:  {},
	GT:  {},
	GTE: {},
	LT:  {},
	LTE: {},
	IN:  {},
}

// Valid reports whether op is a member of the operator set.
func (op Operator) Valid() bool {
	_, ok := operators[op]
	return ok
}

// ParseOperator converts a string token into an Operator, case-insensitively.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToLower(s))
	if !op.Valid() {
		return "", domain.NewInvalidOperatorError(s)
	}
	return op, nil
}

// Filter is a single field/operator/value predicate. Construct via New so the
// operator is validated eagerly; the zero value is not meaningful.
type Filter struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// New constructs a Filter, validating the operator at construction time.
// IN requires a slice or array value; all other operators take a scalar.
func New(field string, op Operator, value interface{}) (Filter, error) {
	if !op.Valid() {
		return Filter{}, domain.NewInvalidOperatorError(string(op))
	}
	isSequence := false
	if value != nil {
		switch reflect.TypeOf(value).Kind() {
		case reflect.Slice, reflect.Array:
			isSequence = true
		}
	}
	if op == IN && !isSequence {
		return Filter{}, domain.NewValidationError(field, "in operator requires a sequence value")
	}
	if op != IN && isSequence {
		return Filter{}, domain.NewValidationError(field, "operator "+string(op)+" requires a scalar value")
	}
	return Filter{Field: field, Operator: op, Value: value}, nil
}

// MustNew is like New but panics on error. Intended for filters built from
// constants, such as the identity lookup inside the repository.
func MustNew(field string, op Operator, value interface{}) Filter {
	f, err := New(field, op, value)
	if err != nil {
		panic(err)
	}
	return f
}
