package repository

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/iancoleman/strcase"

	"github.com/helixir/structstore/internal/domain"
)

// Default schema conventions.
const (
	defaultIDColumn = "id"
)

// defaultGenerated lists the columns the store computes on insert/update
// unless the schema declares otherwise.
var defaultGenerated = []string{"created_at", "updated_at"}

// Schema describes how one record type maps onto its backing table: the
// table name, the identity column, the columns the store generates itself,
// and the subset of columns a partial update may touch.
type Schema struct {
	// Entity is the human-readable record name used in error messages.
	Entity string
	// Table is the backing table name.
	Table string
	// IDColumn is the identity column. Defaults to "id".
	IDColumn string
	// Generated lists store-generated columns that must never be written
	// explicitly when their value is absent. Defaults to created_at and
	// updated_at.
	Generated []string
	// Patchable is the allow-list of columns PartialUpdate may modify.
	Patchable []string
}

// Adapter maps a record type T to and from the flat column/value form the
// backing store works with. Column names come from `db` struct tags, falling
// back to the snake_cased field name; a tag of "-" excludes the field.
//
// Adapters are immutable after construction and safe for concurrent use.
type Adapter[T any] struct {
	schema    Schema
	columns   []string
	fieldIdx  map[string]int
	generated map[string]struct{}
	patchable map[string]struct{}
}

// NewAdapter builds an Adapter for T against the given schema, resolving T's
// fields to columns by reflection. It fails if T is not a struct or the
// identity column cannot be resolved to a field.
func NewAdapter[T any](schema Schema) (*Adapter[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("adapter requires a struct type, got %s", t.Kind())
	}

	if schema.Entity == "" {
		schema.Entity = strcase.ToSnake(t.Name())
	}
	if schema.IDColumn == "" {
		schema.IDColumn = defaultIDColumn
	}
	if schema.Generated == nil {
		schema.Generated = defaultGenerated
	}

	a := &Adapter[T]{
		schema:    schema,
		fieldIdx:  make(map[string]int),
		generated: make(map[string]struct{}, len(schema.Generated)),
		patchable: make(map[string]struct{}, len(schema.Patchable)),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		col := columnName(field)
		if col == "" {
			continue
		}
		a.columns = append(a.columns, col)
		a.fieldIdx[col] = i
	}

	if _, ok := a.fieldIdx[schema.IDColumn]; !ok {
		return nil, fmt.Errorf("identity column %q has no field on %s", schema.IDColumn, t.Name())
	}

	for _, g := range schema.Generated {
		a.generated[g] = struct{}{}
	}
	for _, p := range schema.Patchable {
		if _, ok := a.fieldIdx[p]; !ok {
			return nil, fmt.Errorf("patchable column %q has no field on %s", p, t.Name())
		}
		a.patchable[p] = struct{}{}
	}

	return a, nil
}

// MustNewAdapter is like NewAdapter but panics on error. Intended for
// package-level adapter construction at startup.
func MustNewAdapter[T any](schema Schema) *Adapter[T] {
	a, err := NewAdapter[T](schema)
	if err != nil {
		panic(err)
	}
	return a
}

// columnName resolves the column for a struct field from its db tag,
// defaulting to the snake_cased field name.
func columnName(field reflect.StructField) string {
	tag, ok := field.Tag.Lookup("db")
	if !ok {
		return strcase.ToSnake(field.Name)
	}
	name := strings.Split(tag, ",")[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return strcase.ToSnake(field.Name)
	}
	return name
}

// Schema returns the adapter's schema.
func (a *Adapter[T]) Schema() Schema {
	return a.schema
}

// Columns returns the ordered column list for T.
func (a *Adapter[T]) Columns() []string {
	return a.columns
}

// HasColumn reports whether the named column exists on the schema.
func (a *Adapter[T]) HasColumn(name string) bool {
	_, ok := a.fieldIdx[name]
	return ok
}

// IsGenerated reports whether the named column is store-generated.
func (a *Adapter[T]) IsGenerated(name string) bool {
	_, ok := a.generated[name]
	return ok
}

// IsPatchable reports whether the named column is in the patchable allow-list.
func (a *Adapter[T]) IsPatchable(name string) bool {
	_, ok := a.patchable[name]
	return ok
}

// ID returns the record's identity value.
func (a *Adapter[T]) ID(rec *T) interface{} {
	return reflect.ValueOf(rec).Elem().Field(a.fieldIdx[a.schema.IDColumn]).Interface()
}

// SetID assigns the record's identity value.
func (a *Adapter[T]) SetID(rec *T, id interface{}) error {
	fv := reflect.ValueOf(rec).Elem().Field(a.fieldIdx[a.schema.IDColumn])
	if err := setField(fv, id); err != nil {
		return domain.NewValidationError(a.schema.IDColumn, err.Error())
	}
	return nil
}

// Row flattens a record into a column/value mapping suitable for an insert or
// update values clause. Store-generated columns with an absent value are
// dropped entirely so an explicit NULL is never written to them, and temporal
// values are serialized to ISO-8601 text. Row is pure: it never mutates rec
// and calling it twice yields the same mapping.
func (a *Adapter[T]) Row(rec *T) (map[string]interface{}, error) {
	if rec == nil {
		return nil, domain.NewValidationError(a.schema.Entity, "record cannot be nil")
	}

	v := reflect.ValueOf(rec).Elem()
	row := make(map[string]interface{}, len(a.columns))
	for _, col := range a.columns {
		fv := v.Field(a.fieldIdx[col])
		if fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				if a.IsGenerated(col) {
					continue
				}
				row[col] = nil
				continue
			}
			fv = fv.Elem()
		}

		val := fv.Interface()
		if ts, ok := val.(time.Time); ok {
			if ts.IsZero() && a.IsGenerated(col) {
				continue
			}
			val = ts.UTC().Format(time.RFC3339Nano)
		}
		row[col] = val
	}
	return row, nil
}

// ApplyPatch returns a copy of rec with the patch values applied and the
// result re-validated as if constructed fresh, so derived and validated
// fields stay consistent. Patch keys must name known columns; values must be
// assignable (or convertible, e.g. a JSON number into an int field) to the
// target field type.
func (a *Adapter[T]) ApplyPatch(rec *T, patch map[string]interface{}) (*T, error) {
	if rec == nil {
		return nil, domain.NewValidationError(a.schema.Entity, "record cannot be nil")
	}

	patched := *rec
	v := reflect.ValueOf(&patched).Elem()
	for col, raw := range patch {
		idx, ok := a.fieldIdx[col]
		if !ok {
			return nil, domain.NewUnknownFieldError(a.schema.Entity, col)
		}
		if err := setField(v.Field(idx), raw); err != nil {
			return nil, domain.NewValidationError(col, err.Error())
		}
	}

	if err := domain.ValidateRecord(&patched); err != nil {
		return nil, err
	}
	return &patched, nil
}

// setField assigns raw to a struct field value, converting where the types
// allow it (JSON numbers arrive as float64).
func setField(fv reflect.Value, raw interface{}) error {
	if raw == nil {
		if fv.Kind() != reflect.Ptr {
			return fmt.Errorf("cannot assign null to non-nullable field")
		}
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}

	rv := reflect.ValueOf(raw)
	target := fv.Type()
	if target.Kind() == reflect.Ptr {
		elem := reflect.New(target.Elem())
		if err := setField(elem.Elem(), raw); err != nil {
			return err
		}
		fv.Set(elem)
		return nil
	}

	switch {
	case rv.Type().AssignableTo(target):
		fv.Set(rv)
	case rv.Type().ConvertibleTo(target) && rv.Kind() != reflect.String && target.Kind() != reflect.String:
		fv.Set(rv.Convert(target))
	case rv.Kind() == reflect.String && target == reflect.TypeOf(time.Time{}):
		ts, err := time.Parse(time.RFC3339, rv.String())
		if err != nil {
			return fmt.Errorf("invalid timestamp: %v", err)
		}
		fv.Set(reflect.ValueOf(ts))
	default:
		return fmt.Errorf("cannot assign %T to %s", raw, target)
	}
	return nil
}
