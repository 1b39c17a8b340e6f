package repository

import (
	"fmt"
	"strings"

	"github.com/helixir/structstore/internal/domain"
	"github.com/helixir/structstore/internal/filter"
)

// operatorSQL maps the closed operator set onto SQL comparison syntax. IN is
// handled separately because it binds its sequence as a single ANY argument.
var operatorSQL = map[filter.Operator]string{
	filter.EQ:  "=",
	filter.NE:  "!=",
	filter.GT:  ">",
	filter.GTE: ">=",
	filter.LT:  "<",
	filter.LTE: "<=",
}

// compileWhere translates a filter set into a WHERE clause body and its
// positional arguments. Conditions are combined with AND; an empty filter set
// yields an empty clause (match all). Argument numbering starts at argIndex
// so pagination placeholders can follow, and the next free index is returned.
func (a *Adapter[T]) compileWhere(filters []filter.Filter, argIndex int) (string, []interface{}, int, error) {
	if len(filters) == 0 {
		return "", nil, argIndex, nil
	}

	conditions := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters))
	for _, f := range filters {
		if !a.HasColumn(f.Field) {
			return "", nil, argIndex, domain.NewUnknownFieldError(a.schema.Entity, f.Field)
		}
		if f.Operator == filter.IN {
			conditions = append(conditions, fmt.Sprintf("%s = ANY($%d)", f.Field, argIndex))
			args = append(args, f.Value)
			argIndex++
			continue
		}
		op, ok := operatorSQL[f.Operator]
		if !ok {
			return "", nil, argIndex, domain.NewInvalidOperatorError(string(f.Operator))
		}
		conditions = append(conditions, fmt.Sprintf("%s %s $%d", f.Field, op, argIndex))
		args = append(args, f.Value)
		argIndex++
	}

	return strings.Join(conditions, " AND "), args, argIndex, nil
}

// compileSelect builds a SELECT over the schema's columns for the given
// filters and pagination. Results are ordered by the identity column so that
// paginating with a fixed page size neither loses nor duplicates rows between
// calls, absent concurrent writes.
func (a *Adapter[T]) compileSelect(filters []filter.Filter, page filter.Page) (string, []interface{}, error) {
	where, args, argIndex, err := a.compileWhere(filters, 1)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(a.columns, ", "), a.schema.Table)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	fmt.Fprintf(&sb, " ORDER BY %s", a.schema.IDColumn)
	if page.Enabled() {
		fmt.Fprintf(&sb, " LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, page.Limit(), page.Offset())
	}
	return sb.String(), args, nil
}

// compileInsert builds an INSERT from a row mapping. Columns appear in schema
// order for deterministic SQL; the full column list is RETURNING'd so the
// caller sees store-generated values.
func (a *Adapter[T]) compileInsert(row map[string]interface{}) (string, []interface{}) {
	cols := make([]string, 0, len(row))
	placeholders := make([]string, 0, len(row))
	args := make([]interface{}, 0, len(row))
	for _, col := range a.columns {
		val, ok := row[col]
		if !ok {
			continue
		}
		cols = append(cols, col)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)+1))
		args = append(args, val)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		a.schema.Table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(a.columns, ", "),
	)
	return query, args
}

// compileUpdate builds an UPDATE setting the row mapping's columns (identity
// excluded; it is immutable) restricted by the filters, returning the full
// column list. Set columns follow schema order.
func (a *Adapter[T]) compileUpdate(row map[string]interface{}, filters []filter.Filter) (string, []interface{}, error) {
	assignments := make([]string, 0, len(row))
	args := make([]interface{}, 0, len(row))
	argIndex := 1
	for _, col := range a.columns {
		if col == a.schema.IDColumn {
			continue
		}
		val, ok := row[col]
		if !ok {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, argIndex))
		args = append(args, val)
		argIndex++
	}

	if len(assignments) == 0 {
		return "", nil, domain.NewValidationError("values", "no settable columns to update")
	}

	where, whereArgs, _, err := a.compileWhere(filters, argIndex)
	if err != nil {
		return "", nil, err
	}
	args = append(args, whereArgs...)

	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET %s", a.schema.Table, strings.Join(assignments, ", "))
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	fmt.Fprintf(&sb, " RETURNING %s", strings.Join(a.columns, ", "))
	return sb.String(), args, nil
}

// compileDelete builds a DELETE by identity, returning the deleted row.
func (a *Adapter[T]) compileDelete(id interface{}) (string, []interface{}) {
	query := fmt.Sprintf(
		"DELETE FROM %s WHERE %s = $1 RETURNING %s",
		a.schema.Table,
		a.schema.IDColumn,
		strings.Join(a.columns, ", "),
	)
	return query, []interface{}{id}
}

// setValuesRow validates an update_where values mapping: every key must be a
// schema column and store-generated columns may not be set directly.
func (a *Adapter[T]) setValuesRow(values map[string]interface{}) (map[string]interface{}, error) {
	if len(values) == 0 {
		return nil, domain.NewValidationError("values", "no fields to update")
	}
	row := make(map[string]interface{}, len(values))
	for col, val := range values {
		if !a.HasColumn(col) {
			return nil, domain.NewUnknownFieldError(a.schema.Entity, col)
		}
		if a.IsGenerated(col) {
			return nil, domain.NewValidationError(col, "store-generated column cannot be set directly")
		}
		row[col] = val
	}
	return row, nil
}
