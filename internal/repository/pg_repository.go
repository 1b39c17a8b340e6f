package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/structstore/internal/domain"
	"github.com/helixir/structstore/internal/filter"
)

// Compile-time interface verification.
var _ Repository[string, struct{ ID string }] = (*PgRepository[string, struct{ ID string }])(nil)

// PgRepository is the PostgreSQL implementation of Repository. It composes
// the record adapter and query compiler over a DBTX and translates the
// store's constraint-violation signals into domain errors.
type PgRepository[K comparable, T any] struct {
	db      DBTX
	adapter *Adapter[T]
}

// NewPgRepository creates a PostgreSQL repository for T over db.
func NewPgRepository[K comparable, T any](db DBTX, adapter *Adapter[T]) *PgRepository[K, T] {
	return &PgRepository[K, T]{db: db, adapter: adapter}
}

// Adapter returns the record adapter, which callers such as the HTTP layer
// use for the field whitelist and patch allow-list.
func (r *PgRepository[K, T]) Adapter() *Adapter[T] {
	return r.adapter
}

// Get fetches a record by identity.
func (r *PgRepository[K, T]) Get(ctx context.Context, id K) (*T, error) {
	rec, err := r.GetFirstWhere(ctx, r.idFilter(id))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewNotFoundError(r.adapter.schema.Entity, fmt.Sprint(id))
	}
	return rec, nil
}

// GetWhere fetches all records matching the filters.
func (r *PgRepository[K, T]) GetWhere(ctx context.Context, filters []filter.Filter, page filter.Page) ([]*T, error) {
	query, args, err := r.adapter.compileSelect(filters, page)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.adapter.schema.Table, err)
	}

	recs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s rows: %w", r.adapter.schema.Table, err)
	}
	return recs, nil
}

// GetFirstWhere fetches at most one matching record; a miss is (nil, nil).
func (r *PgRepository[K, T]) GetFirstWhere(ctx context.Context, filters []filter.Filter) (*T, error) {
	query, args, err := r.adapter.compileSelect(filters, filter.Page{Number: 0, Size: 1})
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.adapter.schema.Table, err)
	}

	rec, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan %s row: %w", r.adapter.schema.Table, err)
	}
	return rec, nil
}

// Create inserts the record and returns the canonical stored row.
func (r *PgRepository[K, T]) Create(ctx context.Context, rec *T) (*T, error) {
	row, err := r.adapter.Row(rec)
	if err != nil {
		return nil, err
	}

	query, args := r.adapter.compileInsert(row)
	return r.queryOne(ctx, rec, query, args)
}

// Update fully replaces the record by identity. The existence check and the
// write are two sequential statements by policy; the race between them is a
// documented limitation.
func (r *PgRepository[K, T]) Update(ctx context.Context, rec *T) (*T, error) {
	id, ok := r.adapter.ID(rec).(K)
	if !ok {
		return nil, domain.NewValidationError(r.adapter.schema.IDColumn, "identity value has the wrong type")
	}
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	return r.writeByID(ctx, rec, id)
}

// PartialUpdate applies fields on top of the current record and writes the
// re-validated result. The allow-list check happens before any I/O.
func (r *PgRepository[K, T]) PartialUpdate(ctx context.Context, id K, fields map[string]interface{}) (*T, error) {
	for col := range fields {
		if !r.adapter.IsPatchable(col) {
			return nil, domain.NewNotPatchableError(r.adapter.schema.Entity, col)
		}
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patched, err := r.adapter.ApplyPatch(current, fields)
	if err != nil {
		return nil, err
	}
	return r.writeByID(ctx, patched, id)
}

// UpdateWhere applies the set values to all matching records. This is a batch
// operation: no existence precheck, and matching nothing is not an error.
func (r *PgRepository[K, T]) UpdateWhere(ctx context.Context, filters []filter.Filter, values map[string]interface{}) ([]*T, error) {
	row, err := r.adapter.setValuesRow(values)
	if err != nil {
		return nil, err
	}

	query, args, err := r.adapter.compileUpdate(row, filters)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapWriteError(err, "")
	}

	recs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		return nil, r.mapWriteError(err, "")
	}
	return recs, nil
}

// Delete removes the record by identity and returns its last-known value.
func (r *PgRepository[K, T]) Delete(ctx context.Context, id K) (*T, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}

	query, args := r.adapter.compileDelete(id)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to delete from %s: %w", r.adapter.schema.Table, err)
	}

	rec, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race with a concurrent delete.
			return nil, domain.NewNotFoundError(r.adapter.schema.Entity, fmt.Sprint(id))
		}
		return nil, fmt.Errorf("failed to scan deleted %s row: %w", r.adapter.schema.Table, err)
	}
	return rec, nil
}

// writeByID issues the UPDATE for a full or partial record replacement.
func (r *PgRepository[K, T]) writeByID(ctx context.Context, rec *T, id K) (*T, error) {
	row, err := r.adapter.Row(rec)
	if err != nil {
		return nil, err
	}

	query, args, err := r.adapter.compileUpdate(row, r.idFilter(id))
	if err != nil {
		return nil, err
	}
	return r.queryOne(ctx, rec, query, args)
}

// queryOne runs a single-row write with RETURNING and maps store errors.
func (r *PgRepository[K, T]) queryOne(ctx context.Context, rec *T, query string, args []interface{}) (*T, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapWriteError(err, fmt.Sprint(r.adapter.ID(rec)))
	}

	stored, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(r.adapter.schema.Entity, fmt.Sprint(r.adapter.ID(rec)))
		}
		return nil, r.mapWriteError(err, fmt.Sprint(r.adapter.ID(rec)))
	}
	return stored, nil
}

// idFilter builds the identity equality filter.
func (r *PgRepository[K, T]) idFilter(id K) []filter.Filter {
	return []filter.Filter{filter.MustNew(r.adapter.schema.IDColumn, filter.EQ, id)}
}

// mapWriteError translates the store's native constraint-violation signal
// into the domain taxonomy. Unique violations become ErrAlreadyExists.
func (r *PgRepository[K, T]) mapWriteError(err error, id string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return domain.NewAlreadyExistsError(r.adapter.schema.Entity, id)
	}
	return fmt.Errorf("failed to write %s: %w", r.adapter.schema.Table, err)
}
