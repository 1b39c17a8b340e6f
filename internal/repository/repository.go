// Package repository provides uniform, filterable CRUD data access for
// structstore record types.
//
// # Overview
//
// The package defines the Service and Repository contracts plus a generic
// PostgreSQL implementation. A record type is described by a Schema and
// mapped to its backing table by an Adapter; filters are compiled into SQL
// predicates by the query compiler and rows are mapped back to records via
// pgx's struct scanning.
//
// # Service vs Repository
//
// Service is the usecase-facing contract: business logic depends on it and
// never touches the store directly. Repository is the infrastructure-facing
// counterpart with the identical CRUD surface; any Repository implementation
// satisfies Service. Keeping both names preserves the layering: services wrap
// repositories, repositories own all backing-store I/O for one record type.
//
// # Thread Safety
//
// All repository implementations are safe for concurrent use by multiple
// goroutines. The underlying pgxpool handles connection pooling and
// synchronization; a repository never holds a connection across calls.
//
// # Error Handling
//
// Methods return domain errors from the domain package:
//
//   - domain.ErrNotFound: Get/Update/PartialUpdate/Delete target does not exist
//   - domain.ErrAlreadyExists: unique constraint violation on a write
//   - domain.ErrNotPatchable: PartialUpdate field outside the allow-list
//   - domain.ErrUnknownField: filter or set-values field absent from the schema
//
// GetFirstWhere is the deliberate exception: a miss is (nil, nil), not an
// error, so the empty-result and missing-resource cases stay distinct in the
// type signature.
//
// # Atomicity
//
// Each call is a single store operation, except Update and Delete which
// perform an existence check followed by the write. The two steps are not
// atomic; a concurrent delete between them surfaces as ErrNotFound from the
// second step. Callers needing multi-call atomicity can construct a
// repository over a transaction from database.DB.WithTransaction.
package repository

import (
	"context"

	"github.com/helixir/structstore/internal/database"
	"github.com/helixir/structstore/internal/filter"
)

// DBTX is the database interface supporting both pool and transaction
// contexts, so a repository works identically over *database.DB or a pgx.Tx.
type DBTX = database.DBTX

// Service is the usecase-facing CRUD contract over records of type T with
// identity type K.
type Service[K comparable, T any] interface {
	// Get fetches a record by identity. A miss is domain.ErrNotFound.
	Get(ctx context.Context, id K) (*T, error)

	// GetWhere fetches every record matching the ANDed filters, paginated
	// when page is enabled. An empty result is an empty slice, not an error.
	GetWhere(ctx context.Context, filters []filter.Filter, page filter.Page) ([]*T, error)

	// GetFirstWhere fetches at most one matching record. A miss returns
	// (nil, nil).
	GetFirstWhere(ctx context.Context, filters []filter.Filter) (*T, error)

	// Create inserts a record and returns the store's canonical row,
	// including store-generated values. A uniqueness conflict is
	// domain.ErrAlreadyExists.
	Create(ctx context.Context, rec *T) (*T, error)

	// Update fully replaces a record by identity, confirming existence
	// first. A miss is domain.ErrNotFound; a uniqueness conflict is
	// domain.ErrAlreadyExists.
	Update(ctx context.Context, rec *T) (*T, error)

	// PartialUpdate applies the given field values on top of the current
	// record, re-validating the result before writing. Fields outside the
	// patchable allow-list fail with domain.ErrNotPatchable before any I/O.
	PartialUpdate(ctx context.Context, id K, fields map[string]interface{}) (*T, error)

	// UpdateWhere applies the set values to every record matching the
	// filters and returns the updated rows. No existence precheck; an empty
	// match updates nothing and returns an empty slice.
	UpdateWhere(ctx context.Context, filters []filter.Filter, values map[string]interface{}) ([]*T, error)

	// Delete removes a record by identity, confirming existence first, and
	// returns the deleted record's last-known value.
	Delete(ctx context.Context, id K) (*T, error)
}

// Repository is the infrastructure-layer counterpart of Service: the one
// component owning backing-store I/O for a record type. The surface is
// identical by design.
type Repository[K comparable, T any] interface {
	Service[K, T]
}
