// Package service provides the usecase-layer wrapper around repositories.
// A service carries no business logic of its own for plain CRUD resources;
// it contributes observability (structured logging and Prometheus metrics)
// and keeps handlers depending on the Service contract rather than on a
// concrete repository.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/structstore/internal/domain"
	"github.com/helixir/structstore/internal/filter"
	"github.com/helixir/structstore/internal/observability"
	"github.com/helixir/structstore/internal/repository"
)

// Compile-time interface verification.
var _ repository.Service[string, struct{ ID string }] = (*Instrumented[string, struct{ ID string }])(nil)

// Instrumented decorates a repository with per-operation logging and metrics.
// All CRUD semantics are delegated unchanged.
type Instrumented[K comparable, T any] struct {
	repo    repository.Repository[K, T]
	entity  string
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewInstrumented wraps repo for the named entity.
func NewInstrumented[K comparable, T any](
	repo repository.Repository[K, T],
	entity string,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Instrumented[K, T] {
	return &Instrumented[K, T]{
		repo:    repo,
		entity:  entity,
		logger:  logger.With().Str("component", "service").Str("entity", entity).Logger(),
		metrics: metrics,
	}
}

// Get fetches a record by identity.
func (s *Instrumented[K, T]) Get(ctx context.Context, id K) (*T, error) {
	start := time.Now()
	rec, err := s.repo.Get(ctx, id)
	s.record("get", start, err)
	return rec, err
}

// GetWhere fetches all records matching the filters.
func (s *Instrumented[K, T]) GetWhere(ctx context.Context, filters []filter.Filter, page filter.Page) ([]*T, error) {
	start := time.Now()
	recs, err := s.repo.GetWhere(ctx, filters, page)
	s.record("get_where", start, err)
	if err == nil {
		s.metrics.RecordRows(s.entity, len(recs))
	}
	return recs, err
}

// GetFirstWhere fetches at most one matching record; a miss is (nil, nil).
func (s *Instrumented[K, T]) GetFirstWhere(ctx context.Context, filters []filter.Filter) (*T, error) {
	start := time.Now()
	rec, err := s.repo.GetFirstWhere(ctx, filters)
	s.record("get_first_where", start, err)
	return rec, err
}

// Create inserts a record.
func (s *Instrumented[K, T]) Create(ctx context.Context, rec *T) (*T, error) {
	start := time.Now()
	stored, err := s.repo.Create(ctx, rec)
	s.record("create", start, err)
	return stored, err
}

// Update fully replaces a record.
func (s *Instrumented[K, T]) Update(ctx context.Context, rec *T) (*T, error) {
	start := time.Now()
	stored, err := s.repo.Update(ctx, rec)
	s.record("update", start, err)
	return stored, err
}

// PartialUpdate applies a field patch to a record.
func (s *Instrumented[K, T]) PartialUpdate(ctx context.Context, id K, fields map[string]interface{}) (*T, error) {
	start := time.Now()
	stored, err := s.repo.PartialUpdate(ctx, id, fields)
	s.record("partial_update", start, err)
	return stored, err
}

// UpdateWhere applies set values to all matching records.
func (s *Instrumented[K, T]) UpdateWhere(ctx context.Context, filters []filter.Filter, values map[string]interface{}) ([]*T, error) {
	start := time.Now()
	recs, err := s.repo.UpdateWhere(ctx, filters, values)
	s.record("update_where", start, err)
	return recs, err
}

// Delete removes a record by identity.
func (s *Instrumented[K, T]) Delete(ctx context.Context, id K) (*T, error) {
	start := time.Now()
	rec, err := s.repo.Delete(ctx, id)
	s.record("delete", start, err)
	return rec, err
}

// record emits the log line and metrics for one operation.
func (s *Instrumented[K, T]) record(operation string, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := outcomeFor(err)
	s.metrics.RecordOperation(s.entity, operation, outcome, elapsed.Seconds())

	evt := s.logger.Debug()
	if outcome == observability.OutcomeError {
		evt = s.logger.Error().Err(err)
	}
	evt.Str("operation", operation).
		Str("outcome", outcome).
		Dur("elapsed", elapsed).
		Msg("repository operation")
}

// outcomeFor classifies an operation error into a metric outcome label.
// Domain conditions (not found, conflicts, bad input) are expected outcomes,
// not errors.
func outcomeFor(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, domain.ErrNotFound):
		return observability.OutcomeNotFound
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrNotPatchable):
		return observability.OutcomeConflict
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidOperator),
		errors.Is(err, domain.ErrUnknownField):
		return observability.OutcomeInvalid
	default:
		return observability.OutcomeError
	}
}
