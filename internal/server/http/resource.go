package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/structstore/internal/domain"
	"github.com/helixir/structstore/internal/filter"
	"github.com/helixir/structstore/internal/repository"
)

// filterKeyPattern matches query keys of the form "field" or "field[op]".
var filterKeyPattern = regexp.MustCompile(`^([A-Za-z0-9_]+)(?:\[([A-Za-z]+)\])?$`)

// ParseStringID is the identity parser for resources keyed by string.
func ParseStringID(raw string) (string, error) {
	if raw == "" {
		return "", domain.NewValidationError("id", "must not be empty")
	}
	return raw, nil
}

// Resource exposes CRUD handlers for one record type. Query string keys
// matching the record's columns become filters; keys the record does not
// have are ignored.
type Resource[K comparable, T any] struct {
	name    string
	svc     repository.Service[K, T]
	adapter *repository.Adapter[T]
	parseID func(string) (K, error)
	prepare func(*T)
}

// ResourceOption configures a Resource.
type ResourceOption[K comparable, T any] func(*Resource[K, T])

// WithCreateDefaults registers a hook applied to decoded records before
// Create, typically to assign a fresh identity.
func WithCreateDefaults[K comparable, T any](fn func(*T)) ResourceOption[K, T] {
	return func(res *Resource[K, T]) {
		res.prepare = fn
	}
}

// NewResource creates a resource mounted at /<name> with list, get, create,
// update, patch and delete handlers.
func NewResource[K comparable, T any](
	name string,
	svc repository.Service[K, T],
	adapter *repository.Adapter[T],
	parseID func(string) (K, error),
	opts ...ResourceOption[K, T],
) *Resource[K, T] {
	res := &Resource[K, T]{
		name:    name,
		svc:     svc,
		adapter: adapter,
		parseID: parseID,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Mount registers the resource's routes.
func (res *Resource[K, T]) Mount(r chi.Router) {
	r.Route("/"+res.name, func(r chi.Router) {
		r.Get("/", res.list)
		r.Post("/", res.create)
		r.Get("/{id}", res.get)
		r.Put("/{id}", res.update)
		r.Patch("/{id}", res.partialUpdate)
		r.Delete("/{id}", res.delete)
	})
}

// list handles GET /<name> with optional filters and pagination.
func (res *Resource[K, T]) list(w http.ResponseWriter, r *http.Request) {
	filters, page, err := res.parseQuery(r.URL.Query())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	recs, err := res.svc.GetWhere(r.Context(), filters, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, recs)
}

// get handles GET /<name>/{id}.
func (res *Resource[K, T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := res.parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	rec, err := res.svc.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, rec)
}

// create handles POST /<name>.
func (res *Resource[K, T]) create(w http.ResponseWriter, r *http.Request) {
	rec, err := res.decodeBody(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if res.prepare != nil {
		res.prepare(rec)
	}
	if err := domain.ValidateRecord(rec); err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := res.svc.Create(r.Context(), rec)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusCreated, created)
}

// update handles PUT /<name>/{id}. The identity always comes from the URL;
// any id in the body is overwritten.
func (res *Resource[K, T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := res.parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rec, err := res.decodeBody(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := res.adapter.SetID(rec, id); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := domain.ValidateRecord(rec); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := res.svc.Update(r.Context(), rec)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated)
}

// partialUpdate handles PATCH /<name>/{id} with a JSON object of column
// names to new values.
func (res *Resource[K, T]) partialUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := res.parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var fields map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeDomainError(w, domain.NewValidationError("body", "invalid JSON: "+err.Error()))
		return
	}
	if len(fields) == 0 {
		writeDomainError(w, domain.NewValidationError("body", "no fields to update"))
		return
	}

	updated, err := res.svc.PartialUpdate(r.Context(), id, fields)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated)
}

// delete handles DELETE /<name>/{id} and returns the deleted record.
func (res *Resource[K, T]) delete(w http.ResponseWriter, r *http.Request) {
	id, err := res.parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	deleted, err := res.svc.Delete(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, deleted)
}

// decodeBody decodes the request body into a record, rejecting unknown
// fields so typos surface as validation errors instead of silent drops.
func (res *Resource[K, T]) decodeBody(r *http.Request) (*T, error) {
	rec := new(T)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(rec); err != nil {
		return nil, domain.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return rec, nil
}

// parseQuery translates the query string into filters and pagination.
// Keys are "field" (equality) or "field[op]"; keys that are neither record
// columns nor pagination parameters are ignored.
func (res *Resource[K, T]) parseQuery(values url.Values) ([]filter.Filter, filter.Page, error) {
	var (
		filters []filter.Filter
		number  int
		size    int
	)

	for key, vals := range values {
		m := filterKeyPattern.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		field, opToken := m[1], m[2]

		if opToken == "" {
			switch field {
			case filter.ParamPage:
				n, err := parsePageParam(filter.ParamPage, vals)
				if err != nil {
					return nil, filter.Page{}, err
				}
				number = n
				continue
			case filter.ParamPageSize:
				n, err := parsePageParam(filter.ParamPageSize, vals)
				if err != nil {
					return nil, filter.Page{}, err
				}
				size = n
				continue
			}
		}

		if !res.adapter.HasColumn(field) {
			continue
		}

		op := filter.EQ
		if opToken != "" {
			parsed, err := filter.ParseOperator(opToken)
			if err != nil {
				return nil, filter.Page{}, err
			}
			op = parsed
		}

		for _, raw := range vals {
			var value interface{} = raw
			if op == filter.IN {
				value = strings.Split(raw, ",")
			}
			f, err := filter.New(field, op, value)
			if err != nil {
				return nil, filter.Page{}, err
			}
			filters = append(filters, f)
		}
	}

	return filters, filter.NewPage(number, size), nil
}

// parsePageParam parses a pagination parameter, taking the last value when
// the key is repeated.
func parsePageParam(name string, vals []string) (int, error) {
	raw := vals[len(vals)-1]
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, fmt.Sprintf("must be a non-negative integer, got %q", raw))
	}
	return n, nil
}

var _ Mountable = (*Resource[string, struct{ ID string }])(nil)
