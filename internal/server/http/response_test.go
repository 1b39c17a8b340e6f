package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/structstore/internal/domain"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"not found is 404", domain.NewNotFoundError("user", "x"), http.StatusNotFound},
		{"already exists is 409", domain.NewAlreadyExistsError("user", "x"), http.StatusConflict},
		{"not patchable is 409", domain.NewNotPatchableError("user", "id"), http.StatusConflict},
		{"validation is 422", domain.NewValidationError("email", "bad"), http.StatusUnprocessableEntity},
		{"invalid operator is 400", domain.NewInvalidOperatorError("like"), http.StatusBadRequest},
		{"unknown field is 400", domain.NewUnknownFieldError("user", "ghost"), http.StatusBadRequest},
		{"anything else is 500", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err)
			assert.Equal(t, tt.expected, rec.Code)

			var envelope errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
			assert.NotEmpty(t, envelope.Errors)
		})
	}

	t.Run("internal errors do not leak details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		writeDomainError(rec, errors.New("pq: password authentication failed"))

		var envelope errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		require.Len(t, envelope.Errors, 1)
		assert.Equal(t, "internal server error", envelope.Errors[0])
	})

	t.Run("validation errors enumerate failing fields", func(t *testing.T) {
		u := &domain.User{Username: "ab", Email: "nope"}
		err := domain.ValidateRecord(u)
		require.Error(t, err)

		rec := httptest.NewRecorder()
		writeDomainError(rec, err)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var envelope errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Len(t, envelope.Errors, 3)
	})
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	writeData(rec, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"hello":"world"}}`, rec.Body.String())
}
