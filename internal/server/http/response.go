package httpserver

import (
	"errors"
	"net/http"

	"github.com/helixir/structstore/internal/domain"
)

// dataResponse is the success envelope. Single records and lists are both
// carried under the "data" key.
type dataResponse struct {
	Data interface{} `json:"data"`
}

// errorResponse is the failure envelope.
type errorResponse struct {
	Errors []string `json:"errors"`
}

// writeData writes a success envelope.
func writeData(w http.ResponseWriter, statusCode int, v interface{}) {
	writeJSON(w, statusCode, dataResponse{Data: v})
}

// writeErrors writes a failure envelope.
func writeErrors(w http.ResponseWriter, statusCode int, messages ...string) {
	writeJSON(w, statusCode, errorResponse{Errors: messages})
}

// writeDomainError maps a domain error to an HTTP status and writes it.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeErrors(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		writeErrors(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotPatchable):
		writeErrors(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeErrors(w, http.StatusUnprocessableEntity, domain.ValidationMessages(err)...)
	case errors.Is(err, domain.ErrInvalidOperator), errors.Is(err, domain.ErrUnknownField):
		writeErrors(w, http.StatusBadRequest, err.Error())
	default:
		writeErrors(w, http.StatusInternalServerError, "internal server error")
	}
}
