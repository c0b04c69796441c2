package httpapi

import (
	"fmt"

	"github.com/five82/lattice/internal/rows"
)

// CountResponse is the body of the count endpoint.
type CountResponse struct {
	Count int `json:"count"`
}

// RowsResponse is the body of the rows endpoint.
type RowsResponse struct {
	Rows []rows.RowRecord `json:"rows"`
}

// ColumnsResponse is the body of the columns endpoint.
type ColumnsResponse struct {
	Columns []Column `json:"columns"`
}

// Column is one entry of ColumnsResponse. Kind is a columns.Kind name.
type Column struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusError reports a non-2xx answer.
type StatusError struct {
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Code)
}
