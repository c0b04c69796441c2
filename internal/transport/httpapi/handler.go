package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/five82/lattice/internal/columns"
	"github.com/five82/lattice/internal/logging"
	"github.com/five82/lattice/internal/rows"
)

// MaxPageRows bounds the rows served by one request.
const MaxPageRows = 1000

type handler struct {
	source rows.Transport
	log    *logging.Logger
}

// NewHandler serves the row API from source. The columns endpoint answers
// 404 unless source also implements columns.SchemaSource.
func NewHandler(source rows.Transport, log *logging.Logger) http.Handler {
	h := &handler{source: source, log: log.With("httpapi")}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("GET /api/stores/{id}/count", h.count)
	mux.HandleFunc("GET /api/stores/{id}/rows", h.rows)
	mux.HandleFunc("GET /api/stores/{id}/columns", h.listColumns)
	return mux
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handler) count(w http.ResponseWriter, r *http.Request) {
	store := r.PathValue("id")
	n, err := h.source.RowCount(r.Context(), store)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

func (h *handler) rows(w http.ResponseWriter, r *http.Request) {
	store := r.PathValue("id")
	q, err := parseQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	records, err := h.source.Rows(r.Context(), store, q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if records == nil {
		records = []rows.RowRecord{}
	}
	writeJSON(w, http.StatusOK, RowsResponse{Rows: records})
}

func (h *handler) listColumns(w http.ResponseWriter, r *http.Request) {
	schema, ok := h.source.(columns.SchemaSource)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "source has no column schema"})
		return
	}
	infos, err := schema.Schema(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := ColumnsResponse{Columns: make([]Column, len(infos))}
	for i, info := range infos {
		resp.Columns[i] = Column{Name: info.Name, Kind: info.Kind.String()}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusBadGateway
	switch {
	case errors.Is(err, rows.ErrUnknownStore):
		code = http.StatusNotFound
	case errors.Is(err, rows.ErrInvalidRange):
		code = http.StatusBadRequest
	}
	h.log.Warn("row source request failed", map[string]any{
		"path":   r.URL.Path,
		"status": code,
		"error":  err.Error(),
	})
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

func parseQuery(r *http.Request) (rows.Query, error) {
	values := r.URL.Query()
	first, err := strconv.Atoi(values.Get("first"))
	if err != nil {
		return rows.Query{}, errors.New("first must be an integer")
	}
	last, err := strconv.Atoi(values.Get("last"))
	if err != nil {
		return rows.Query{}, errors.New("last must be an integer")
	}
	if first < 0 || last < first {
		return rows.Query{}, rows.ErrInvalidRange
	}
	if last-first+1 > MaxPageRows {
		last = first + MaxPageRows - 1
	}

	q := rows.Query{First: first, Last: last, SortIndex: -1}
	if s := values.Get("sort"); s != "" {
		idx, err := strconv.Atoi(s)
		if err != nil || idx < 0 {
			return rows.Query{}, errors.New("sort must be a column index")
		}
		q.SortIndex = idx
		q.SortDirection = rows.ParseSortDirection(values.Get("dir"))
		if q.SortDirection == rows.SortNone {
			q.SortDirection = rows.SortAscending
		}
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
