package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/five82/lattice/internal/columns"
	"github.com/five82/lattice/internal/rows"
)

// memSource serves total rows per known store; column 0 holds the index and
// column 1 a label.
type memSource struct {
	mu      sync.Mutex
	total   int
	queries []rows.Query
	err     error
}

func (m *memSource) RowCount(ctx context.Context, storeID string) (int, error) {
	if storeID != "orders" {
		return 0, rows.ErrUnknownStore
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total, m.err
}

func (m *memSource) lastQuery() rows.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[len(m.queries)-1]
}

func (m *memSource) Rows(ctx context.Context, storeID string, q rows.Query) ([]rows.RowRecord, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q)
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if storeID != "orders" {
		return nil, rows.ErrUnknownStore
	}
	var out []rows.RowRecord
	for i := q.First; i <= q.Last && i < m.total; i++ {
		out = append(out, rows.RowRecord{
			Index:    i,
			Data:     map[int]rows.CellValue{0: i, 1: "item"},
			Tooltips: map[int]string{1: "tip"},
		})
	}
	return out, nil
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Host != defaultAPIBind {
		t.Fatalf("url = %q, want http://%s", u.String(), defaultAPIBind)
	}

	u, err = parseBaseURL("http://example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_RoundTripThroughHandler(t *testing.T) {
	t.Parallel()

	src := &memSource{total: 25}
	server := httptest.NewServer(NewHandler(src, nil))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	n, err := c.RowCount(ctx, "orders")
	if err != nil {
		t.Fatalf("RowCount returned error: %v", err)
	}
	if n != 25 {
		t.Fatalf("RowCount = %d, want 25", n)
	}

	got, err := c.Rows(ctx, "orders", rows.Query{First: 20, Last: 30, SortIndex: 1, SortDirection: rows.SortDescending})
	if err != nil {
		t.Fatalf("Rows returned error: %v", err)
	}
	if len(got) != 5 || got[0].Index != 20 || got[4].Index != 24 {
		t.Fatalf("Rows = %#v, want rows 20..24", got)
	}
	if got[0].Data[1] != "item" || got[0].Tooltips[1] != "tip" {
		t.Fatalf("row payload = %#v, want decoded cells", got[0])
	}
	// JSON numbers decode as float64.
	if got[0].Data[0] != float64(20) {
		t.Fatalf("cell 0 = %#v, want 20", got[0].Data[0])
	}

	q := src.lastQuery()
	if q.SortIndex != 1 || q.SortDirection != rows.SortDescending {
		t.Fatalf("source query = %+v, want sort 1 desc", q)
	}

	if _, err := c.Rows(ctx, "orders", rows.Query{First: 0, Last: 4, SortIndex: -1}); err != nil {
		t.Fatalf("Rows returned error: %v", err)
	}
	q = src.lastQuery()
	if q.SortIndex != -1 || q.SortDirection != rows.SortNone {
		t.Fatalf("unsorted query = %+v, want no sort", q)
	}
}

func TestClient_EncodesQueryAndUserAgent(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	var gotPath, gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotPath = r.URL.EscapedPath()
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"rows":[]}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.Rows(context.Background(), "q1 sales", rows.Query{First: 3, Last: 9, SortIndex: 2, SortDirection: rows.SortAscending})
	if err != nil {
		t.Fatalf("Rows returned error: %v", err)
	}
	if gotPath != "/api/stores/q1%20sales/rows" {
		t.Fatalf("path = %q, want escaped store id", gotPath)
	}
	if gotQuery.Get("first") != "3" || gotQuery.Get("last") != "9" || gotQuery.Get("sort") != "2" || gotQuery.Get("dir") != "asc" {
		t.Fatalf("query = %v, want params encoded", gotQuery)
	}
	if !strings.HasPrefix(gotUserAgent, "lattice/") {
		t.Fatalf("User-Agent = %q, want lattice/*", gotUserAgent)
	}
}

func TestClient_StatusAndDecodeErrors(t *testing.T) {
	t.Parallel()

	src := &memSource{total: 5}
	server := httptest.NewServer(NewHandler(src, nil))
	t.Cleanup(server.Close)
	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	_, err = c.RowCount(ctx, "missing")
	var serr *StatusError
	if !errors.As(err, &serr) || serr.Code != http.StatusNotFound {
		t.Fatalf("RowCount error = %v, want 404 StatusError", err)
	}
	if !strings.Contains(serr.Message, "unknown store") {
		t.Fatalf("message = %q, want source error", serr.Message)
	}

	src.mu.Lock()
	src.err = errors.New("disk on fire")
	src.mu.Unlock()
	_, err = c.Rows(ctx, "orders", rows.Query{First: 0, Last: 1})
	if !errors.As(err, &serr) || serr.Code != http.StatusBadGateway {
		t.Fatalf("Rows error = %v, want 502 StatusError", err)
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not-json"))
	}))
	t.Cleanup(bad.Close)
	c, _ = NewClient(bad.URL)
	_, err = c.RowCount(ctx, "orders")
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("RowCount error = %v, want decode response error", err)
	}
}

func TestHandler_RejectsBadQueries(t *testing.T) {
	h := NewHandler(&memSource{total: 5000}, nil)

	tests := []struct {
		query string
		code  int
	}{
		{"first=a&last=2", http.StatusBadRequest},
		{"first=0", http.StatusBadRequest},
		{"first=5&last=2", http.StatusBadRequest},
		{"first=-1&last=2", http.StatusBadRequest},
		{"first=0&last=2&sort=x", http.StatusBadRequest},
		{"first=0&last=2", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/stores/orders/rows?"+tt.query, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.code {
			t.Fatalf("%s: status = %d, want %d", tt.query, rec.Code, tt.code)
		}
	}
}

func TestHandler_CapsPageSize(t *testing.T) {
	src := &memSource{total: 5000}
	h := NewHandler(src, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/stores/orders/rows?first=0&last=4999&sort=0", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	q := src.queries[0]
	if q.Last != MaxPageRows-1 {
		t.Fatalf("last = %d, want %d", q.Last, MaxPageRows-1)
	}
	if q.SortDirection != rows.SortAscending {
		t.Fatalf("direction = %v, want ascending default", q.SortDirection)
	}
}

func TestHandler_Health(t *testing.T) {
	h := NewHandler(&memSource{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

type schemaSource struct {
	memSource
}

func (s *schemaSource) Schema(ctx context.Context, storeID string) ([]columns.Info, error) {
	if storeID != "orders" {
		return nil, rows.ErrUnknownStore
	}
	return []columns.Info{{Name: "id", Kind: columns.KindNumber}, {Name: "label", Kind: columns.KindText}}, nil
}

func TestClient_SchemaThroughHandler(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(NewHandler(&schemaSource{memSource: memSource{total: 3}}, nil))
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	infos, err := client.Schema(context.Background(), "orders")
	if err != nil {
		t.Fatalf("Schema returned error: %v", err)
	}
	want := []columns.Info{{Name: "id", Kind: columns.KindNumber}, {Name: "label", Kind: columns.KindText}}
	if len(infos) != len(want) || infos[0] != want[0] || infos[1] != want[1] {
		t.Fatalf("Schema = %+v, want %+v", infos, want)
	}

	_, err = client.Schema(context.Background(), "missing")
	var status *StatusError
	if !errors.As(err, &status) || status.Code != http.StatusNotFound {
		t.Fatalf("Schema(missing) error = %v, want 404 StatusError", err)
	}
}

func TestHandler_ColumnsWithoutSchema(t *testing.T) {
	h := NewHandler(&memSource{total: 3}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stores/orders/columns", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("columns status = %d, want 404", rec.Code)
	}
}
