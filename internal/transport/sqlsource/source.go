// Package sqlsource serves grid rows from SQLite tables. Each table is a
// store. Columns whose names start with an underscore carry row metadata
// (_renderer, _height, _error_<col>, _tooltip_<col>) rather than cells; the
// remaining columns are numbered in declaration order.
package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/five82/lattice/internal/columns"
	"github.com/five82/lattice/internal/logging"
	"github.com/five82/lattice/internal/rows"
)

// Ensure Source implements rows.Transport and columns.SchemaSource at compile time.
var (
	_ rows.Transport        = (*Source)(nil)
	_ columns.SchemaSource = (*Source)(nil)
)

// Column describes a data column of a table.
type Column struct {
	Name string
	Type string
}

// Kind maps the declared SQL type to a column kind.
func (c Column) Kind() columns.Kind {
	switch {
	case strings.Contains(c.Type, "BOOL"):
		return columns.KindBoolean
	case strings.Contains(c.Type, "DATE"), strings.Contains(c.Type, "TIME"):
		return columns.KindDate
	case strings.Contains(c.Type, "INT"), strings.Contains(c.Type, "REAL"),
		strings.Contains(c.Type, "NUM"), strings.Contains(c.Type, "FLOA"), strings.Contains(c.Type, "DOUB"):
		return columns.KindNumber
	default:
		return columns.KindText
	}
}

type tableInfo struct {
	data    []Column
	index   map[string]int
	allCols []string
}

// Source reads rows from a SQLite database.
type Source struct {
	db  *sql.DB
	log *logging.Logger

	mu     sync.Mutex
	tables map[string]*tableInfo
}

// Open opens the SQLite database at path. ":memory:" opens a private
// in-memory database.
func Open(path string, log *logging.Logger) (*Source, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite %s: %w", path, err)
	}
	return New(db, log), nil
}

// New wraps an open database.
func New(db *sql.DB, log *logging.Logger) *Source {
	return &Source{db: db, log: log.With("sqlsource"), tables: make(map[string]*tableInfo)}
}

// DB returns the underlying database.
func (s *Source) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Source) Close() error {
	return s.db.Close()
}

// Forget drops cached table metadata, for example after a schema change.
func (s *Source) Forget(table string) {
	s.mu.Lock()
	delete(s.tables, table)
	s.mu.Unlock()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (s *Source) table(ctx context.Context, name string) (*tableInfo, error) {
	s.mu.Lock()
	if t, ok := s.tables[name]; ok {
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()

	var found string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", rows.ErrUnknownStore, name)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup table %s: %w", name, err)
	}

	res, err := s.db.QueryContext(ctx, `PRAGMA table_info(`+quoteIdent(name)+`)`)
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", name, err)
	}
	defer res.Close()

	t := &tableInfo{index: make(map[string]int)}
	for res.Next() {
		var (
			cid      int
			colName  string
			colType  string
			notNull  int
			defValue sql.NullString
			pk       int
		)
		if err := res.Scan(&cid, &colName, &colType, &notNull, &defValue, &pk); err != nil {
			return nil, fmt.Errorf("table info %s: %w", name, err)
		}
		t.allCols = append(t.allCols, colName)
		if strings.HasPrefix(colName, "_") {
			continue
		}
		t.index[colName] = len(t.data)
		t.data = append(t.data, Column{Name: colName, Type: strings.ToUpper(colType)})
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("table info %s: %w", name, err)
	}

	s.mu.Lock()
	s.tables[name] = t
	s.mu.Unlock()
	return t, nil
}

// Columns returns the data columns of a table in index order.
func (s *Source) Columns(ctx context.Context, storeID string) ([]Column, error) {
	t, err := s.table(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return append([]Column(nil), t.data...), nil
}

// Schema describes the data columns of a table.
func (s *Source) Schema(ctx context.Context, storeID string) ([]columns.Info, error) {
	t, err := s.table(ctx, storeID)
	if err != nil {
		return nil, err
	}
	out := make([]columns.Info, len(t.data))
	for i, c := range t.data {
		out[i] = columns.Info{Name: c.Name, Kind: c.Kind()}
	}
	return out, nil
}

// RowCount returns the number of rows in the table.
func (s *Source) RowCount(ctx context.Context, storeID string) (int, error) {
	if _, err := s.table(ctx, storeID); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quoteIdent(storeID)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", storeID, err)
	}
	return n, nil
}

// Rows returns the inclusive range of q, ordered by the requested data column
// and then by rowid.
func (s *Source) Rows(ctx context.Context, storeID string, q rows.Query) ([]rows.RowRecord, error) {
	if q.First < 0 || q.Last < q.First {
		return nil, rows.ErrInvalidRange
	}
	t, err := s.table(ctx, storeID)
	if err != nil {
		return nil, err
	}

	order := "rowid"
	if q.SortDirection != rows.SortNone && q.SortIndex >= 0 && q.SortIndex < len(t.data) {
		dir := "ASC"
		if q.SortDirection == rows.SortDescending {
			dir = "DESC"
		}
		order = quoteIdent(t.data[q.SortIndex].Name) + " " + dir + ", rowid"
	}

	quoted := make([]string, len(t.allCols))
	for i, c := range t.allCols {
		quoted[i] = quoteIdent(c)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s LIMIT ? OFFSET ?`,
		strings.Join(quoted, ", "), quoteIdent(storeID), order)

	res, err := s.db.QueryContext(ctx, query, q.Last-q.First+1, q.First)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", storeID, err)
	}
	defer res.Close()

	var out []rows.RowRecord
	for idx := q.First; res.Next(); idx++ {
		values := make([]any, len(t.allCols))
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := res.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", storeID, err)
		}
		out = append(out, t.record(idx, values))
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", storeID, err)
	}
	s.log.Debug("served rows", map[string]any{"store": storeID, "first": q.First, "count": len(out)})
	return out, nil
}

func (t *tableInfo) record(idx int, values []any) rows.RowRecord {
	rec := rows.RowRecord{Index: idx, Data: make(map[int]rows.CellValue, len(t.data))}

	col := 0
	for i, name := range t.allCols {
		v := values[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		if !strings.HasPrefix(name, "_") {
			rec.Data[col] = v
			col++
			continue
		}
		if v == nil {
			continue
		}
		switch {
		case name == "_renderer":
			rec.Style = &rows.RowStyle{Renderer: fmt.Sprint(v)}
		case name == "_height":
			if h, ok := toInt(v); ok {
				rec.Height = &h
			}
		case strings.HasPrefix(name, "_error_"):
			if c, ok := t.index[strings.TrimPrefix(name, "_error_")]; ok && fmt.Sprint(v) != "" {
				if rec.Errors == nil {
					rec.Errors = make(map[int]string)
				}
				rec.Errors[c] = fmt.Sprint(v)
			}
		case strings.HasPrefix(name, "_tooltip_"):
			if c, ok := t.index[strings.TrimPrefix(name, "_tooltip_")]; ok && fmt.Sprint(v) != "" {
				if rec.Tooltips == nil {
					rec.Tooltips = make(map[int]string)
				}
				rec.Tooltips[c] = fmt.Sprint(v)
			}
		}
	}
	return rec
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}
