// Package grid composes the row cache, style engine, column registry, render
// dispatcher and focus overlay into one data grid and wires their change
// notifications together.
package grid

import (
	"context"
	"errors"
	"maps"
	"math"
	"sync"

	"github.com/five82/lattice/internal/columns"
	"github.com/five82/lattice/internal/focus"
	"github.com/five82/lattice/internal/logging"
	"github.com/five82/lattice/internal/notify"
	"github.com/five82/lattice/internal/render"
	"github.com/five82/lattice/internal/rows"
	"github.com/five82/lattice/internal/style"
	"github.com/five82/lattice/internal/theme"
)

// Options configure a Grid.
type Options struct {
	Transport    rows.Transport
	StoreID      string
	Theme        theme.Repository
	Logger       *logging.Logger
	MaxBlocks    int
	MaxBlockRows int
	DefaultCSS   map[string]string
	DefaultStyle rows.StyleMap
	CharWidth    int
	RowHeight    int
	Viewport     focus.Viewport
}

// Grid is one remotely backed data grid.
type Grid struct {
	log        *logging.Logger
	cache      *rows.Cache
	engine     *style.Engine
	columns    *columns.Registry
	dispatcher *render.Dispatcher
	overlay    *focus.Overlay

	mu       sync.Mutex
	focus    *render.Coord
	selected map[int]bool
	editing  *render.Coord
	rowCount int
	rtl      bool

	dataChanged      notify.Listeners[rows.DataChanged]
	heightChanged    notify.Listeners[rows.RowHeightChanged]
	styleInvalidated notify.Listeners[uint64]

	unsubscribe []func()
}

var allRows = rows.Range{First: 0, Last: math.MaxInt}

// New builds a grid. The transport is required.
func New(opts Options) (*Grid, error) {
	if opts.Transport == nil {
		return nil, rows.ErrNoTransport
	}
	log := opts.Logger.With("grid")

	g := &Grid{
		log:      log,
		selected: make(map[int]bool),
		rtl:      opts.Viewport.RTL,
	}
	g.cache = rows.NewCache(opts.Transport, opts.StoreID, rows.Options{
		MaxBlocks:    opts.MaxBlocks,
		MaxBlockRows: opts.MaxBlockRows,
		Logger:       opts.Logger,
	})
	g.engine = style.NewEngine(opts.Theme, style.Options{DefaultCSS: opts.DefaultCSS, Logger: opts.Logger})
	g.columns = columns.NewRegistry(opts.Logger)
	g.dispatcher = render.NewDispatcher(g.engine, render.Options{
		Logger:       opts.Logger,
		DefaultStyle: opts.DefaultStyle,
		CharWidth:    opts.CharWidth,
	})
	g.dispatcher.Register(render.TagGroupHeader, render.GroupHeaderRenderer())
	g.dispatcher.Register(render.TagSummary, render.SummaryRenderer())
	g.overlay = focus.NewOverlay(g.columns, g.cellAppearance, g.engine, focus.Options{
		Logger:           opts.Logger,
		DefaultRowHeight: opts.RowHeight,
		Viewport:         opts.Viewport,
	})

	g.unsubscribe = []func(){
		g.columns.OnChange(g.columnChanged),
		g.cache.OnDataChanged(func(ev rows.DataChanged) {
			g.dispatcher.Invalidate(ev)
			g.dataChanged.Emit(ev)
		}),
		g.cache.OnRowHeightChanged(func(ev rows.RowHeightChanged) {
			g.overlay.SetRowHeight(ev.Row, ev.Height)
			g.heightChanged.Emit(ev)
		}),
		// A refetched row may be a different record; memoized styles must go.
		g.cache.OnRowsDropped(g.dispatcher.Forget),
		g.engine.OnInvalidated(func(gen uint64) {
			g.dispatcher.InvalidateAll()
			g.overlay.Recompute()
			g.styleInvalidated.Emit(gen)
		}),
	}
	return g, nil
}

// Close detaches the grid's internal subscriptions.
func (g *Grid) Close() {
	for _, fn := range g.unsubscribe {
		fn()
	}
	g.unsubscribe = nil
}

func (g *Grid) columnChanged(ch columns.Change) {
	if ch.Kind == columns.Sort {
		if !ch.Shared {
			return
		}
		if idx, order, ok := g.columns.Sort(); ok {
			g.cache.SetSort(idx, order == columns.SortAscending)
		} else {
			g.cache.ClearSort()
		}
		g.dispatcher.Forget(allRows)
		// Row indices now name different records.
		g.overlay.ResetRowHeights()
		g.log.Debug("sort forwarded to cache", map[string]any{"column": ch.Column.Index})
		return
	}
	g.dispatcher.InvalidateAll()
	g.overlay.ColumnChanged(ch)
}

func (g *Grid) cellAppearance(row, col int) (string, style.States) {
	return g.dispatcher.CellAppearance(row, col, g.View())
}

// View returns the interaction state used for rendering.
func (g *Grid) View() render.View {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := render.View{
		Selected: maps.Clone(g.selected),
		RowCount: g.rowCount,
		RTL:      g.rtl,
	}
	if g.focus != nil {
		c := *g.focus
		v.Focused = &c
	}
	if g.editing != nil {
		c := *g.editing
		v.Editing = &c
	}
	return v
}

// RowCount fetches the total row count and bounds focus to it.
func (g *Grid) RowCount(ctx context.Context) (int, error) {
	n, err := g.cache.RowCount(ctx)
	if err != nil {
		return 0, err
	}
	g.mu.Lock()
	g.rowCount = n
	g.mu.Unlock()
	g.overlay.SetRowCount(n)
	return n, nil
}

// Page fetches and renders the inclusive row range. A fetch superseded by a
// newer one yields an empty page and no error; a transport failure yields an
// empty page and the error.
func (g *Grid) Page(ctx context.Context, first, last int) ([]render.Output, error) {
	records, err := g.cache.Rows(ctx, first, last)
	if errors.Is(err, rows.ErrSuperseded) {
		return nil, nil
	}
	if err != nil {
		g.log.Warn("page fetch failed", map[string]any{"first": first, "last": last, "error": err.Error()})
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	span := rows.Range{First: records[0].Index, Last: records[len(records)-1].Index}
	g.dispatcher.MarkLoaded(span)
	heights := make(map[int]int)
	for _, rec := range records {
		if rec.Height != nil {
			heights[rec.Index] = rec.EffectiveHeight(*rec.Height)
		}
	}
	g.overlay.ReplaceRowHeights(span.First, span.Last, heights)

	view := g.View()
	cols := g.columns.Visible()
	out := make([]render.Output, 0, len(records))
	for i := range records {
		out = append(out, g.dispatcher.RenderRow(&records[i], cols, view))
	}
	return out, nil
}

// SetFocus moves keyboard focus to (col, row); nil clears it.
func (g *Grid) SetFocus(col, row *int) {
	g.mu.Lock()
	if col == nil || row == nil {
		g.focus = nil
	} else {
		g.focus = &render.Coord{Row: *row, Col: *col}
	}
	g.mu.Unlock()
	g.overlay.MoveTo(col, row)
}

// Focused returns the focused cell.
func (g *Grid) Focused() (render.Coord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.focus == nil {
		return render.Coord{}, false
	}
	return *g.focus, true
}

// MoveFocus moves focus by dRows rows and dCols visible columns, clamped to
// the grid. Without a focused cell it starts at the first visible column of
// row 0.
func (g *Grid) MoveFocus(dRows, dCols int) {
	spans := g.columns.Layout(false)
	if len(spans) == 0 {
		return
	}

	g.mu.Lock()
	cur := render.Coord{Col: spans[0].Index}
	if g.focus != nil {
		cur = *g.focus
	}
	pos := 0
	for i, sp := range spans {
		if sp.Index == cur.Col {
			pos = i
			break
		}
	}
	if g.rtl {
		dCols = -dCols
	}
	pos = max(0, min(pos+dCols, len(spans)-1))
	row := max(cur.Row+dRows, 0)
	if g.rowCount > 0 {
		row = min(row, g.rowCount-1)
	}
	col := spans[pos].Index
	g.focus = &render.Coord{Row: row, Col: col}
	g.mu.Unlock()

	g.overlay.MoveTo(&col, &row)
}

// Select adds or removes row from the selection.
func (g *Grid) Select(row int, selected bool) {
	g.mu.Lock()
	if selected {
		g.selected[row] = true
	} else {
		delete(g.selected, row)
	}
	g.mu.Unlock()
}

// ClearSelection deselects every row.
func (g *Grid) ClearSelection() {
	g.mu.Lock()
	clear(g.selected)
	g.mu.Unlock()
}

// SetEditing marks the cell being edited; nil ends editing.
func (g *Grid) SetEditing(col, row *int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if col == nil || row == nil {
		g.editing = nil
		return
	}
	g.editing = &render.Coord{Row: *row, Col: *col}
}

// Scroll sets the viewport scroll offsets.
func (g *Grid) Scroll(x, y int) {
	g.overlay.SetScroll(x, y)
}

// SetViewport replaces the viewport geometry.
func (g *Grid) SetViewport(vp focus.Viewport) {
	g.mu.Lock()
	g.rtl = vp.RTL
	g.mu.Unlock()
	g.overlay.SetViewport(vp)
}

// Focus reports keyboard focus entering the grid.
func (g *Grid) Focus() { g.overlay.Focus() }

// Blur reports keyboard focus leaving the grid and clears the focused cell.
func (g *Grid) Blur() {
	g.mu.Lock()
	g.focus = nil
	g.mu.Unlock()
	g.overlay.Blur()
}

// SetTheme swaps the theme. Class names stay stable; every rule is rebuilt.
func (g *Grid) SetTheme(repo theme.Repository) {
	g.engine.SetRepository(repo)
}

// Invalidate drops all cached rows, the row count and render state.
func (g *Grid) Invalidate() {
	g.cache.Invalidate()
	g.dispatcher.Forget(allRows)
	g.overlay.ResetRowHeights()
}

// RefreshRowCount drops the cached row count so the next RowCount asks the
// transport again. Cached rows are kept.
func (g *Grid) RefreshRowCount() {
	g.cache.InvalidateRowCount()
}

// InvalidateRange drops the cached rows in the inclusive range.
func (g *Grid) InvalidateRange(first, last int) {
	g.cache.InvalidateRange(first, last)
	g.dispatcher.Forget(rows.Range{First: first, Last: last})
	g.overlay.ReplaceRowHeights(first, last, nil)
}

// Stylesheet renders the managed stylesheet.
func (g *Grid) Stylesheet() string {
	return g.engine.Sheet().CSS()
}

func (g *Grid) Cache() *rows.Cache             { return g.cache }
func (g *Grid) Engine() *style.Engine          { return g.engine }
func (g *Grid) Columns() *columns.Registry     { return g.columns }
func (g *Grid) Dispatcher() *render.Dispatcher { return g.dispatcher }
func (g *Grid) Overlay() *focus.Overlay        { return g.overlay }

// OnDataChanged subscribes fn to resident-row changes.
func (g *Grid) OnDataChanged(fn func(rows.DataChanged)) func() {
	return g.dataChanged.Add(fn)
}

// OnRowHeightChanged subscribes fn to row height changes.
func (g *Grid) OnRowHeightChanged(fn func(rows.RowHeightChanged)) func() {
	return g.heightChanged.Add(fn)
}

// OnStyleInvalidated subscribes fn to theme-wide style rebuilds.
func (g *Grid) OnStyleInvalidated(fn func(generation uint64)) func() {
	return g.styleInvalidated.Add(fn)
}
