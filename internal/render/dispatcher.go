// Package render turns resident rows into row classes, inline styles and cell
// markup. Renderer choice and layered cell styles are memoized in a side
// table keyed by row index; the row records themselves are never written.
package render

import (
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lattice/internal/columns"
	"github.com/five82/lattice/internal/logging"
	"github.com/five82/lattice/internal/rows"
	"github.com/five82/lattice/internal/style"
	"github.com/five82/lattice/internal/theme"
)

// Coord addresses a cell by row index and column index.
type Coord struct {
	Row int
	Col int
}

// View is the interaction state a render pass is drawn against.
type View struct {
	Focused  *Coord
	Selected map[int]bool
	Editing  *Coord
	RowCount int
	RTL      bool
}

func (v View) focusedRow(row int) bool { return v.Focused != nil && v.Focused.Row == row }
func (v View) focusedCell(row, col int) bool {
	return v.Focused != nil && v.Focused.Row == row && v.Focused.Col == col
}
func (v View) editingRow(row int) bool { return v.Editing != nil && v.Editing.Row == row }

// Cell is the rendered form of one cell. Span is the number of columns the
// cell covers.
type Cell struct {
	Column      int
	ClassName   string
	InlineStyle string
	Markup      string
	Text        string
	Tooltip     string
	Span        int
	Terminal    lipgloss.Style
}

// Output is the rendered form of one row.
type Output struct {
	RowIndex    int
	Renderer    RendererTag
	ClassName   string
	InlineStyle string
	ZIndex      int
	Cells       []Cell
	Terminal    lipgloss.Style
}

// RowState tracks a row through the render cycle.
type RowState int

const (
	RowUnloaded RowState = iota
	RowLoaded
	RowRendered
	RowDirty
)

func (s RowState) String() string {
	switch s {
	case RowLoaded:
		return "loaded"
	case RowRendered:
		return "rendered"
	case RowDirty:
		return "dirty"
	default:
		return "unloaded"
	}
}

// Options tune a Dispatcher. CharWidth is the column width of one terminal
// cell; when set, text output is truncated to the column width.
type Options struct {
	Logger       *logging.Logger
	DefaultStyle rows.StyleMap
	CharWidth    int
}

type cellMemo struct {
	inline   string
	props    map[string]string
	invalid  bool
	editable bool
	number   bool
}

type sideEntry struct {
	state    RowState
	version  uint64
	renderer RowRenderer
	cells    map[int]cellMemo
}

// Dispatcher renders rows. It is safe for concurrent use.
type Dispatcher struct {
	engine       *style.Engine
	log          *logging.Logger
	defaultStyle rows.StyleMap
	charWidth    int

	mu        sync.Mutex
	renderers map[RendererTag]RowRenderer
	cells     map[columns.Kind]CellRenderer
	side      map[int]*sideEntry
}

// NewDispatcher returns a dispatcher resolving classes through engine. Only
// the default row renderer is registered.
func NewDispatcher(engine *style.Engine, opts Options) *Dispatcher {
	return &Dispatcher{
		engine:       engine,
		log:          opts.Logger.With("render"),
		defaultStyle: opts.DefaultStyle.Clone(),
		charWidth:    opts.CharWidth,
		renderers:    map[RendererTag]RowRenderer{TagDefault: defaultRenderer{}},
		cells: map[columns.Kind]CellRenderer{
			columns.KindText:    textCell{},
			columns.KindNumber:  numberCell{},
			columns.KindBoolean: booleanCell{},
			columns.KindDate:    dateCell{},
		},
		side: make(map[int]*sideEntry),
	}
}

// GroupHeaderRenderer returns the built-in renderer drawing a row as one
// spanning cell.
func GroupHeaderRenderer() RowRenderer { return groupHeaderRenderer{} }

// SummaryRenderer returns the built-in renderer for totals rows.
func SummaryRenderer() RowRenderer { return summaryRenderer{} }

// Register installs r for tag. Memoized renderer choices are dropped.
func (d *Dispatcher) Register(tag RendererTag, r RowRenderer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r == nil {
		if tag != TagDefault {
			delete(d.renderers, tag)
		}
	} else {
		d.renderers[tag] = r
	}
	for _, e := range d.side {
		e.renderer = nil
	}
}

// RegisterCell installs the cell renderer for a column kind.
func (d *Dispatcher) RegisterCell(kind columns.Kind, r CellRenderer) {
	if r == nil {
		return
	}
	d.mu.Lock()
	d.cells[kind] = r
	d.mu.Unlock()
}

func (d *Dispatcher) entryLocked(row int) *sideEntry {
	e, ok := d.side[row]
	if !ok {
		e = &sideEntry{state: RowLoaded}
		d.side[row] = e
	}
	return e
}

func (d *Dispatcher) rendererLocked(e *sideEntry, row *rows.RowRecord) RowRenderer {
	if e.renderer != nil {
		return e.renderer
	}
	name := ""
	if row.Style != nil {
		name = row.Style.Renderer
	}
	tag, known := ParseRendererTag(name)
	r, ok := d.renderers[tag]
	switch {
	case !known:
		d.log.Debug("unknown row renderer, using default", map[string]any{"row": row.Index, "renderer": name})
		r = d.renderers[TagDefault]
	case !ok:
		d.log.Debug("row renderer not registered, using default", map[string]any{"row": row.Index, "renderer": tag.String()})
		r = d.renderers[TagDefault]
	}
	e.renderer = r
	return r
}

// RenderRow renders row against the visible columns, given in display order.
func (d *Dispatcher) RenderRow(row *rows.RowRecord, cols []columns.Descriptor, view View) Output {
	idx := row.Index

	d.mu.Lock()
	e := d.entryLocked(idx)
	version := e.version
	renderer := d.rendererLocked(e, row)
	d.mu.Unlock()

	rowStates := style.States{
		"focused":  view.focusedRow(idx),
		"selected": view.Selected[idx],
		"even":     idx%2 == 0,
		"odd":      idx%2 == 1,
		"editing":  view.editingRow(idx),
	}
	rowEntry := d.engine.Resolve(theme.AppearanceRow, rowStates)

	ordered := cols
	if view.RTL {
		ordered = slices.Clone(cols)
		slices.Reverse(ordered)
	}

	z := view.RowCount - idx
	inline := map[string]string{"z-index": strconv.Itoa(z)}
	if row.Height != nil {
		inline["height"] = strconv.Itoa(row.EffectiveHeight(*row.Height)) + "px"
	}

	ctx := RowContext{
		Row:     row,
		Columns: ordered,
		View:    view,
		cell: func(col columns.Descriptor, extra style.States) Cell {
			return d.renderCell(row, col, view, extra)
		},
	}
	cells := renderer.RenderCells(ctx)

	d.mu.Lock()
	if e.version == version {
		e.state = RowRendered
	}
	d.mu.Unlock()

	return Output{
		RowIndex:    idx,
		Renderer:    renderer.Tag(),
		ClassName:   rowEntry.ClassName,
		InlineStyle: inlineCSS(inline),
		ZIndex:      z,
		Cells:       cells,
		Terminal:    rowEntry.Terminal,
	}
}

func (d *Dispatcher) renderCell(row *rows.RowRecord, col columns.Descriptor, view View, extra style.States) Cell {
	memo := d.cellMemo(row, col)

	states := style.States{
		"focused":  view.focusedCell(row.Index, col.Index),
		"selected": view.Selected[row.Index],
		"invalid":  memo.invalid,
		"editable": memo.editable,
		"number":   memo.number,
	}
	maps.Copy(states, extra)
	entry := d.engine.Resolve(theme.AppearanceCell, states)

	d.mu.Lock()
	cr, ok := d.cells[col.Kind]
	if !ok {
		cr = d.cells[columns.KindText]
	}
	d.mu.Unlock()

	value, present := row.Data[col.Index]
	maxText := 0
	if d.charWidth > 0 {
		maxText = col.Width / d.charWidth
	}
	markup, text := cr.Render(CellContext{
		Row:     row.Index,
		Column:  col,
		Value:   value,
		Present: present,
		MaxText: maxText,
	})

	tooltip := row.Tooltips[col.Index]
	if tooltip == "" && memo.invalid {
		tooltip = row.Errors[col.Index]
	}

	term := entry.Terminal
	if c := memo.props["color"]; c != "" {
		term = term.Foreground(lipgloss.Color(c))
	}
	if bg := memo.props["background-color"]; bg != "" {
		term = term.Background(lipgloss.Color(bg))
	}

	return Cell{
		Column:      col.Index,
		ClassName:   entry.ClassName,
		InlineStyle: memo.inline,
		Markup:      markup,
		Text:        text,
		Tooltip:     tooltip,
		Span:        1,
		Terminal:    term,
	}
}

// cellMemo returns the layered style of a cell: table default, then column,
// then row, then cell overrides.
func (d *Dispatcher) cellMemo(row *rows.RowRecord, col columns.Descriptor) cellMemo {
	d.mu.Lock()
	defer d.mu.Unlock()

	e := d.entryLocked(row.Index)
	if m, ok := e.cells[col.Index]; ok {
		return m
	}

	props := make(map[string]string)
	maps.Copy(props, d.defaultStyle)
	maps.Copy(props, col.Style)
	if row.Style != nil {
		maps.Copy(props, row.Style.Props)
	}
	maps.Copy(props, row.CellStyles[col.Index])

	m := cellMemo{
		inline:   inlineCSS(props),
		props:    props,
		invalid:  row.Errors[col.Index] != "",
		editable: col.Editable,
		number:   col.Kind == columns.KindNumber,
	}
	if e.cells == nil {
		e.cells = make(map[int]cellMemo)
	}
	e.cells[col.Index] = m
	return m
}

// CellAppearance returns the appearance key and states of a cell as last
// rendered. The focus overlay derives border insets from it.
func (d *Dispatcher) CellAppearance(row, col int, view View) (string, style.States) {
	states := style.States{
		"focused":  view.focusedCell(row, col),
		"selected": view.Selected[row],
	}
	d.mu.Lock()
	if e, ok := d.side[row]; ok {
		if m, ok := e.cells[col]; ok {
			states["invalid"] = m.invalid
			states["editable"] = m.editable
			states["number"] = m.number
		}
	}
	d.mu.Unlock()
	return theme.AppearanceCell, states
}

// MarkLoaded records that the rows in r arrived from the cache.
func (d *Dispatcher) MarkLoaded(r rows.Range) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := r.First; i <= r.Last; i++ {
		d.entryLocked(i)
	}
}

// Invalidate marks the changed rows dirty and drops their memoized styles for
// the changed columns. A change covering every column also drops the
// memoized renderer.
func (d *Dispatcher) Invalidate(ev rows.DataChanged) {
	allCols := ev.Cols.First <= 0 && ev.Cols.Last >= math.MaxInt32

	d.mu.Lock()
	defer d.mu.Unlock()
	for idx, e := range d.side {
		if !ev.Rows.Contains(idx) {
			continue
		}
		e.version++
		if e.state == RowRendered {
			e.state = RowDirty
		}
		if allCols {
			e.cells = nil
			e.renderer = nil
			continue
		}
		maps.DeleteFunc(e.cells, func(col int, _ cellMemo) bool { return ev.Cols.Contains(col) })
	}
}

// InvalidateAll marks every rendered row dirty and drops all memoized state.
func (d *Dispatcher) InvalidateAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.side {
		e.version++
		if e.state == RowRendered {
			e.state = RowDirty
		}
		e.cells = nil
		e.renderer = nil
	}
}

// Forget drops the side table entries of rows in r, returning them to
// RowUnloaded.
func (d *Dispatcher) Forget(r rows.Range) {
	d.mu.Lock()
	defer d.mu.Unlock()
	maps.DeleteFunc(d.side, func(idx int, _ *sideEntry) bool { return r.Contains(idx) })
}

// State returns the render state of row.
func (d *Dispatcher) State(row int) RowState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.side[row]; ok {
		return e.state
	}
	return RowUnloaded
}

// Dirty returns the indices of rows that need a redraw, ascending.
func (d *Dispatcher) Dirty() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []int
	for idx, e := range d.side {
		if e.state == RowDirty {
			out = append(out, idx)
		}
	}
	slices.Sort(out)
	return out
}

func inlineCSS(props map[string]string) string {
	if len(props) == 0 {
		return ""
	}
	var b strings.Builder
	for i, k := range slices.Sorted(maps.Keys(props)) {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(props[k])
		b.WriteString(";")
	}
	return b.String()
}
