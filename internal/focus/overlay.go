// Package focus computes the focus indicator rectangle of a grid. The
// rectangle tracks scrolling, frozen bands and right-to-left layout, and sits
// inside the focused cell's border decorator.
package focus

import (
	"sync"

	"github.com/five82/lattice/internal/columns"
	"github.com/five82/lattice/internal/logging"
	"github.com/five82/lattice/internal/notify"
	"github.com/five82/lattice/internal/style"
	"github.com/five82/lattice/internal/theme"
)

// DefaultRowHeight is used when Options leaves it unset.
const DefaultRowHeight = 24

// Rect is an axis-aligned rectangle in viewport pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (r Rect) Top() int    { return r.Y }
func (r Rect) Left() int   { return r.X }
func (r Rect) Right() int  { return r.X + r.Width }
func (r Rect) Bottom() int { return r.Y + r.Height }

// Inset shrinks r by in on every side. The size never goes negative.
func (r Rect) Inset(in theme.Insets) Rect {
	out := Rect{
		X:      r.X + in.Left,
		Y:      r.Y + in.Top,
		Width:  r.Width - in.Left - in.Right,
		Height: r.Height - in.Top - in.Bottom,
	}
	out.Width = max(out.Width, 0)
	out.Height = max(out.Height, 0)
	return out
}

// State is the focus target and its geometry. Row and Col are nil when
// nothing is focused; Rect is nil when the target is not on screen.
type State struct {
	Row     *int
	Col     *int
	Rect    *Rect
	Visible bool
}

func (s State) equal(o State) bool {
	return eqPtr(s.Row, o.Row) && eqPtr(s.Col, o.Col) && eqPtr(s.Rect, o.Rect) && s.Visible == o.Visible
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Viewport describes the scrollable area. Frozen rows and columns do not
// scroll; HeaderHeight is the height of the column header above row 0.
type Viewport struct {
	Width        int
	Height       int
	ScrollX      int
	ScrollY      int
	FrozenRows   int
	FrozenCols   int
	HeaderHeight int
	RTL          bool
}

// LayoutSource provides the spans of the visible columns.
type LayoutSource interface {
	Layout(rtl bool) []columns.Span
}

// InsetSource resolves the border insets of a styled element.
type InsetSource interface {
	BorderInsets(key string, states style.States) (theme.Insets, error)
}

// CellAppearanceFunc returns the appearance key and states of a cell.
type CellAppearanceFunc func(row, col int) (string, style.States)

// Options tune an Overlay.
type Options struct {
	Logger           *logging.Logger
	DefaultRowHeight int
	RowCount         int
	Viewport         Viewport
}

// Overlay tracks the focused cell of one grid.
type Overlay struct {
	layout     LayoutSource
	appearance CellAppearanceFunc
	insets     InsetSource
	log        *logging.Logger

	mu       sync.Mutex
	offsets  *Offsets
	vp       Viewport
	rowCount int
	focused  bool
	state    State

	changes notify.Listeners[State]
}

// NewOverlay returns an overlay reading column geometry from layout and
// border insets from insets.
func NewOverlay(layout LayoutSource, appearance CellAppearanceFunc, insets InsetSource, opts Options) *Overlay {
	h := opts.DefaultRowHeight
	if h <= 0 {
		h = DefaultRowHeight
	}
	return &Overlay{
		layout:     layout,
		appearance: appearance,
		insets:     insets,
		log:        opts.Logger.With("focus"),
		offsets:    NewOffsets(h),
		vp:         opts.Viewport,
		rowCount:   opts.RowCount,
	}
}

// MoveTo focuses the cell at (col, row). A nil argument hides the overlay and
// clears the state.
func (o *Overlay) MoveTo(col, row *int) {
	o.update(func() {
		if col == nil || row == nil {
			o.state = State{}
			return
		}
		c, r := *col, *row
		o.state.Row = &r
		o.state.Col = &c
	})
}

// SetViewport replaces the viewport.
func (o *Overlay) SetViewport(vp Viewport) {
	o.update(func() { o.vp = vp })
}

// SetScroll updates the scroll offsets.
func (o *Overlay) SetScroll(x, y int) {
	o.update(func() {
		o.vp.ScrollX = max(x, 0)
		o.vp.ScrollY = max(y, 0)
	})
}

// SetRowHeight records the height of row.
func (o *Overlay) SetRowHeight(row, height int) {
	o.update(func() { o.offsets.Set(row, height) })
}

// ReplaceRowHeights drops the overrides in the inclusive range and records
// heights in their place, in one recompute.
func (o *Overlay) ReplaceRowHeights(first, last int, heights map[int]int) {
	o.update(func() {
		o.offsets.Clear(first, last)
		for row, h := range heights {
			o.offsets.Set(row, h)
		}
	})
}

// SetDefaultRowHeight changes the height of rows without an override.
func (o *Overlay) SetDefaultRowHeight(height int) {
	o.update(func() { o.offsets.SetDefault(height) })
}

// ResetRowHeights drops every row height override.
func (o *Overlay) ResetRowHeights() {
	o.update(func() { o.offsets.Reset() })
}

// SetRowCount bounds the rows that can hold focus. Zero means unknown.
func (o *Overlay) SetRowCount(n int) {
	o.update(func() { o.rowCount = max(n, 0) })
}

// Focus marks the grid as holding keyboard focus.
func (o *Overlay) Focus() {
	o.update(func() { o.focused = true })
}

// Blur marks the grid as having lost keyboard focus and clears the state.
func (o *Overlay) Blur() {
	o.update(func() {
		o.focused = false
		o.state = State{}
	})
}

// ColumnChanged reacts to a column registry change.
func (o *Overlay) ColumnChanged(ch columns.Change) {
	o.update(func() {
		if ch.Kind == columns.Removed && o.state.Col != nil && *o.state.Col == ch.Column.Index {
			o.state = State{}
		}
	})
}

// Recompute recalculates the geometry, for callers whose inputs changed
// behind the overlay's back such as a theme switch.
func (o *Overlay) Recompute() {
	o.update(func() {})
}

// State returns the current focus state.
func (o *Overlay) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return copyState(o.state)
}

// RowTop returns the content offset of row, before scrolling.
func (o *Overlay) RowTop(row int) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.offsets.Top(row)
}

// OnChange subscribes fn to state changes.
func (o *Overlay) OnChange(fn func(State)) func() {
	return o.changes.Add(fn)
}

func (o *Overlay) update(mutate func()) {
	o.mu.Lock()
	before := copyState(o.state)
	mutate()
	o.recomputeLocked()
	after := copyState(o.state)
	o.mu.Unlock()

	if !before.equal(after) {
		o.changes.Emit(after)
	}
}

func copyState(s State) State {
	out := State{Visible: s.Visible}
	if s.Row != nil {
		v := *s.Row
		out.Row = &v
	}
	if s.Col != nil {
		v := *s.Col
		out.Col = &v
	}
	if s.Rect != nil {
		v := *s.Rect
		out.Rect = &v
	}
	return out
}

func (o *Overlay) recomputeLocked() {
	s := &o.state
	s.Rect = nil
	s.Visible = false
	if s.Row == nil || s.Col == nil {
		return
	}
	row, col := *s.Row, *s.Col
	if row < 0 || (o.rowCount > 0 && row >= o.rowCount) {
		*s = State{}
		return
	}

	x, width, ok := o.columnLocked(col)
	if !ok {
		// Hidden or removed columns cannot hold focus.
		*s = State{}
		return
	}
	if x < 0 {
		// Scrolled out of the horizontal window.
		return
	}

	y, ok := o.rowLocked(row)
	if !ok {
		return
	}

	rect := Rect{X: x, Y: y, Width: width, Height: o.offsets.Height(row)}
	rect = rect.Inset(o.cellInsetsLocked(row, col))
	s.Rect = &rect
	s.Visible = o.focused
}

// columnLocked returns the viewport x of col, or a negative x when the
// column is scrolled out of view. ok is false for columns without a span.
func (o *Overlay) columnLocked(col int) (x, width int, ok bool) {
	spans := o.layout.Layout(false)
	pos := -1
	for i, sp := range spans {
		if sp.Index == col {
			pos = i
			break
		}
	}
	if pos < 0 {
		return 0, 0, false
	}
	span := spans[pos]

	frozen := min(o.vp.FrozenCols, len(spans))
	frozenWidth := 0
	if frozen > 0 {
		frozenWidth = spans[frozen-1].Right()
	}
	total := 0
	if n := len(spans); n > 0 {
		total = spans[n-1].Right()
	}

	x = span.X
	if pos >= frozen {
		x -= o.vp.ScrollX
		if x < frozenWidth || (o.vp.Width > 0 && x >= o.vp.Width) {
			return -1, span.Width, true
		}
	}

	if o.vp.RTL {
		mirror := o.vp.Width
		if mirror <= 0 {
			mirror = total
		}
		x = mirror - x - span.Width
	}
	return x, span.Width, true
}

// rowLocked returns the viewport y of row. ok is false when the row lies
// behind the frozen band or outside the viewport.
func (o *Overlay) rowLocked(row int) (int, bool) {
	top := o.offsets.Top(row)
	if row < o.vp.FrozenRows {
		return o.vp.HeaderHeight + top, true
	}
	band := o.offsets.Top(o.vp.FrozenRows)
	rel := top - o.vp.ScrollY
	if rel < band {
		return 0, false
	}
	y := o.vp.HeaderHeight + rel
	if o.vp.Height > 0 && y >= o.vp.Height {
		return 0, false
	}
	return y, true
}

func (o *Overlay) cellInsetsLocked(row, col int) theme.Insets {
	if o.insets == nil {
		return theme.Insets{}
	}
	key, states := theme.AppearanceCell, style.States{"focused": true}
	if o.appearance != nil {
		key, states = o.appearance(row, col)
	}
	in, err := o.insets.BorderInsets(key, states)
	if err != nil {
		o.log.Debug("border insets unavailable, using zero", map[string]any{
			"appearance": key,
			"error":      err.Error(),
		})
		return theme.Insets{}
	}
	return in
}
