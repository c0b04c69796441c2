// Package columns owns per-column configuration of a grid: widths, visibility,
// display order and the shared sort state.
package columns

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/five82/lattice/internal/logging"
	"github.com/five82/lattice/internal/notify"
)

// ChangeKind names the aspect of a column that changed.
type ChangeKind int

const (
	Added ChangeKind = iota
	Removed
	Width
	Visibility
	Sort
	Order
	Style
	Editable
	Renamed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Width:
		return "width"
	case Visibility:
		return "visibility"
	case Sort:
		return "sort"
	case Order:
		return "order"
	case Style:
		return "style"
	case Editable:
		return "editable"
	case Renamed:
		return "renamed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change describes one column modification. Shared is set on Sort changes
// that altered the registry-wide sort state.
type Change struct {
	Kind   ChangeKind
	Column Descriptor
	Shared bool
}

// Span is the horizontal extent of a visible column.
type Span struct {
	Index    int
	Position int
	X        int
	Width    int
}

// Right returns the exclusive right edge.
func (s Span) Right() int { return s.X + s.Width }

// Registry holds the columns of one grid. It is safe for concurrent use;
// change listeners run outside the lock.
type Registry struct {
	log *logging.Logger

	mu    sync.Mutex
	next  int
	cols  map[int]*Descriptor
	order []int

	sorted    bool
	sortIndex int
	sortOrder SortOrder

	changes notify.Listeners[Change]
}

// NewRegistry returns an empty registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		log:  log.With("columns"),
		cols: make(map[int]*Descriptor),
	}
}

// Register adds a column at the end of the display order. The Index and
// Position of d are ignored and assigned here.
func (r *Registry) Register(d Descriptor) (Handle, error) {
	col := d.Clone()
	if col.Width == 0 {
		col.Width = DefaultWidth
	}
	if err := validate(&col); err != nil {
		return Handle{}, err
	}
	col.clampWidth()

	r.mu.Lock()
	col.Index = r.next
	r.next++
	col.Position = len(r.order)
	r.cols[col.Index] = &col
	r.order = append(r.order, col.Index)

	changes := []Change{{Kind: Added, Column: col.Clone()}}
	if col.SortOrder != SortNone {
		if r.applySortLocked(&col, col.SortOrder) {
			changes = append(changes, Change{Kind: Sort, Column: col.Clone(), Shared: true})
		}
	}
	r.mu.Unlock()

	r.log.Debug("column registered", map[string]any{"index": col.Index, "name": col.Name})
	r.emit(changes)
	return Handle{index: col.Index}, nil
}

// Update applies p to the column and emits one change per affected aspect.
// Setting SortOrder only moves the shared sort state when the column already
// is the sort column or nothing is sorted.
func (r *Registry) Update(h Handle, p Patch) error {
	r.mu.Lock()
	cur, ok := r.cols[h.index]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("update column %d: %w", h.index, ErrUnknownColumn)
	}

	next := cur.Clone()
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Kind != nil {
		next.Kind = *p.Kind
	}
	if p.Width != nil {
		next.Width = *p.Width
	}
	if p.MinWidth != nil {
		next.MinWidth = *p.MinWidth
	}
	if p.MaxWidth != nil {
		next.MaxWidth = *p.MaxWidth
	}
	if p.Visible != nil {
		next.Visible = *p.Visible
	}
	if p.Sortable != nil {
		next.Sortable = *p.Sortable
	}
	if p.Editable != nil {
		next.Editable = *p.Editable
	}
	if p.Style != nil {
		next.Style = p.Style.Clone()
	}
	if p.Data != nil {
		next.Data = maps.Clone(*p.Data)
	}
	if p.SortOrder != nil {
		next.SortOrder = *p.SortOrder
	}
	if err := validate(&next); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("update column %d: %w", h.index, err)
	}
	next.clampWidth()

	var changes []Change
	add := func(kind ChangeKind, changed bool) {
		if changed {
			changes = append(changes, Change{Kind: kind, Column: next.Clone()})
		}
	}
	add(Renamed, next.Name != cur.Name || next.Kind != cur.Kind)
	add(Width, next.Width != cur.Width || next.MinWidth != cur.MinWidth || next.MaxWidth != cur.MaxWidth)
	add(Visibility, next.Visible != cur.Visible)
	add(Editable, next.Editable != cur.Editable || next.Sortable != cur.Sortable)
	add(Style, p.Style != nil || p.Data != nil)

	if next.SortOrder != cur.SortOrder {
		shared := r.applySortLocked(&next, next.SortOrder)
		changes = append(changes, Change{Kind: Sort, Column: next.Clone(), Shared: shared})
	}
	*cur = next
	r.mu.Unlock()

	r.emit(changes)
	return nil
}

// applySortLocked moves the shared sort state for col if the sort rule allows
// it and reports whether it did.
func (r *Registry) applySortLocked(col *Descriptor, order SortOrder) bool {
	switch {
	case r.sorted && r.sortIndex == col.Index:
		if order == SortNone {
			r.sorted = false
		} else {
			r.sortOrder = order
		}
		return true
	case !r.sorted && order != SortNone:
		r.sorted = true
		r.sortIndex = col.Index
		r.sortOrder = order
		return true
	default:
		r.log.Debug("sort order set on inactive column", map[string]any{
			"index":  col.Index,
			"order":  order.String(),
			"active": r.sortIndex,
		})
		return false
	}
}

// SortBy makes the column the active sort column, resetting every other
// column's sort indicator.
func (r *Registry) SortBy(h Handle, ascending bool) error {
	order := SortDescending
	if ascending {
		order = SortAscending
	}

	r.mu.Lock()
	col, ok := r.cols[h.index]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("sort by column %d: %w", h.index, ErrUnknownColumn)
	}
	if !col.Sortable {
		r.mu.Unlock()
		return fmt.Errorf("sort by column %d: %w", h.index, ErrNotSortable)
	}

	var changes []Change
	for _, idx := range r.order {
		other := r.cols[idx]
		if idx == h.index || other.SortOrder == SortNone {
			continue
		}
		other.SortOrder = SortNone
		changes = append(changes, Change{Kind: Sort, Column: other.Clone()})
	}
	col.SortOrder = order
	r.sorted = true
	r.sortIndex = col.Index
	r.sortOrder = order
	changes = append(changes, Change{Kind: Sort, Column: col.Clone(), Shared: true})
	r.mu.Unlock()

	r.emit(changes)
	return nil
}

// ClearSort resets the shared sort state and every column's indicator.
func (r *Registry) ClearSort() {
	r.mu.Lock()
	var changes []Change
	for _, idx := range r.order {
		col := r.cols[idx]
		if col.SortOrder == SortNone {
			continue
		}
		col.SortOrder = SortNone
		changes = append(changes, Change{Kind: Sort, Column: col.Clone(), Shared: r.sorted && r.sortIndex == idx})
	}
	r.sorted = false
	r.mu.Unlock()

	r.emit(changes)
}

// Sort returns the shared sort column and order.
func (r *Registry) Sort() (index int, order SortOrder, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sorted {
		return 0, SortNone, false
	}
	return r.sortIndex, r.sortOrder, true
}

// Remove unregisters the column. Removing the sort column clears the shared
// sort state.
func (r *Registry) Remove(h Handle) error {
	r.mu.Lock()
	col, ok := r.cols[h.index]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("remove column %d: %w", h.index, ErrUnknownColumn)
	}
	delete(r.cols, h.index)
	r.order = slices.DeleteFunc(r.order, func(idx int) bool { return idx == h.index })
	r.renumberLocked()

	removed := col.Clone()
	changes := []Change{{Kind: Removed, Column: removed}}
	if r.sorted && r.sortIndex == h.index {
		r.sorted = false
		cleared := removed.Clone()
		cleared.SortOrder = SortNone
		changes = append(changes, Change{Kind: Sort, Column: cleared, Shared: true})
	}
	r.mu.Unlock()

	r.emit(changes)
	return nil
}

// Reorder moves the column to position, clamped to the display order.
func (r *Registry) Reorder(h Handle, position int) error {
	r.mu.Lock()
	col, ok := r.cols[h.index]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("reorder column %d: %w", h.index, ErrUnknownColumn)
	}
	position = max(0, min(position, len(r.order)-1))
	if position == col.Position {
		r.mu.Unlock()
		return nil
	}
	r.order = slices.Delete(r.order, col.Position, col.Position+1)
	r.order = slices.Insert(r.order, position, h.index)
	r.renumberLocked()
	change := Change{Kind: Order, Column: col.Clone()}
	r.mu.Unlock()

	r.emit([]Change{change})
	return nil
}

func (r *Registry) renumberLocked() {
	for pos, idx := range r.order {
		r.cols[idx].Position = pos
	}
}

// Get returns a copy of the column.
func (r *Registry) Get(h Handle) (Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	col, ok := r.cols[h.index]
	if !ok {
		return Descriptor{}, fmt.Errorf("get column %d: %w", h.index, ErrUnknownColumn)
	}
	return col.Clone(), nil
}

// Find returns the handle of the first column named name.
func (r *Registry) Find(name string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, idx := range r.order {
		if r.cols[idx].Name == name {
			return Handle{index: idx}, true
		}
	}
	return Handle{}, false
}

// Len returns the number of registered columns.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Columns returns every column in display order.
func (r *Registry) Columns() []Descriptor {
	return r.list(false)
}

// Visible returns the visible columns in display order.
func (r *Registry) Visible() []Descriptor {
	return r.list(true)
}

func (r *Registry) list(visibleOnly bool) []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, idx := range r.order {
		col := r.cols[idx]
		if visibleOnly && !col.Visible {
			continue
		}
		out = append(out, col.Clone())
	}
	return out
}

// Layout returns the spans of the visible columns in display order. Under
// right-to-left layout x positions are mirrored against the total width.
func (r *Registry) Layout(rtl bool) []Span {
	r.mu.Lock()
	defer r.mu.Unlock()

	spans := make([]Span, 0, len(r.order))
	x := 0
	for _, idx := range r.order {
		col := r.cols[idx]
		if !col.Visible {
			continue
		}
		spans = append(spans, Span{Index: idx, Position: col.Position, X: x, Width: col.Width})
		x += col.Width
	}
	if rtl {
		for i := range spans {
			spans[i].X = x - spans[i].X - spans[i].Width
		}
	}
	return spans
}

// TotalWidth returns the summed width of the visible columns.
func (r *Registry) TotalWidth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, col := range r.cols {
		if col.Visible {
			total += col.Width
		}
	}
	return total
}

// OnChange subscribes fn to column changes.
func (r *Registry) OnChange(fn func(Change)) func() {
	return r.changes.Add(fn)
}

func (r *Registry) emit(changes []Change) {
	for _, c := range changes {
		r.changes.Emit(c)
	}
}
