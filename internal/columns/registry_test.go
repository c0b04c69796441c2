package columns

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/five82/lattice/internal/rows"
)

func ptr[T any](v T) *T { return &v }

type recorder struct {
	changes []Change
}

func (r *recorder) record(c Change) { r.changes = append(r.changes, c) }

func (r *recorder) kinds() []ChangeKind {
	out := make([]ChangeKind, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.Kind)
	}
	return out
}

func newRegistry(t *testing.T, names ...string) (*Registry, []Handle) {
	t.Helper()
	reg := NewRegistry(nil)
	handles := make([]Handle, 0, len(names))
	for _, name := range names {
		h, err := reg.Register(Descriptor{Name: name, Width: 50, Visible: true, Sortable: true})
		require.NoError(t, err)
		handles = append(handles, h)
	}
	return reg, handles
}

func TestRegisterAssignsIndexAndPosition(t *testing.T) {
	reg, hs := newRegistry(t, "id", "name", "size")

	for i, h := range hs {
		require.Equal(t, i, h.Index())
		col, err := reg.Get(h)
		require.NoError(t, err)
		require.Equal(t, i, col.Index)
		require.Equal(t, i, col.Position)
	}

	h, err := reg.Register(Descriptor{Name: "wide", Width: 500, MinWidth: 10, MaxWidth: 200, Index: 99, Position: 99})
	require.NoError(t, err)
	col, _ := reg.Get(h)
	require.Equal(t, 3, col.Index)
	require.Equal(t, 3, col.Position)
	require.Equal(t, 200, col.Width)

	h, err = reg.Register(Descriptor{Name: "default"})
	require.NoError(t, err)
	col, _ = reg.Get(h)
	require.Equal(t, DefaultWidth, col.Width)
}

func TestRegisterRejectsInvalidDescriptor(t *testing.T) {
	reg := NewRegistry(nil)

	tests := []struct {
		name string
		d    Descriptor
	}{
		{"negative width", Descriptor{Width: -5}},
		{"negative min", Descriptor{MinWidth: -1}},
		{"max below min", Descriptor{MinWidth: 50, MaxWidth: 20}},
		{"bad kind", Descriptor{Kind: Kind(9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reg.Register(tt.d)
			require.ErrorIs(t, err, ErrInvalidDescriptor)
		})
	}
	require.Equal(t, 0, reg.Len())
}

func TestUpdateEmitsOneChangePerAspect(t *testing.T) {
	reg, hs := newRegistry(t, "a")
	rec := &recorder{}
	reg.OnChange(rec.record)

	err := reg.Update(hs[0], Patch{
		Width:   ptr(80),
		Visible: ptr(false),
		Style:   ptr(rows.StyleMap{"color": "red"}),
	})
	require.NoError(t, err)
	require.Equal(t, []ChangeKind{Width, Visibility, Style}, rec.kinds())

	col, _ := reg.Get(hs[0])
	require.Equal(t, 80, col.Width)
	require.False(t, col.Visible)
	require.Equal(t, "red", col.Style["color"])

	rec.changes = nil
	require.NoError(t, reg.Update(hs[0], Patch{Width: ptr(80)}))
	require.Empty(t, rec.changes)
}

func TestUpdateClampsWidth(t *testing.T) {
	reg, hs := newRegistry(t, "a")
	require.NoError(t, reg.Update(hs[0], Patch{MinWidth: ptr(60)}))
	col, _ := reg.Get(hs[0])
	require.Equal(t, 60, col.Width)

	require.NoError(t, reg.Update(hs[0], Patch{Width: ptr(1000), MaxWidth: ptr(120)}))
	col, _ = reg.Get(hs[0])
	require.Equal(t, 120, col.Width)

	err := reg.Update(hs[0], Patch{Width: ptr(-1)})
	require.ErrorIs(t, err, ErrInvalidDescriptor)
	col, _ = reg.Get(hs[0])
	require.Equal(t, 120, col.Width)
}

func TestUnknownHandle(t *testing.T) {
	reg, _ := newRegistry(t, "a")
	missing := HandleFor(42)

	require.ErrorIs(t, reg.Update(missing, Patch{}), ErrUnknownColumn)
	require.ErrorIs(t, reg.Remove(missing), ErrUnknownColumn)
	require.ErrorIs(t, reg.Reorder(missing, 0), ErrUnknownColumn)
	require.ErrorIs(t, reg.SortBy(missing, true), ErrUnknownColumn)
	_, err := reg.Get(missing)
	require.ErrorIs(t, err, ErrUnknownColumn)
}

func TestSortOrderSetterRule(t *testing.T) {
	reg, hs := newRegistry(t, "a", "b")
	rec := &recorder{}
	reg.OnChange(rec.record)

	// Nothing sorted: the setter claims the shared state.
	require.NoError(t, reg.Update(hs[0], Patch{SortOrder: ptr(SortAscending)}))
	idx, order, ok := reg.Sort()
	require.True(t, ok)
	require.Equal(t, 0, idx)
	require.Equal(t, SortAscending, order)
	require.True(t, rec.changes[0].Shared)

	// Another column is active: local display change only.
	rec.changes = nil
	require.NoError(t, reg.Update(hs[1], Patch{SortOrder: ptr(SortDescending)}))
	idx, order, ok = reg.Sort()
	require.True(t, ok)
	require.Equal(t, 0, idx)
	require.Equal(t, SortAscending, order)
	require.Len(t, rec.changes, 1)
	require.Equal(t, Sort, rec.changes[0].Kind)
	require.False(t, rec.changes[0].Shared)
	b, _ := reg.Get(hs[1])
	require.Equal(t, SortDescending, b.SortOrder)

	// The active column may change its own direction.
	require.NoError(t, reg.Update(hs[0], Patch{SortOrder: ptr(SortDescending)}))
	_, order, _ = reg.Sort()
	require.Equal(t, SortDescending, order)

	// Clearing the active column clears the shared state.
	rec.changes = nil
	require.NoError(t, reg.Update(hs[0], Patch{SortOrder: ptr(SortNone)}))
	_, _, ok = reg.Sort()
	require.False(t, ok)
	require.True(t, rec.changes[0].Shared)
}

func TestSortByResetsOtherColumns(t *testing.T) {
	reg, hs := newRegistry(t, "a", "b", "c")
	require.NoError(t, reg.SortBy(hs[0], true))
	require.NoError(t, reg.Update(hs[2], Patch{SortOrder: ptr(SortAscending)}))

	rec := &recorder{}
	reg.OnChange(rec.record)
	require.NoError(t, reg.SortBy(hs[1], false))

	idx, order, ok := reg.Sort()
	require.True(t, ok)
	require.Equal(t, 1, idx)
	require.Equal(t, SortDescending, order)

	for i, col := range reg.Columns() {
		if i == 1 {
			require.Equal(t, SortDescending, col.SortOrder)
			continue
		}
		require.Equal(t, SortNone, col.SortOrder)
	}

	shared := 0
	for _, c := range rec.changes {
		if c.Shared {
			shared++
			require.Equal(t, 1, c.Column.Index)
		}
	}
	require.Equal(t, 1, shared)

	require.NoError(t, reg.Update(hs[2], Patch{Sortable: ptr(false)}))
	require.ErrorIs(t, reg.SortBy(hs[2], true), ErrNotSortable)
}

func TestClearSort(t *testing.T) {
	reg, hs := newRegistry(t, "a", "b")
	require.NoError(t, reg.SortBy(hs[1], true))
	reg.ClearSort()
	_, _, ok := reg.Sort()
	require.False(t, ok)
	for _, col := range reg.Columns() {
		require.Equal(t, SortNone, col.SortOrder)
	}
}

func TestRegisterSortedColumnClaimsSharedSort(t *testing.T) {
	reg := NewRegistry(nil)
	_, err := reg.Register(Descriptor{Name: "a", SortOrder: SortDescending})
	require.NoError(t, err)
	_, err = reg.Register(Descriptor{Name: "b", SortOrder: SortAscending})
	require.NoError(t, err)

	idx, order, ok := reg.Sort()
	require.True(t, ok)
	require.Equal(t, 0, idx)
	require.Equal(t, SortDescending, order)
}

func TestRemoveKeepsPositionsDense(t *testing.T) {
	reg, hs := newRegistry(t, "a", "b", "c")
	require.NoError(t, reg.SortBy(hs[1], true))

	rec := &recorder{}
	reg.OnChange(rec.record)
	require.NoError(t, reg.Remove(hs[1]))

	require.Equal(t, []ChangeKind{Removed, Sort}, rec.kinds())
	require.True(t, rec.changes[1].Shared)
	_, _, ok := reg.Sort()
	require.False(t, ok)

	cols := reg.Columns()
	require.Len(t, cols, 2)
	require.Equal(t, []int{0, 2}, []int{cols[0].Index, cols[1].Index})
	require.Equal(t, []int{0, 1}, []int{cols[0].Position, cols[1].Position})

	h, err := reg.Register(Descriptor{Name: "d"})
	require.NoError(t, err)
	require.Equal(t, 3, h.Index())
}

func TestReorder(t *testing.T) {
	reg, hs := newRegistry(t, "a", "b", "c", "d")
	rec := &recorder{}
	reg.OnChange(rec.record)

	require.NoError(t, reg.Reorder(hs[3], 0))
	require.NoError(t, reg.Reorder(hs[0], 99))
	require.NoError(t, reg.Reorder(hs[1], -4))
	require.NoError(t, reg.Reorder(hs[1], 0))

	names := []string{}
	for i, col := range reg.Columns() {
		require.Equal(t, i, col.Position)
		names = append(names, col.Name)
	}
	require.Equal(t, []string{"b", "d", "c", "a"}, names)
	require.Equal(t, []ChangeKind{Order, Order, Order}, rec.kinds())

	h, ok := reg.Find("c")
	require.True(t, ok)
	require.Equal(t, hs[2], h)
	_, ok = reg.Find("zz")
	require.False(t, ok)
}

func TestLayout(t *testing.T) {
	reg := NewRegistry(nil)
	a, _ := reg.Register(Descriptor{Name: "a", Width: 40, Visible: true})
	_, _ = reg.Register(Descriptor{Name: "hidden", Width: 1000})
	c, _ := reg.Register(Descriptor{Name: "c", Width: 60, Visible: true})
	d, _ := reg.Register(Descriptor{Name: "d", Width: 25, Visible: true})
	require.NoError(t, reg.Reorder(d, 0))

	require.Equal(t, 125, reg.TotalWidth())

	ltr := reg.Layout(false)
	require.Equal(t, []Span{
		{Index: d.Index(), Position: 0, X: 0, Width: 25},
		{Index: a.Index(), Position: 1, X: 25, Width: 40},
		{Index: c.Index(), Position: 3, X: 65, Width: 60},
	}, ltr)

	rtl := reg.Layout(true)
	require.Equal(t, []Span{
		{Index: d.Index(), Position: 0, X: 100, Width: 25},
		{Index: a.Index(), Position: 1, X: 60, Width: 40},
		{Index: c.Index(), Position: 3, X: 0, Width: 60},
	}, rtl)
	require.Equal(t, 125, rtl[0].Right())

	require.Len(t, reg.Visible(), 3)
	require.Len(t, reg.Columns(), 4)
}

func TestColumnsReturnsCopies(t *testing.T) {
	reg := NewRegistry(nil)
	h, _ := reg.Register(Descriptor{Name: "a", Style: rows.StyleMap{"color": "red"}, Data: map[string]string{"k": "v"}})

	cols := reg.Columns()
	cols[0].Style["color"] = "blue"
	cols[0].Data["k"] = "x"

	col, _ := reg.Get(h)
	require.Equal(t, "red", col.Style["color"])
	require.Equal(t, "v", col.Data["k"])
}

func TestUnsubscribe(t *testing.T) {
	reg := NewRegistry(nil)
	rec := &recorder{}
	cancel := reg.OnChange(rec.record)
	_, _ = reg.Register(Descriptor{Name: "a"})
	cancel()
	_, _ = reg.Register(Descriptor{Name: "b"})
	require.Len(t, rec.changes, 1)
}

func TestParseHelpers(t *testing.T) {
	require.Equal(t, KindNumber, ParseKind(KindNumber.String()))
	require.Equal(t, KindDate, ParseKind("date"))
	require.Equal(t, KindText, ParseKind("whatever"))
	require.Equal(t, SortDescending, ParseSortOrder("desc"))
	require.Equal(t, rows.SortAscending, SortAscending.Direction())
	require.Equal(t, rows.SortNone, SortNone.Direction())
}
