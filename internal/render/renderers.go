package render

import (
	"github.com/five82/lattice/internal/columns"
	"github.com/five82/lattice/internal/rows"
	"github.com/five82/lattice/internal/style"
)

// RendererTag selects a row renderer. Rows name their renderer in
// RowStyle.Renderer; only the tags below exist.
type RendererTag int

const (
	TagDefault RendererTag = iota
	TagGroupHeader
	TagSummary
)

func (t RendererTag) String() string {
	switch t {
	case TagGroupHeader:
		return "group-header"
	case TagSummary:
		return "summary"
	default:
		return "default"
	}
}

// ParseRendererTag maps a row's renderer name to a tag. The empty name is
// TagDefault; unknown names report false.
func ParseRendererTag(s string) (RendererTag, bool) {
	switch s {
	case "", "default":
		return TagDefault, true
	case "group-header", "groupHeader":
		return TagGroupHeader, true
	case "summary":
		return TagSummary, true
	default:
		return TagDefault, false
	}
}

// RowContext is what a row renderer sees. Row must not be modified.
type RowContext struct {
	Row     *rows.RowRecord
	Columns []columns.Descriptor
	View    View

	cell func(col columns.Descriptor, extra style.States) Cell
}

// Cell renders one column of the row through the dispatcher's cell pipeline,
// adding extra states to the cell class.
func (c RowContext) Cell(col columns.Descriptor, extra style.States) Cell {
	return c.cell(col, extra)
}

// RowRenderer produces the cells of a row.
type RowRenderer interface {
	Tag() RendererTag
	RenderCells(ctx RowContext) []Cell
}

type defaultRenderer struct{}

func (defaultRenderer) Tag() RendererTag { return TagDefault }

func (defaultRenderer) RenderCells(ctx RowContext) []Cell {
	cells := make([]Cell, 0, len(ctx.Columns))
	for _, col := range ctx.Columns {
		cells = append(cells, ctx.Cell(col, nil))
	}
	return cells
}

// groupHeaderRenderer draws a single cell spanning every visible column,
// showing the first non-empty value of the row.
type groupHeaderRenderer struct{}

func (groupHeaderRenderer) Tag() RendererTag { return TagGroupHeader }

func (groupHeaderRenderer) RenderCells(ctx RowContext) []Cell {
	if len(ctx.Columns) == 0 {
		return nil
	}
	lead := ctx.Columns[0]
	for _, col := range ctx.Columns {
		if v, ok := ctx.Row.Data[col.Index]; ok && v != nil {
			lead = col
			break
		}
	}
	cell := ctx.Cell(lead, style.States{"group": true})
	cell.Span = len(ctx.Columns)
	return []Cell{cell}
}

type summaryRenderer struct{}

func (summaryRenderer) Tag() RendererTag { return TagSummary }

func (summaryRenderer) RenderCells(ctx RowContext) []Cell {
	cells := make([]Cell, 0, len(ctx.Columns))
	for _, col := range ctx.Columns {
		cells = append(cells, ctx.Cell(col, style.States{"summary": true}))
	}
	return cells
}
