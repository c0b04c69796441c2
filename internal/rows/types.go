package rows

import (
	"context"
	"fmt"
	"maps"
)

// CellValue is a single cell payload as decoded from the wire.
type CellValue = any

// StyleMap maps a CSS property name to its value.
type StyleMap map[string]string

// Clone returns an independent copy of m.
func (m StyleMap) Clone() StyleMap {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// RowStyle is the style shared by every cell of a row. Renderer optionally
// names the row renderer that should draw the row.
type RowStyle struct {
	Renderer string   `json:"renderer,omitempty"`
	Props    StyleMap `json:"props,omitempty"`
}

// Clone returns a deep copy of s.
func (s *RowStyle) Clone() *RowStyle {
	if s == nil {
		return nil
	}
	return &RowStyle{Renderer: s.Renderer, Props: s.Props.Clone()}
}

// RowRecord is one row of the remote model. Maps are created lazily: a nil map
// means the field has not been fetched, never that it is empty.
type RowRecord struct {
	Index      int               `json:"index"`
	Height     *int              `json:"height,omitempty"`
	MinHeight  *int              `json:"minHeight,omitempty"`
	MaxHeight  *int              `json:"maxHeight,omitempty"`
	Resizable  *bool             `json:"resizable,omitempty"`
	Style      *RowStyle         `json:"style,omitempty"`
	Data       map[int]CellValue `json:"data,omitempty"`
	Errors     map[int]string    `json:"errors,omitempty"`
	Tooltips   map[int]string    `json:"tooltips,omitempty"`
	CellStyles map[int]StyleMap  `json:"cellStyles,omitempty"`
}

// Clone returns a deep copy of r. Cell values are copied by assignment.
func (r RowRecord) Clone() RowRecord {
	out := r
	out.Height = cloneInt(r.Height)
	out.MinHeight = cloneInt(r.MinHeight)
	out.MaxHeight = cloneInt(r.MaxHeight)
	if r.Resizable != nil {
		v := *r.Resizable
		out.Resizable = &v
	}
	out.Style = r.Style.Clone()
	if r.Data != nil {
		out.Data = maps.Clone(r.Data)
	}
	if r.Errors != nil {
		out.Errors = maps.Clone(r.Errors)
	}
	if r.Tooltips != nil {
		out.Tooltips = maps.Clone(r.Tooltips)
	}
	if r.CellStyles != nil {
		out.CellStyles = make(map[int]StyleMap, len(r.CellStyles))
		for k, v := range r.CellStyles {
			out.CellStyles[k] = v.Clone()
		}
	}
	return out
}

// EffectiveHeight returns the row height clamped to its min/max, or fallback
// when the row does not carry its own height.
func (r RowRecord) EffectiveHeight(fallback int) int {
	h := fallback
	if r.Height != nil {
		h = *r.Height
	}
	if r.MinHeight != nil && h < *r.MinHeight {
		h = *r.MinHeight
	}
	if r.MaxHeight != nil && *r.MaxHeight > 0 && h > *r.MaxHeight {
		h = *r.MaxHeight
	}
	return h
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// SortDirection is the direction requested from the transport.
type SortDirection int

const (
	SortNone SortDirection = iota
	SortAscending
	SortDescending
)

func (d SortDirection) String() string {
	switch d {
	case SortAscending:
		return "asc"
	case SortDescending:
		return "desc"
	default:
		return "none"
	}
}

// ParseSortDirection is the inverse of SortDirection.String.
func ParseSortDirection(s string) SortDirection {
	switch s {
	case "asc", "ascending":
		return SortAscending
	case "desc", "descending":
		return SortDescending
	default:
		return SortNone
	}
}

// Query describes an inclusive row range request.
type Query struct {
	First         int
	Last          int
	SortIndex     int
	SortDirection SortDirection
}

// Transport reaches the remote row source. Implementations must be safe for
// concurrent use; timeouts are their responsibility.
type Transport interface {
	RowCount(ctx context.Context, storeID string) (int, error)
	Rows(ctx context.Context, storeID string, q Query) ([]RowRecord, error)
}

// Range is an inclusive index range.
type Range struct {
	First int
	Last  int
}

// Len returns the number of indices in r.
func (r Range) Len() int {
	if r.Last < r.First {
		return 0
	}
	return r.Last - r.First + 1
}

// Contains reports whether i lies within r.
func (r Range) Contains(i int) bool {
	return i >= r.First && i <= r.Last
}

// Overlaps reports whether r and o share at least one index.
func (r Range) Overlaps(o Range) bool {
	return r.First <= o.Last && o.First <= r.Last
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.First, r.Last)
}

// DataChanged reports a change to resident rows.
type DataChanged struct {
	Rows Range
	Cols Range
}

// RowHeightChanged reports a new height for a resident row.
type RowHeightChanged struct {
	Row    int
	Height int
}
