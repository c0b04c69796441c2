package render

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/five82/lattice/internal/columns"
	"github.com/five82/lattice/internal/rows"
)

// CellContext is the input of a cell renderer. MaxText is the width, in
// terminal cells, the text form must fit in; zero means unbounded.
type CellContext struct {
	Row     int
	Column  columns.Descriptor
	Value   rows.CellValue
	Present bool
	MaxText int
}

// CellRenderer formats a cell value as HTML markup and as plain text.
type CellRenderer interface {
	Render(ctx CellContext) (markup, text string)
}

// CellRendererFunc adapts a function to CellRenderer.
type CellRendererFunc func(ctx CellContext) (markup, text string)

// Render calls f.
func (f CellRendererFunc) Render(ctx CellContext) (string, string) { return f(ctx) }

func truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

type textCell struct{}

func (textCell) Render(ctx CellContext) (string, string) {
	if !ctx.Present || ctx.Value == nil {
		return "", ""
	}
	s := fmt.Sprint(ctx.Value)
	return html.EscapeString(s), truncate(s, ctx.MaxText)
}

type numberCell struct{}

func (numberCell) Render(ctx CellContext) (string, string) {
	if !ctx.Present || ctx.Value == nil {
		return "", ""
	}
	s := formatNumber(ctx.Value)
	text := s
	if ctx.MaxText > 0 && runewidth.StringWidth(s) > ctx.MaxText {
		text = truncate(s, ctx.MaxText)
	} else if ctx.MaxText > 0 {
		text = runewidth.FillLeft(s, ctx.MaxText)
	}
	return html.EscapeString(s), text
}

func formatNumber(v rows.CellValue) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case json.Number:
		return n.String()
	default:
		return fmt.Sprint(v)
	}
}

type booleanCell struct{}

func (booleanCell) Render(ctx CellContext) (string, string) {
	if !ctx.Present || ctx.Value == nil {
		return "", ""
	}
	on := truthy(ctx.Value)
	if on {
		return `<input type="checkbox" checked disabled>`, "[x]"
	}
	return `<input type="checkbox" disabled>`, "[ ]"
}

func truthy(v rows.CellValue) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		ok, _ := strconv.ParseBool(b)
		return ok
	case float64:
		return b != 0
	case int:
		return b != 0
	case int64:
		return b != 0
	default:
		return false
	}
}

// dateLayout is the display format of date cells.
const dateLayout = "2006-01-02"

type dateCell struct{}

func (dateCell) Render(ctx CellContext) (string, string) {
	if !ctx.Present || ctx.Value == nil {
		return "", ""
	}
	s := formatDate(ctx.Value)
	return html.EscapeString(s), truncate(s, ctx.MaxText)
}

func formatDate(v rows.CellValue) string {
	switch d := v.(type) {
	case time.Time:
		return d.Format(dateLayout)
	case string:
		if t, err := time.Parse(time.RFC3339, d); err == nil {
			return t.UTC().Format(dateLayout)
		}
		return d
	case float64:
		return time.Unix(int64(d), 0).UTC().Format(dateLayout)
	case int64:
		return time.Unix(d, 0).UTC().Format(dateLayout)
	case int:
		return time.Unix(int64(d), 0).UTC().Format(dateLayout)
	default:
		return fmt.Sprint(v)
	}
}
