package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/five82/lattice/internal/columns"
	"github.com/five82/lattice/internal/render"
	"github.com/five82/lattice/internal/style"
	"github.com/five82/lattice/internal/theme"
)

// splitColumns returns the frozen and the horizontally scrollable visible
// columns in display order.
func (m Model) splitColumns() (frozen, scrollable []columns.Descriptor) {
	cols := m.grid.Columns().Visible()
	n := min(max(m.base.FrozenCols, 0), len(cols))
	return cols[:n], cols[n:]
}

func totalWidth(cols []columns.Descriptor) int {
	w := 0
	for _, c := range cols {
		w += c.Width
	}
	return w
}

// fits reports whether frozen plus cols fit the terminal width.
func (m Model) fits(frozen, cols []columns.Descriptor) bool {
	return totalWidth(frozen)+totalWidth(cols) <= m.width
}

// window returns the columns drawn this frame: the frozen ones, then as many
// scrollable ones from colOffset as fit. At least one scrollable column is
// drawn when any exists.
func (m Model) window() []columns.Descriptor {
	frozen, scrollable := m.splitColumns()
	out := slices.Clone(frozen)
	used := totalWidth(frozen)
	for i := min(m.colOffset, len(scrollable)); i < len(scrollable); i++ {
		col := scrollable[i]
		if used+col.Width > m.width && len(out) > len(frozen) {
			break
		}
		out = append(out, col)
		used += col.Width
	}
	return out
}

// scrollX is the width of the scrollable columns skipped on the left.
func (m Model) scrollX() int {
	_, scrollable := m.splitColumns()
	return totalWidth(scrollable[:min(m.colOffset, len(scrollable))])
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderColumnHeader())
	b.WriteString("\n")
	b.WriteString(m.renderBody())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

func (m Model) renderHeader() string {
	table := m.grid.Engine().Resolve(theme.AppearanceTable, nil).Terminal
	count := "…"
	if m.countKnown {
		count = fmt.Sprintf("%d", m.rowCount)
	}
	text := fmt.Sprintf(" lattice │ %s │ %s rows │ %s", m.storeID, count, m.themeName)
	if idx, order, ok := m.grid.Columns().Sort(); ok {
		if col, err := m.grid.Columns().Get(columns.HandleFor(idx)); err == nil {
			text += fmt.Sprintf(" │ sort %s %s", col.Name, sortArrow(order))
		}
	}
	return table.Bold(true).Width(m.width).MaxWidth(m.width).Render(text)
}

func sortArrow(o columns.SortOrder) string {
	switch o {
	case columns.SortAscending:
		return "▲"
	case columns.SortDescending:
		return "▼"
	default:
		return ""
	}
}

func (m Model) renderColumnHeader() string {
	cols := m.window()
	if m.base.RTL {
		slices.Reverse(cols)
	}
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		sorted := col.SortOrder != columns.SortNone
		st := m.grid.Engine().Resolve(theme.AppearanceHeaderCell, style.States{"sorted": sorted}).Terminal
		label := col.Name
		if sorted {
			label += " " + sortArrow(col.SortOrder)
		}
		parts = append(parts, st.Width(col.Width).Render(fit(label, col.Width)))
	}
	return m.align(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}

// fit truncates s to leave one cell of gutter in width.
func fit(s string, width int) string {
	return runewidth.Truncate(s, max(width-1, 0), "…")
}

func (m Model) align(line string) string {
	if m.base.RTL {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, line)
	}
	return line
}

// rowHeight is the number of lines row occupies.
func (m Model) rowHeight(row int) int {
	o := m.grid.Overlay()
	return max(o.RowTop(row+1)-o.RowTop(row), 1)
}

func (m Model) renderBody() string {
	body := m.bodyHeight()
	cols := m.window()
	if m.base.RTL {
		slices.Reverse(cols)
	}

	lines := make([]string, 0, body)
	for _, out := range m.page {
		if out.RowIndex < m.top {
			continue
		}
		if len(lines) >= body {
			break
		}
		h := min(m.rowHeight(out.RowIndex), body-len(lines))
		row := m.renderRow(out, cols, h)
		lines = append(lines, strings.Split(row, "\n")...)
	}
	if len(lines) > body {
		lines = lines[:body]
	}
	for len(lines) < body {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// renderRow draws one row output across cols. A cell spanning several
// columns takes the whole window.
func (m Model) renderRow(out render.Output, cols []columns.Descriptor, height int) string {
	byCol := make(map[int]render.Cell, len(out.Cells))
	for _, c := range out.Cells {
		byCol[c.Column] = c
	}

	if len(out.Cells) == 1 && out.Cells[0].Span > 1 {
		c := out.Cells[0]
		w := totalWidth(cols)
		st := c.Terminal.Inherit(out.Terminal).Bold(true)
		return m.align(st.Width(w).Height(height).Render(fit(" "+c.Text, w)))
	}

	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		c, ok := byCol[col.Index]
		st := out.Terminal
		text := ""
		if ok {
			st = c.Terminal.Inherit(out.Terminal)
			text = c.Text
		}
		if col.Kind == columns.KindNumber {
			st = st.Align(lipgloss.Right)
		}
		parts = append(parts, st.Width(col.Width).Height(height).Render(fit(strings.TrimSpace(text), col.Width)+" "))
	}
	return m.align(lipgloss.JoinHorizontal(lipgloss.Top, parts...))
}

// focusedCell returns the rendered focused cell, when it is on the page.
func (m Model) focusedCell() (render.Cell, bool) {
	cur, ok := m.grid.Focused()
	if !ok {
		return render.Cell{}, false
	}
	for _, out := range m.page {
		if out.RowIndex != cur.Row {
			continue
		}
		for _, c := range out.Cells {
			if c.Column == cur.Col {
				return c, true
			}
		}
	}
	return render.Cell{}, false
}

func (m Model) renderStatus() string {
	var parts []string
	st := m.grid.Overlay().State()
	if st.Row != nil && st.Col != nil {
		name := fmt.Sprintf("%d", *st.Col)
		if col, err := m.grid.Columns().Get(columns.HandleFor(*st.Col)); err == nil {
			name = col.Name
		}
		pos := fmt.Sprintf("row %d/%d %s", *st.Row+1, m.rowCount, name)
		if st.Rect != nil {
			pos += fmt.Sprintf(" @%d,%d", st.Rect.X, st.Rect.Y)
		}
		parts = append(parts, pos)
	}
	if sel := len(m.grid.View().Selected); sel > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", sel))
	}
	if c, ok := m.focusedCell(); ok && c.Tooltip != "" {
		parts = append(parts, c.Tooltip)
	}

	left := strings.Join(parts, " │ ")
	if m.lastErr != nil {
		danger := m.grid.Engine().Resolve(theme.AppearanceCell, style.States{"invalid": true}).Terminal
		left = danger.Render("error: " + m.lastErr.Error())
	}
	right := m.help.ShortHelpView(m.keys.ShortHelp())
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	indicator := m.grid.Engine().Resolve(theme.AppearanceFocusIndicator, nil)
	accent := m.grid.Engine().Resolve(theme.AppearanceHeaderCell, nil).Terminal

	h := m.help
	h.ShowAll = true

	var b strings.Builder
	b.WriteString(accent.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")
	b.WriteString(h.View(m.keys))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(1, 2)
	if d := indicator.Decorator; d != nil && d.Color != "" {
		modal = modal.BorderForeground(lipgloss.Color(d.Color))
	}

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
	)
}

// renderLogs replaces the grid body with the tail of the log file.
func (m Model) renderLogs() string {
	base := m.grid.Engine().Resolve(theme.AppearanceTable, nil).Terminal
	warn := m.grid.Engine().Resolve(theme.AppearanceHeaderCell, style.States{"sorted": true}).Terminal
	danger := m.grid.Engine().Resolve(theme.AppearanceCell, style.States{"invalid": true}).Terminal

	body := m.bodyHeight() + 1
	lines := make([]string, 0, body)
	for _, e := range m.logs {
		st := base
		switch e.Level {
		case "warn":
			st = warn
		case "error", "fatal", "panic":
			st = danger
		}
		lines = append(lines, st.Render(runewidth.Truncate(e.Format(), m.width, "…")))
	}
	if len(lines) > body {
		lines = lines[len(lines)-body:]
	}
	for len(lines) < body {
		lines = append(lines, "")
	}

	title := base.Bold(true).Width(m.width).MaxWidth(m.width).Render(" lattice │ log │ " + m.logPath)
	status := m.help.ShortHelpView([]key.Binding{m.keys.Logs, m.keys.Quit})
	return title + "\n" + strings.Join(lines, "\n") + "\n" + status
}
