package style

import (
	"maps"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lattice/internal/theme"
)

// synthesize turns a resolved appearance into CSS properties.
func synthesize(app theme.Appearance) map[string]string {
	css := make(map[string]string)

	if app.Font.Family != "" {
		css["font-family"] = app.Font.Family
	}
	if app.Font.Size > 0 {
		css["font-size"] = strconv.Itoa(app.Font.Size) + "px"
	}
	if app.Font.Bold {
		css["font-weight"] = "bold"
	}
	if app.Font.Italic {
		css["font-style"] = "italic"
	}
	if app.Color != "" {
		css["color"] = app.Color
	}
	if app.Background != "" {
		css["background-color"] = app.Background
	}
	if !app.Padding.IsZero() {
		css["padding"] = app.Padding.CSS()
	}
	if !app.Margin.IsZero() {
		css["margin"] = app.Margin.CSS()
	}
	if d := app.Decorator; d != nil {
		borderStyle := d.Style
		if borderStyle == "" {
			borderStyle = "solid"
		}
		if borderStyle != "none" {
			color := d.Color
			if color == "" {
				color = "currentColor"
			}
			sides := []struct {
				name  string
				width int
			}{
				{"border-top", d.Width.Top},
				{"border-right", d.Width.Right},
				{"border-bottom", d.Width.Bottom},
				{"border-left", d.Width.Left},
			}
			for _, side := range sides {
				if side.width > 0 {
					css[side.name] = strconv.Itoa(side.width) + "px " + borderStyle + " " + color
				}
			}
		}
		if d.Background != "" {
			css["background-color"] = d.Background
		}
		if d.Radius > 0 {
			css["border-radius"] = strconv.Itoa(d.Radius) + "px"
		}
	}
	maps.Copy(css, app.CSS)
	return css
}

// terminalStyle is the lipgloss rendering of the same rule for terminal shells.
func terminalStyle(css map[string]string) lipgloss.Style {
	s := lipgloss.NewStyle()
	if c := css["color"]; c != "" {
		s = s.Foreground(lipgloss.Color(c))
	}
	if bg := css["background-color"]; bg != "" {
		s = s.Background(lipgloss.Color(bg))
	}
	if css["font-weight"] == "bold" {
		s = s.Bold(true)
	}
	if css["font-style"] == "italic" {
		s = s.Italic(true)
	}
	if css["text-decoration"] == "underline" {
		s = s.Underline(true)
	}
	return s
}
