package theme

// Palette is the set of named colors a built-in theme is generated from.
type Palette struct {
	Name string

	// Base colors
	Background string // Outermost background
	Surface    string // Row background
	SurfaceAlt string // Odd rows and headers
	FocusBg    string // Focused row

	// Table colors
	SelectionBg   string
	SelectionText string

	// Border colors
	Border      string
	BorderMuted string // Grid lines between cells
	BorderFocus string // Focus indicator

	// Text colors
	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string
}

// Appearance keys used by the grid.
const (
	AppearanceTable          = "table"
	AppearanceRow            = "table-row"
	AppearanceCell           = "table-cell"
	AppearanceHeaderCell     = "table-header-cell"
	AppearanceFocusIndicator = "table-focus-indicator"
)

var palettes = map[string]Palette{
	"Nightfox": nightfoxPalette(),
	"Kanagawa": kanagawaPalette(),
	"Slate":    slatePalette(),
}

var paletteOrder = []string{"Nightfox", "Kanagawa", "Slate"}

// Builtin returns the built-in theme with the given name, falling back to the
// first one.
func Builtin(name string) *Definition {
	p, ok := palettes[name]
	if !ok {
		p = palettes[paletteOrder[0]]
	}
	return p.Definition()
}

// Names returns available built-in theme names.
func Names() []string {
	return append([]string(nil), paletteOrder...)
}

// Next returns the built-in theme following current in the cycle.
func Next(current string) string {
	for i, name := range paletteOrder {
		if name == current {
			return paletteOrder[(i+1)%len(paletteOrder)]
		}
	}
	return paletteOrder[0]
}

func ptr[T any](v T) *T { return &v }

// Definition expands the palette into the grid appearances.
func (p Palette) Definition() *Definition {
	return &Definition{
		Name: p.Name,
		Palette: map[string]string{
			"background":     p.Background,
			"surface":        p.Surface,
			"surface_alt":    p.SurfaceAlt,
			"focus_bg":       p.FocusBg,
			"selection_bg":   p.SelectionBg,
			"selection_text": p.SelectionText,
			"border":         p.Border,
			"border_muted":   p.BorderMuted,
			"border_focus":   p.BorderFocus,
			"text":           p.Text,
			"muted":          p.Muted,
			"faint":          p.Faint,
			"accent":         p.Accent,
			"success":        p.Success,
			"warning":        p.Warning,
			"danger":         p.Danger,
			"info":           p.Info,
		},
		Appearances: map[string]AppearanceDef{
			AppearanceTable: {
				Base: StyleDef{
					Font:       &FontDef{Family: "sans-serif", Size: 13},
					Color:      "$text",
					Background: "$background",
					Decorator:  &DecoratorDef{Width: ptr(Uniform(1)), Color: "$border", Style: "solid"},
				},
			},
			AppearanceRow: {
				Base: StyleDef{Color: "$text", Background: "$surface"},
				States: map[string]StyleDef{
					"odd":      {Background: "$surface_alt"},
					"focused":  {Background: "$focus_bg"},
					"selected": {Background: "$selection_bg", Color: "$selection_text"},
					"editing":  {Font: &FontDef{Italic: ptr(true)}},
				},
			},
			AppearanceCell: {
				Base: StyleDef{
					Padding:   &Insets{Top: 2, Right: 6, Bottom: 2, Left: 6},
					Decorator: &DecoratorDef{Width: &Insets{Right: 1, Bottom: 1}, Color: "$border_muted", Style: "solid"},
				},
				States: map[string]StyleDef{
					"invalid":  {Color: "$danger", Decorator: &DecoratorDef{Width: &Insets{Right: 1, Bottom: 2}, Color: "$danger"}},
					"selected": {Color: "$selection_text"},
					"focused":  {Background: "$focus_bg"},
					"editable": {Font: &FontDef{Bold: ptr(false)}},
					"number":   {CSS: map[string]string{"text-align": "right"}},
				},
			},
			AppearanceHeaderCell: {
				Include: AppearanceCell,
				Base: StyleDef{
					Font:       &FontDef{Bold: ptr(true)},
					Color:      "$accent",
					Background: "$surface_alt",
					Decorator:  &DecoratorDef{Width: &Insets{Right: 1, Bottom: 2}, Color: "$border"},
				},
				States: map[string]StyleDef{
					"sorted": {Color: "$warning"},
				},
			},
			AppearanceFocusIndicator: {
				Base: StyleDef{
					Decorator: &DecoratorDef{Width: ptr(Uniform(2)), Color: "$border_focus", Style: "solid"},
				},
			},
		},
	}
}

func nightfoxPalette() Palette {
	// Nightfox palette: https://github.com/EdenEast/nightfox.nvim
	return Palette{
		Name: "Nightfox",

		Background: "#131a24", // bg0
		Surface:    "#192330", // bg1
		SurfaceAlt: "#212e3f", // bg2
		FocusBg:    "#29394f", // bg3

		SelectionBg:   "#2b3b51", // sel0
		SelectionText: "#cdcecf", // fg1

		Border:      "#39506d", // bg4
		BorderMuted: "#212e3f", // bg2
		BorderFocus: "#719cd6", // blue

		Text:    "#cdcecf", // fg1
		Muted:   "#738091", // comment
		Faint:   "#71839b", // fg3
		Accent:  "#719cd6", // blue
		Success: "#81b29a", // green
		Warning: "#dbc074", // yellow
		Danger:  "#c94f6d", // red
		Info:    "#63cdcf", // cyan
	}
}

func kanagawaPalette() Palette {
	// Kanagawa palette: https://github.com/rebelot/kanagawa.nvim
	return Palette{
		Name: "Kanagawa",

		Background: "#16161D", // sumiInk0
		Surface:    "#1F1F28", // sumiInk3
		SurfaceAlt: "#2A2A37", // sumiInk4
		FocusBg:    "#363646", // sumiInk5

		SelectionBg:   "#2D4F67", // waveBlue1
		SelectionText: "#DCD7BA", // fujiWhite

		Border:      "#54546D", // sumiInk6
		BorderMuted: "#2A2A37", // sumiInk4
		BorderFocus: "#7E9CD8", // crystalBlue

		Text:    "#DCD7BA", // fujiWhite
		Muted:   "#C8C093", // oldWhite
		Faint:   "#727169", // fujiGray
		Accent:  "#7E9CD8", // crystalBlue
		Success: "#98BB6C", // springGreen
		Warning: "#E6C384", // carpYellow
		Danger:  "#E46876", // waveRed
		Info:    "#7FB4CA", // springBlue
	}
}

func slatePalette() Palette {
	// Tailwind CSS Slate/Sky palette: https://tailwindcss.com/docs/colors
	return Palette{
		Name: "Slate",

		Background: "#020617", // slate-950
		Surface:    "#0f172a", // slate-900
		SurfaceAlt: "#1e293b", // slate-800
		FocusBg:    "#283548",

		SelectionBg:   "#0284c7", // sky-600
		SelectionText: "#f8fafc", // slate-50

		Border:      "#334155", // slate-700
		BorderMuted: "#1e293b", // slate-800
		BorderFocus: "#38bdf8", // sky-400

		Text:    "#f1f5f9", // slate-100
		Muted:   "#94a3b8", // slate-400
		Faint:   "#64748b", // slate-500
		Accent:  "#38bdf8", // sky-400
		Success: "#22c55e", // green-500
		Warning: "#f59e0b", // amber-500
		Danger:  "#ef4444", // red-500
		Info:    "#06b6d4", // cyan-500
	}
}
