package theme

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTheme = `
name: Paper
palette:
  ink: "#222222"
  paper: "#fafafa"
  accent: "#0055ff"
  warn: "#cc0000"
appearances:
  cell:
    base:
      color: $ink
      background: $paper
      padding: {top: 2, right: 4, bottom: 2, left: 4}
      decorator:
        width: {right: 1, bottom: 1}
        color: $ink
        style: solid
    states:
      invalid:
        color: $warn
        decorator:
          width: {right: 1, bottom: 3}
      focused:
        background: $accent
        color: white
  header-cell:
    include: cell
    base:
      font: {bold: true, size: 12}
    states:
      focused:
        decorator:
          style: none
`

func TestParseAndLookup(t *testing.T) {
	def, err := Parse([]byte(sampleTheme))
	require.NoError(t, err)
	repo := NewStaticRepository(def)
	require.Equal(t, "Paper", repo.Name())

	app, err := repo.Lookup("cell", nil)
	require.NoError(t, err)
	require.Equal(t, "#222222", app.Color)
	require.Equal(t, "#fafafa", app.Background)
	require.Equal(t, Insets{Top: 2, Right: 4, Bottom: 2, Left: 4}, app.Padding)
	require.NotNil(t, app.Decorator)
	require.Equal(t, Insets{Right: 1, Bottom: 1}, app.Decorator.Width)

	app, err = repo.Lookup("cell", []string{"invalid", "focused"})
	require.NoError(t, err)
	// focused applies before invalid (lexical order), so invalid wins the color.
	require.Equal(t, "#cc0000", app.Color)
	require.Equal(t, "#0055ff", app.Background)
	require.Equal(t, Insets{Right: 1, Bottom: 3}, app.Decorator.Width)
	require.Equal(t, "solid", app.Decorator.Style)
}

func TestLookupFollowsIncludes(t *testing.T) {
	def, err := Parse([]byte(sampleTheme))
	require.NoError(t, err)
	repo := NewStaticRepository(def)

	app, err := repo.Lookup("header-cell", nil)
	require.NoError(t, err)
	require.True(t, app.Font.Bold)
	require.Equal(t, 12, app.Font.Size)
	require.Equal(t, "#222222", app.Color)

	app, err = repo.Lookup("header-cell", []string{"focused"})
	require.NoError(t, err)
	require.Equal(t, "white", app.Color)
	insets, err := app.Decorator.Insets()
	require.NoError(t, err)
	require.True(t, insets.IsZero())
}

func TestLookupUnknownAppearance(t *testing.T) {
	repo := NewStaticRepository(Builtin("Slate"))
	_, err := repo.Lookup("spinner", nil)
	require.ErrorIs(t, err, ErrUnknownAppearance)

	var empty *StaticRepository
	_, err = empty.Lookup("table", nil)
	require.ErrorIs(t, err, ErrUnknownAppearance)
}

func TestParseRejectsInvalidThemes(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "palette: {a: \"#ffffff\"}\n"},
		{"bad palette color", "name: x\npalette: {a: \"blue-ish\"}\n"},
		{"bad palette key", "name: x\npalette: {Bad-Key: \"#ffffff\"}\n"},
		{"negative padding", "name: x\nappearances:\n  a:\n    base:\n      padding: {top: -1}\n"},
		{"bad border style", "name: x\nappearances:\n  a:\n    base:\n      decorator: {style: wavy}\n"},
		{"unknown palette ref", "name: x\nappearances:\n  a:\n    base:\n      color: $nope\n"},
		{"unknown include", "name: x\nappearances:\n  a:\n    include: b\n"},
		{"include cycle", "name: x\nappearances:\n  a:\n    include: b\n  b:\n    include: a\n"},
		{"not yaml", "name: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestParseValidationErrorType(t *testing.T) {
	_, err := Parse([]byte("name: x\nappearances:\n  a:\n    include: a\n"))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.ErrorIs(t, err, ErrIncludeCycle)
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTheme), 0o644))

	def, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Paper", def.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestBuiltinThemesValidate(t *testing.T) {
	for _, name := range Names() {
		def := Builtin(name)
		require.Equal(t, name, def.Name)
		require.NoError(t, def.Validate(), name)

		repo := NewStaticRepository(def)
		for _, key := range []string{AppearanceTable, AppearanceRow, AppearanceCell, AppearanceHeaderCell, AppearanceFocusIndicator} {
			_, err := repo.Lookup(key, []string{"focused", "selected", "odd"})
			require.NoError(t, err, "%s/%s", name, key)
		}
	}
}

func TestBuiltinCycle(t *testing.T) {
	require.Equal(t, "Kanagawa", Next("Nightfox"))
	require.Equal(t, "Slate", Next("Kanagawa"))
	require.Equal(t, "Nightfox", Next("Slate"))
	require.Equal(t, "Nightfox", Next("unknown"))
	require.Equal(t, "Nightfox", Builtin("unknown").Name)
}

func TestDecoratorValidate(t *testing.T) {
	require.NoError(t, (*Decorator)(nil).Validate())

	d := &Decorator{Width: Insets{Top: -1}}
	_, err := d.Insets()
	require.ErrorIs(t, err, ErrMalformedDecorator)

	d = &Decorator{Style: "wavy"}
	require.ErrorIs(t, d.Validate(), ErrMalformedDecorator)

	d = &Decorator{Width: Uniform(2), Style: "solid"}
	insets, err := d.Insets()
	require.NoError(t, err)
	require.Equal(t, 4, insets.Horizontal())
	require.Equal(t, 4, insets.Vertical())
	require.Equal(t, "2px 2px 2px 2px", insets.CSS())
}
