// Package prefs handles lattice user preferences persistence.
// Preferences are stored in ~/.config/lattice/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/lattice/internal/columns"
)

// Prefs holds user preferences for lattice.
type Prefs struct {
	Theme  string                 `toml:"theme"`
	Stores map[string]StoreLayout `toml:"stores,omitempty"`
}

// StoreLayout is the remembered column layout of one store.
type StoreLayout struct {
	Columns []ColumnLayout `toml:"columns"`
}

// ColumnLayout is the remembered state of one column, matched by name.
type ColumnLayout struct {
	Name     string `toml:"name"`
	Width    int    `toml:"width"`
	Position int    `toml:"position"`
	Hidden   bool   `toml:"hidden,omitempty"`
	Sort     string `toml:"sort,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/lattice/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Prefs{Theme: defaultTheme}, nil
	}

	prefs := Prefs{Theme: defaultTheme}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Prefs{Theme: defaultTheme}, nil // Graceful degradation
	}

	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = defaultTheme
	}

	return prefs, nil
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

// Layout returns the remembered layout for store.
func (p Prefs) Layout(store string) (StoreLayout, bool) {
	l, ok := p.Stores[store]
	return l, ok
}

// SetLayout records the layout for store.
func (p *Prefs) SetLayout(store string, l StoreLayout) {
	if p.Stores == nil {
		p.Stores = make(map[string]StoreLayout)
	}
	p.Stores[store] = l
}

// Capture snapshots the registry's columns in display order.
func Capture(reg *columns.Registry) StoreLayout {
	var out StoreLayout
	for _, col := range reg.Columns() {
		cl := ColumnLayout{
			Name:     col.Name,
			Width:    col.Width,
			Position: col.Position,
			Hidden:   !col.Visible,
		}
		if col.SortOrder != columns.SortNone {
			cl.Sort = col.SortOrder.String()
		}
		out.Columns = append(out.Columns, cl)
	}
	return out
}

// Apply restores a remembered layout onto the registry. Columns that are no
// longer registered are skipped, and only a remembered sort on a sortable
// column is reapplied.
func Apply(reg *columns.Registry, l StoreLayout) error {
	ordered := slices.Clone(l.Columns)
	slices.SortStableFunc(ordered, func(a, b ColumnLayout) int { return a.Position - b.Position })

	var errs []error
	for _, cl := range ordered {
		h, ok := reg.Find(cl.Name)
		if !ok {
			continue
		}
		visible := !cl.Hidden
		patch := columns.Patch{Visible: &visible}
		if cl.Width > 0 {
			width := cl.Width
			patch.Width = &width
		}
		if err := reg.Update(h, patch); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := reg.Reorder(h, cl.Position); err != nil {
			errs = append(errs, err)
		}
	}
	for _, cl := range ordered {
		order := columns.ParseSortOrder(cl.Sort)
		if order == columns.SortNone {
			continue
		}
		h, ok := reg.Find(cl.Name)
		if !ok {
			continue
		}
		if err := reg.SortBy(h, order == columns.SortAscending); err != nil && !errors.Is(err, columns.ErrNotSortable) {
			errs = append(errs, err)
		}
		break
	}
	return errors.Join(errs...)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
