package theme

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// StaticRepository serves appearances from an in-memory Definition.
type StaticRepository struct {
	def *Definition
}

var _ Repository = (*StaticRepository)(nil)

// NewStaticRepository wraps def. The definition must not be modified afterwards.
func NewStaticRepository(def *Definition) *StaticRepository {
	return &StaticRepository{def: def}
}

// Name returns the theme name.
func (r *StaticRepository) Name() string {
	if r == nil || r.def == nil {
		return ""
	}
	return r.def.Name
}

// Definition returns the wrapped definition.
func (r *StaticRepository) Definition() *Definition {
	return r.def
}

// Lookup merges the include chain of appearanceKey, then applies the patches of
// every active state in lexical order.
func (r *StaticRepository) Lookup(appearanceKey string, states []string) (Appearance, error) {
	if r == nil || r.def == nil {
		return Appearance{}, fmt.Errorf("%w: %q (no theme loaded)", ErrUnknownAppearance, appearanceKey)
	}
	chain, err := r.def.chain(appearanceKey)
	if err != nil {
		return Appearance{}, err
	}

	active := append([]string(nil), states...)
	sort.Strings(active)

	var out Appearance
	for _, app := range chain {
		r.apply(&out, app.Base)
	}
	for _, state := range active {
		for _, app := range chain {
			if patch, ok := app.States[state]; ok {
				r.apply(&out, patch)
			}
		}
	}
	return out, nil
}

func (r *StaticRepository) apply(out *Appearance, s StyleDef) {
	if s.Font != nil {
		if s.Font.Family != "" {
			out.Font.Family = s.Font.Family
		}
		if s.Font.Size > 0 {
			out.Font.Size = s.Font.Size
		}
		if s.Font.Bold != nil {
			out.Font.Bold = *s.Font.Bold
		}
		if s.Font.Italic != nil {
			out.Font.Italic = *s.Font.Italic
		}
	}
	if s.Color != "" {
		out.Color = r.color(s.Color)
	}
	if s.Background != "" {
		out.Background = r.color(s.Background)
	}
	if s.Padding != nil {
		out.Padding = *s.Padding
	}
	if s.Margin != nil {
		out.Margin = *s.Margin
	}
	if d := s.Decorator; d != nil {
		var dec Decorator
		if out.Decorator != nil {
			dec = *out.Decorator
		}
		if d.Width != nil {
			dec.Width = *d.Width
		}
		if d.Color != "" {
			dec.Color = r.color(d.Color)
		}
		if d.Style != "" {
			dec.Style = d.Style
		}
		if d.Background != "" {
			dec.Background = r.color(d.Background)
		}
		if d.Radius != nil {
			dec.Radius = *d.Radius
		}
		out.Decorator = &dec
	}
	if len(s.CSS) > 0 {
		if out.CSS == nil {
			out.CSS = make(map[string]string, len(s.CSS))
		}
		maps.Copy(out.CSS, s.CSS)
	}
}

func (r *StaticRepository) color(v string) string {
	if !strings.HasPrefix(v, "$") {
		return v
	}
	if c, ok := r.def.Palette[strings.TrimPrefix(v, "$")]; ok {
		return c
	}
	return ""
}
