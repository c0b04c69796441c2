package theme

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAppearance is returned by Lookup for keys the theme does not define.
	ErrUnknownAppearance = errors.New("unknown appearance")
	// ErrMalformedDecorator is returned when a decorator cannot produce insets.
	ErrMalformedDecorator = errors.New("malformed decorator")
	// ErrIncludeCycle is returned when appearance includes form a loop.
	ErrIncludeCycle = errors.New("appearance include cycle")
)

// Insets is a four-sided box measurement in pixels.
type Insets struct {
	Top    int `yaml:"top" validate:"gte=0"`
	Right  int `yaml:"right" validate:"gte=0"`
	Bottom int `yaml:"bottom" validate:"gte=0"`
	Left   int `yaml:"left" validate:"gte=0"`
}

// Uniform returns insets with the same value on every side.
func Uniform(v int) Insets {
	return Insets{Top: v, Right: v, Bottom: v, Left: v}
}

// Horizontal returns Left + Right.
func (i Insets) Horizontal() int { return i.Left + i.Right }

// Vertical returns Top + Bottom.
func (i Insets) Vertical() int { return i.Top + i.Bottom }

// IsZero reports whether every side is zero.
func (i Insets) IsZero() bool { return i == Insets{} }

// CSS renders the insets as a CSS box shorthand.
func (i Insets) CSS() string {
	return fmt.Sprintf("%dpx %dpx %dpx %dpx", i.Top, i.Right, i.Bottom, i.Left)
}

// Font describes the text face of an appearance.
type Font struct {
	Family string
	Size   int
	Bold   bool
	Italic bool
}

// Decorator describes the border box and background painted around an element.
type Decorator struct {
	Width      Insets
	Color      string
	Style      string
	Background string
	Radius     int
}

var decoratorStyles = map[string]bool{
	"": true, "none": true, "solid": true, "dashed": true, "dotted": true, "double": true,
}

// Validate reports whether the decorator can be turned into insets and CSS.
func (d *Decorator) Validate() error {
	if d == nil {
		return nil
	}
	w := d.Width
	if w.Top < 0 || w.Right < 0 || w.Bottom < 0 || w.Left < 0 {
		return fmt.Errorf("%w: negative border width %+v", ErrMalformedDecorator, w)
	}
	if d.Radius < 0 {
		return fmt.Errorf("%w: negative radius %d", ErrMalformedDecorator, d.Radius)
	}
	if !decoratorStyles[d.Style] {
		return fmt.Errorf("%w: unknown border style %q", ErrMalformedDecorator, d.Style)
	}
	return nil
}

// Insets returns the border box of the decorator. A "none" style draws no
// border and therefore has zero insets.
func (d *Decorator) Insets() (Insets, error) {
	if d == nil {
		return Insets{}, nil
	}
	if err := d.Validate(); err != nil {
		return Insets{}, err
	}
	if d.Style == "none" {
		return Insets{}, nil
	}
	return d.Width, nil
}

// Appearance is a fully resolved style description for one appearance key and
// state set.
type Appearance struct {
	Font       Font
	Color      string
	Background string
	Padding    Insets
	Margin     Insets
	Decorator  *Decorator
	CSS        map[string]string
}

// Repository resolves appearance keys and state sets to style descriptions.
type Repository interface {
	Lookup(appearanceKey string, states []string) (Appearance, error)
}
