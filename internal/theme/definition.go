package theme

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Definition is a theme asset: a palette plus appearance rules.
type Definition struct {
	Name        string                   `yaml:"name" validate:"required"`
	Palette     map[string]string        `yaml:"palette" validate:"dive,keys,palette_key,endkeys,hexcolor"`
	Appearances map[string]AppearanceDef `yaml:"appearances" validate:"dive"`
}

// AppearanceDef is one appearance entry. Include names another appearance
// whose rules apply first. States are patches applied, in lexical state order,
// when the state is active.
type AppearanceDef struct {
	Include string              `yaml:"include,omitempty"`
	Base    StyleDef            `yaml:"base"`
	States  map[string]StyleDef `yaml:"states,omitempty" validate:"dive"`
}

// StyleDef is a partial style. Zero fields leave the underlying value alone.
type StyleDef struct {
	Font       *FontDef          `yaml:"font,omitempty"`
	Color      string            `yaml:"color,omitempty" validate:"omitempty,theme_color"`
	Background string            `yaml:"background,omitempty" validate:"omitempty,theme_color"`
	Padding    *Insets           `yaml:"padding,omitempty"`
	Margin     *Insets           `yaml:"margin,omitempty"`
	Decorator  *DecoratorDef     `yaml:"decorator,omitempty"`
	CSS        map[string]string `yaml:"css,omitempty"`
}

// FontDef is a partial font.
type FontDef struct {
	Family string `yaml:"family,omitempty"`
	Size   int    `yaml:"size,omitempty" validate:"gte=0"`
	Bold   *bool  `yaml:"bold,omitempty"`
	Italic *bool  `yaml:"italic,omitempty"`
}

// DecoratorDef is a partial decorator. A decorator with Style "none" removes
// any inherited border.
type DecoratorDef struct {
	Width      *Insets `yaml:"width,omitempty"`
	Color      string  `yaml:"color,omitempty" validate:"omitempty,theme_color"`
	Style      string  `yaml:"style,omitempty" validate:"omitempty,oneof=none solid dashed dotted double"`
	Background string  `yaml:"background,omitempty" validate:"omitempty,theme_color"`
	Radius     *int    `yaml:"radius,omitempty" validate:"omitempty,gte=0"`
}

// ValidationError describes a theme asset that failed validation.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("theme validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("theme validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	paletteRefPattern = regexp.MustCompile(`^\$[a-z0-9_]+$`)
	paletteKeyPattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	hexColorPattern   = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	colorNamePattern  = regexp.MustCompile(`^[a-z]+$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("theme_color", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return paletteRefPattern.MatchString(s) || hexColorPattern.MatchString(s) || colorNamePattern.MatchString(s)
		})
		_ = v.RegisterValidation("palette_key", func(fl validator.FieldLevel) bool {
			return paletteKeyPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})
	return validateInst
}

// Parse decodes and validates a YAML theme asset.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse theme: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Load reads a YAML theme asset from disk.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Validate checks field constraints, palette references and include chains.
func (d *Definition) Validate() error {
	if err := validatorInstance().Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{
				Field:   fe.Namespace(),
				Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
				Err:     err,
			}
		}
		return &ValidationError{Message: err.Error(), Err: err}
	}

	for _, key := range sortedKeys(d.Appearances) {
		app := d.Appearances[key]
		if app.Include != "" {
			if _, ok := d.Appearances[app.Include]; !ok {
				return &ValidationError{
					Field:   "appearances." + key + ".include",
					Message: fmt.Sprintf("unknown appearance %q", app.Include),
					Err:     ErrUnknownAppearance,
				}
			}
		}
		if _, err := d.chain(key); err != nil {
			return &ValidationError{Field: "appearances." + key, Message: err.Error(), Err: err}
		}
		for _, ref := range app.colorRefs() {
			if _, ok := d.Palette[strings.TrimPrefix(ref, "$")]; !ok {
				return &ValidationError{
					Field:   "appearances." + key,
					Message: fmt.Sprintf("unknown palette color %q", ref),
				}
			}
		}
	}
	return nil
}

// chain returns the include chain for key, root first.
func (d *Definition) chain(key string) ([]AppearanceDef, error) {
	var out []AppearanceDef
	seen := make(map[string]bool)
	for cur := key; cur != ""; {
		if seen[cur] {
			return nil, fmt.Errorf("%w at %q", ErrIncludeCycle, cur)
		}
		seen[cur] = true
		app, ok := d.Appearances[cur]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAppearance, cur)
		}
		out = append(out, app)
		cur = app.Include
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (a AppearanceDef) colorRefs() []string {
	var refs []string
	collect := func(s StyleDef) {
		for _, c := range []string{s.Color, s.Background} {
			if strings.HasPrefix(c, "$") {
				refs = append(refs, c)
			}
		}
		if s.Decorator != nil {
			for _, c := range []string{s.Decorator.Color, s.Decorator.Background} {
				if strings.HasPrefix(c, "$") {
					refs = append(refs, c)
				}
			}
		}
	}
	collect(a.Base)
	for _, s := range a.States {
		collect(s)
	}
	return refs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
