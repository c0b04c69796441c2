package columns

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/five82/lattice/internal/rows"
)

var (
	// ErrUnknownColumn is returned for handles that are not registered.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrInvalidDescriptor wraps descriptor validation failures.
	ErrInvalidDescriptor = errors.New("invalid column descriptor")
	// ErrNotSortable is returned by SortBy for columns that cannot be sorted.
	ErrNotSortable = errors.New("column is not sortable")
)

// DefaultWidth is used when a column registers without a width.
const DefaultWidth = 100

// Kind selects the cell renderer for a column.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindBoolean
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	default:
		return "text"
	}
}

// ParseKind is the inverse of Kind.String. Unknown names map to KindText.
func ParseKind(s string) Kind {
	switch s {
	case "number":
		return KindNumber
	case "boolean", "bool":
		return KindBoolean
	case "date":
		return KindDate
	default:
		return KindText
	}
}

// SortOrder is a column's sort indicator.
type SortOrder int

const (
	SortNone SortOrder = iota
	SortAscending
	SortDescending
)

func (o SortOrder) String() string {
	switch o {
	case SortAscending:
		return "ascending"
	case SortDescending:
		return "descending"
	default:
		return "none"
	}
}

// ParseSortOrder is the inverse of SortOrder.String.
func ParseSortOrder(s string) SortOrder {
	switch s {
	case "ascending", "asc":
		return SortAscending
	case "descending", "desc":
		return SortDescending
	default:
		return SortNone
	}
}

// Direction converts the order to the row transport's direction.
func (o SortOrder) Direction() rows.SortDirection {
	switch o {
	case SortAscending:
		return rows.SortAscending
	case SortDescending:
		return rows.SortDescending
	default:
		return rows.SortNone
	}
}

// Descriptor is the configuration of one column. Index and Position are
// assigned by the Registry; MaxWidth 0 means unbounded.
type Descriptor struct {
	Index     int
	Name      string `validate:"max=256"`
	Kind      Kind   `validate:"gte=0,lte=3"`
	Width     int    `validate:"gte=0"`
	MinWidth  int    `validate:"gte=0"`
	MaxWidth  int    `validate:"omitempty,gtefield=MinWidth"`
	Visible   bool
	Sortable  bool
	Editable  bool
	SortOrder SortOrder `validate:"gte=0,lte=2"`
	Style     rows.StyleMap
	Data      map[string]string
	Position  int
}

// Clone returns a copy that shares no maps with d.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.Style = d.Style.Clone()
	if d.Data != nil {
		out.Data = maps.Clone(d.Data)
	}
	return out
}

func (d *Descriptor) clampWidth() {
	if d.Width < d.MinWidth {
		d.Width = d.MinWidth
	}
	if d.MaxWidth > 0 && d.Width > d.MaxWidth {
		d.Width = d.MaxWidth
	}
}

// Handle identifies a registered column.
type Handle struct {
	index int
}

// Index returns the immutable column index.
func (h Handle) Index() int { return h.index }

// HandleFor returns the handle of the column registered with index.
func HandleFor(index int) Handle { return Handle{index: index} }

// Patch is a partial descriptor update; nil fields are left unchanged.
type Patch struct {
	Name      *string
	Kind      *Kind
	Width     *int
	MinWidth  *int
	MaxWidth  *int
	Visible   *bool
	Sortable  *bool
	Editable  *bool
	SortOrder *SortOrder
	Style     *rows.StyleMap
	Data      *map[string]string
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

func validate(d *Descriptor) error {
	if err := validatorInstance().Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q constraint", ErrInvalidDescriptor, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return nil
}
