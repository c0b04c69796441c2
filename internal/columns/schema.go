package columns

import "context"

// Info is one column as reported by a row source.
type Info struct {
	Name string
	Kind Kind
}

// SchemaSource is implemented by row transports that can describe the
// columns of a store. Column i of the schema is cell index i of every row.
type SchemaSource interface {
	Schema(ctx context.Context, storeID string) ([]Info, error)
}

// Suggested widths, in character cells, per column kind.
var kindWidths = map[Kind]int{
	KindText:    18,
	KindNumber:  10,
	KindBoolean: 7,
	KindDate:    12,
}

// FromSchema builds visible, sortable descriptors for infos. Register them in
// order so that descriptor indices match cell indices.
func FromSchema(infos []Info) []Descriptor {
	out := make([]Descriptor, 0, len(infos))
	for _, info := range infos {
		width := max(kindWidths[info.Kind], len(info.Name)+2)
		d := Descriptor{
			Name:     info.Name,
			Kind:     info.Kind,
			Width:    width,
			MinWidth: 3,
			Visible:  true,
			Sortable: true,
		}
		if info.Kind == KindNumber {
			d.Style = map[string]string{"text-align": "right"}
		}
		out = append(out, d)
	}
	return out
}

// RegisterAll registers ds in order and returns their handles.
func (r *Registry) RegisterAll(ds []Descriptor) ([]Handle, error) {
	handles := make([]Handle, 0, len(ds))
	for _, d := range ds {
		h, err := r.Register(d)
		if err != nil {
			return handles, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}
