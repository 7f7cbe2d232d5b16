package bind

import (
	"fmt"
	"iter"

	"github.com/pbudner/argosbind/encoding"
	"github.com/pbudner/argosbind/paths"
)

// Data binds a mapping. Keys are addressed by dotted paths ("a.b.c").
//
// Keyed accessors fail with ErrInvalidState when the stored value is not a
// mapping; Value and String keep working in that case.
type Data struct {
	*Bind
}

// NewData binds the mapping behind reader. Empty storage is seeded with an
// empty mapping.
func NewData(reader Reader, writer Writer, codec encoding.Codec, opts ...Option) (*Data, error) {
	b, err := newBind(reader, writer, codec, opts...)
	if err != nil {
		return nil, err
	}

	d := &Data{Bind: b}
	b.seed = func() interface{} { return paths.NewMap() }
	b.push = d.push
	if err := b.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Data) mapping() (*paths.Map, error) {
	m, ok := d.data.(*paths.Map)
	if !ok || m == nil {
		return nil, fmt.Errorf("%w: got %T", ErrInvalidState, d.data)
	}
	return m, nil
}

// push merges mappings and parsed strings into the current mapping. Other
// values replace it.
func (d *Data) push(value interface{}) error {
	if s, ok := value.(string); ok {
		parsed, err := paths.Parse(s)
		if err != nil {
			return err
		}
		value = parsed
	}

	overlay, ok := paths.FromStd(value).(*paths.Map)
	if !ok {
		return d.SetValue(value)
	}

	base, ok := d.data.(*paths.Map)
	if !ok {
		base = paths.NewMap()
	}
	return d.Bind.SetValue(paths.Extend(base, overlay))
}

// SetValue replaces the whole value. Standard maps and slices are converted
// to their ordered form.
func (d *Data) SetValue(value interface{}) error {
	return d.Bind.SetValue(paths.FromStd(value))
}

// Set assigns value at path and writes the mapping through once.
func (d *Data) Set(path string, value interface{}) error {
	m, err := d.mapping()
	if err != nil {
		return err
	}

	paths.SetPath(m, path, paths.FromStd(value))
	return d.Encode()
}

// SetAll assigns every path of values in order and writes the mapping
// through once.
func (d *Data) SetAll(values *paths.Map) error {
	m, err := d.mapping()
	if err != nil {
		return err
	}

	for path, value := range values.All() {
		paths.SetPath(m, path, paths.FromStd(value))
	}
	return d.Encode()
}

// Remove deletes the value at path and writes the mapping through.
func (d *Data) Remove(path string) error {
	m, err := d.mapping()
	if err != nil {
		return err
	}

	paths.Clear(m, path)
	return d.Encode()
}

// Has reports whether key is a top-level key. It does not follow paths.
func (d *Data) Has(key string) (bool, error) {
	m, err := d.mapping()
	if err != nil {
		return false, err
	}
	return m.Has(key), nil
}

// Get returns a copy of the value at path, or def if there is none. Changes
// to the result are not written through; use Set for that.
func (d *Data) Get(path string, def interface{}) (interface{}, error) {
	m, err := d.mapping()
	if err != nil {
		return nil, err
	}
	v, ok := paths.Lookup(m, path)
	if !ok {
		return def, nil
	}
	return paths.CloneValue(v), nil
}

// Compose stores value at path in its composed string form.
func (d *Data) Compose(path string, value *paths.Map) error {
	return d.Set(path, paths.Compose(value))
}

// Parse reads the composed string at path back into a mapping. A missing
// value yields an empty mapping.
func (d *Data) Parse(path string) (*paths.Map, error) {
	v, err := d.Get(path, nil)
	if err != nil {
		return nil, err
	}

	switch t := v.(type) {
	case nil:
		return paths.NewMap(), nil
	case string:
		return paths.Parse(t)
	case *paths.Map:
		return t.Clone(), nil
	}
	return nil, fmt.Errorf("%w: value at %q is %T", ErrInvalidState, path, v)
}

// All returns the top-level pairs in insertion order. The sequence can be
// ranged over repeatedly. Yielded values are shared with the binding and
// must be treated as read-only.
func (d *Data) All() (iter.Seq2[string, interface{}], error) {
	m, err := d.mapping()
	if err != nil {
		return nil, err
	}
	return m.All(), nil
}

// Len returns the number of top-level keys.
func (d *Data) Len() (int, error) {
	m, err := d.mapping()
	if err != nil {
		return 0, err
	}
	return m.Len(), nil
}

// Index returns a copy of the top-level value for key, or nil when it does
// not exist.
func (d *Data) Index(key string) (interface{}, error) {
	m, err := d.mapping()
	if err != nil {
		return nil, err
	}
	v, _ := m.Get(key)
	return paths.CloneValue(v), nil
}

func (d *Data) SetIndex(key string, value interface{}) error {
	return d.Set(key, value)
}

func (d *Data) DeleteIndex(key string) error {
	return d.Remove(key)
}

func (d *Data) Exists(key string) (bool, error) {
	return d.Has(key)
}

// String renders a mapping in the composed query form and falls back to the
// codec representation for anything else.
func (d *Data) String() string {
	if m, err := d.mapping(); err == nil {
		return paths.Compose(m)
	}
	return d.Bind.String()
}
