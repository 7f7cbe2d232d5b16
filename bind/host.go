package bind

import (
	"fmt"
	"reflect"

	"github.com/pbudner/argosbind/encoding"
)

// Host exposes named properties holding raw (encoded) values, e.g. columns
// of a model or fields of a stored record.
type Host interface {
	Property(name string) (string, error)
	SetProperty(name string, raw string) error
}

// Wrap binds a mapping to the named property of host and pushes initial
// unless it is nil.
func Wrap(host Host, prop string, codec encoding.Codec, initial interface{}, opts ...Option) (*Data, error) {
	if host == nil {
		return nil, fmt.Errorf("%w: host is not set", ErrInvalidConfiguration)
	}

	reader := func() (string, error) {
		return host.Property(prop)
	}
	writer := func(raw string) error {
		return host.SetProperty(prop, raw)
	}

	d, err := NewData(reader, writer, codec, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.Act(initial); err != nil {
		return nil, err
	}
	return d, nil
}

type structHost struct {
	v reflect.Value
}

// StructHost exposes the string and []byte fields of a struct as properties.
// Fields are looked up by their Go name or by a `bind:"name"` tag.
func StructHost(model interface{}) (Host, error) {
	v := reflect.ValueOf(model)
	if !v.IsValid() || v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: model must be a non-nil pointer to a struct", ErrInvalidConfiguration)
	}
	return structHost{v: v.Elem()}, nil
}

func (h structHost) field(name string) (reflect.Value, error) {
	t := h.v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		if f.Name != name && f.Tag.Get("bind") != name {
			continue
		}

		fv := h.v.Field(i)
		switch {
		case fv.Kind() == reflect.String:
			return fv, nil
		case fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.Uint8:
			return fv, nil
		}
		return reflect.Value{}, fmt.Errorf("%w: field %s of %s is %s, not a string", ErrInvalidConfiguration, f.Name, t, fv.Type())
	}
	return reflect.Value{}, fmt.Errorf("%w: %s has no field %q", ErrInvalidConfiguration, t, name)
}

func (h structHost) Property(name string) (string, error) {
	fv, err := h.field(name)
	if err != nil {
		return "", err
	}
	if fv.Kind() == reflect.String {
		return fv.String(), nil
	}
	return string(fv.Bytes()), nil
}

func (h structHost) SetProperty(name string, raw string) error {
	fv, err := h.field(name)
	if err != nil {
		return err
	}
	if fv.Kind() == reflect.String {
		fv.SetString(raw)
		return nil
	}
	fv.SetBytes([]byte(raw))
	return nil
}
