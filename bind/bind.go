package bind

import (
	"fmt"
	"reflect"

	"github.com/pbudner/argosbind/encoding"
	"go.uber.org/zap"
)

// Reader returns the raw value currently held by the external slot.
type Reader func() (string, error)

// Writer persists a raw value into the external slot.
type Writer func(raw string) error

// Option configures a binding.
type Option func(*Bind)

// WithLogger replaces the default logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(b *Bind) {
		if log != nil {
			b.log = log
		}
	}
}

// WithDefault sets the value seeded into empty storage. Without it, a plain
// Bind seeds nil.
func WithDefault(seed func() interface{}) Option {
	return func(b *Bind) {
		b.seed = seed
	}
}

// Bind keeps an in-memory value in sync with an external slot. The value is
// decoded once on creation and every mutation is written through immediately.
// A Bind is not safe for concurrent use.
type Bind struct {
	reader Reader
	writer Writer
	codec  encoding.Codec
	data   interface{}
	seed   func() interface{}
	push   func(interface{}) error
	log    *zap.SugaredLogger
}

// New decodes the value behind reader. Empty storage is seeded with the
// default value, which is written back right away.
func New(reader Reader, writer Writer, codec encoding.Codec, opts ...Option) (*Bind, error) {
	b, err := newBind(reader, writer, codec, opts...)
	if err != nil {
		return nil, err
	}
	if err := b.init(); err != nil {
		return nil, err
	}
	return b, nil
}

func newBind(reader Reader, writer Writer, codec encoding.Codec, opts ...Option) (*Bind, error) {
	if reader == nil {
		return nil, fmt.Errorf("%w: reader is not set", ErrInvalidConfiguration)
	}
	if writer == nil {
		return nil, fmt.Errorf("%w: writer is not set", ErrInvalidConfiguration)
	}
	if codec == nil {
		return nil, fmt.Errorf("%w: codec is not set", ErrInvalidConfiguration)
	}

	b := &Bind{
		reader: reader,
		writer: writer,
		codec:  codec,
		seed:   func() interface{} { return nil },
		log:    zap.L().Sugar().With("service", "bind"),
	}
	b.push = b.SetValue
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func (b *Bind) init() error {
	present, err := b.decode()
	if err != nil {
		return err
	}
	if present {
		return nil
	}

	b.log.Debugw("seeding empty storage with default value", "codec", b.codec.Name())
	b.data = b.seed()
	return b.Encode()
}

// Codec returns the codec used for the wire representation.
func (b *Bind) Codec() encoding.Codec {
	return b.codec
}

// Act does nothing for nil values, including nil maps, slices and pointers,
// and pushes anything else.
func (b *Bind) Act(value interface{}) error {
	if isNil(value) {
		return nil
	}
	return b.Push(value)
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Ptr, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// Push stores value. Specializations may transform it first.
func (b *Bind) Push(value interface{}) error {
	return b.push(value)
}

// Value returns the in-memory value. It is shared with the binding; change
// it through SetValue or Push so the change is written through.
func (b *Bind) Value() interface{} {
	return b.data
}

// SetValue replaces the in-memory value and writes it through.
func (b *Bind) SetValue(value interface{}) error {
	b.data = value
	return b.Encode()
}

// Encode serializes the in-memory value and hands it to the writer.
func (b *Bind) Encode() error {
	raw, err := b.codec.Encode(b.data)
	if err != nil {
		return err
	}
	if err := b.writer(raw); err != nil {
		return fmt.Errorf("could not write bound value: %w", err)
	}
	b.log.Debugw("wrote bound value", "codec", b.codec.Name(), "bytes", len(raw))
	return nil
}

// Decode replaces the in-memory value with the one read from storage. Empty
// storage results in a nil value.
func (b *Bind) Decode() error {
	_, err := b.decode()
	return err
}

func (b *Bind) decode() (bool, error) {
	raw, err := b.reader()
	if err != nil {
		return false, fmt.Errorf("could not read bound value: %w", err)
	}

	v, present, err := b.codec.Decode(raw)
	if err != nil {
		return false, err
	}
	b.data = v
	b.log.Debugw("read bound value", "codec", b.codec.Name(), "present", present)
	return present, nil
}

// String returns the wire representation of the current value, or an empty
// string if it cannot be encoded.
func (b *Bind) String() string {
	raw, err := b.codec.Encode(b.data)
	if err != nil {
		return ""
	}
	return raw
}
