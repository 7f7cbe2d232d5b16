package encoding

import (
	"errors"
	"fmt"
)

// Codec converts bound values to and from their wire representation.
// Decoded mappings are *paths.Map values in wire order, sequences are []interface{},
// integral numbers int64 and all other numbers float64.
type Codec interface {
	// Name identifies the codec, e.g. in configuration files.
	Name() string
	// Encode serializes v. Values that are already encoded strings are
	// returned unchanged.
	Encode(v interface{}) (string, error)
	// Decode deserializes raw. present is false for empty storage. Input
	// that is not recognized as encoded is returned unchanged.
	Decode(raw string) (v interface{}, present bool, err error)
	// IsEncoded reports whether v is a string already in wire format.
	IsEncoded(v interface{}) bool
}

var (
	// JSON stores values as JSON text.
	JSON = JSONCodec{}
	// MsgPack stores values in MessagePack, the native binary format.
	MsgPack = MsgPackCodec{}

	// ErrUnknownCodec is returned by Lookup for unregistered names.
	ErrUnknownCodec = errors.New("unknown codec")
)

// Lookup resolves a codec by its name.
func Lookup(name string) (Codec, error) {
	switch name {
	case JSON.Name(), "":
		return JSON, nil
	case MsgPack.Name():
		return MsgPack, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}
