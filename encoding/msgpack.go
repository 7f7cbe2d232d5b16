package encoding

import (
	"bytes"
	"fmt"

	"github.com/pbudner/argosbind/paths"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// MsgPackCodec stores values as MessagePack. Mappings are written as msgpack
// maps in key order, so decoding restores the original order.
type MsgPackCodec struct{}

func (MsgPackCodec) Name() string { return "msgpack" }

// IsEncoded reports whether v is a string holding exactly one msgpack value.
// Strings starting with a fixnum byte (which includes all printable ASCII)
// are treated as plain text.
func (MsgPackCodec) IsEncoded(v interface{}) bool {
	s, ok := v.(string)
	if !ok || s == "" || isFixNum(s[0]) {
		return false
	}

	_, err := decodeMsgPack(s)
	return err == nil
}

func (c MsgPackCodec) Encode(v interface{}) (string, error) {
	if c.IsEncoded(v) {
		return v.(string), nil
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encodeMsgPackValue(enc, v); err != nil {
		return "", fmt.Errorf("could not encode value as msgpack: %w", err)
	}
	return buf.String(), nil
}

func (c MsgPackCodec) Decode(raw string) (interface{}, bool, error) {
	if raw == "" || raw == string([]byte{msgpcode.Nil}) {
		return nil, false, nil
	}

	if !c.IsEncoded(raw) {
		return raw, true, nil
	}

	v, err := decodeMsgPack(raw)
	if err != nil {
		return raw, true, nil
	}
	return v, true, nil
}

func isFixNum(b byte) bool {
	return msgpcode.IsFixedNum(b)
}

func encodeMsgPackValue(enc *msgpack.Encoder, v interface{}) error {
	switch t := v.(type) {
	case *paths.Map:
		if err := enc.EncodeMapLen(t.Len()); err != nil {
			return err
		}
		for k, e := range t.All() {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := encodeMsgPackValue(enc, e); err != nil {
				return err
			}
		}
		return nil
	case []interface{}:
		if err := enc.EncodeArrayLen(len(t)); err != nil {
			return err
		}
		for _, e := range t {
			if err := encodeMsgPackValue(enc, e); err != nil {
				return err
			}
		}
		return nil
	case float32:
		return enc.EncodeFloat64(float64(t))
	}
	return enc.Encode(v)
}

// decodeMsgPack decodes raw and fails unless all bytes are consumed.
func decodeMsgPack(raw string) (interface{}, error) {
	r := bytes.NewReader([]byte(raw))
	dec := msgpack.NewDecoder(r)
	v, err := decodeMsgPackValue(dec)
	if err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, fmt.Errorf("%d trailing bytes after msgpack value", r.Len())
	}
	return v, nil
}

func decodeMsgPackValue(dec *msgpack.Decoder) (interface{}, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}

	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return nil, err
		}
		m := paths.NewMap()
		for i := 0; i < n; i++ {
			key, err := dec.DecodeInterfaceLoose()
			if err != nil {
				return nil, err
			}
			value, err := decodeMsgPackValue(dec)
			if err != nil {
				return nil, err
			}
			m.Set(paths.Key(key), value)
		}
		return m, nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, 0, n)
		for i := 0; i < n; i++ {
			value, err := decodeMsgPackValue(dec)
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}
		return out, nil
	}

	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return nil, err
	}
	if f, ok := v.(float32); ok {
		return float64(f), nil
	}
	return v, nil
}
