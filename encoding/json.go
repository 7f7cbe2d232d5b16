package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pbudner/argosbind/paths"
	"github.com/tidwall/gjson"
)

// JSONCodec reads JSON with gjson so that object keys keep their document
// order.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) IsEncoded(v interface{}) bool {
	s, ok := v.(string)
	return ok && gjson.Valid(s)
}

func (c JSONCodec) Encode(v interface{}) (string, error) {
	if c.IsEncoded(v) {
		return v.(string), nil
	}

	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return "", fmt.Errorf("could not encode value as json: %w", err)
	}
	return buf.String(), nil
}

func (JSONCodec) Decode(raw string) (interface{}, bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return nil, false, nil
	}

	// not json, keep it as opaque data
	if !gjson.Valid(raw) {
		return raw, true, nil
	}

	return fromResult(gjson.Parse(raw)), true, nil
}

func writeJSON(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case *paths.Map:
		buf.WriteByte('{')
		i := 0
		for k, e := range t.All() {
			if i > 0 {
				buf.WriteByte(',')
			}
			i++
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []interface{}:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case float32:
		return writeFloat(buf, float64(t))
	case float64:
		return writeFloat(buf, t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

// writeFloat keeps a fraction or exponent on every float so that it decodes
// as float64 again instead of int64.
func writeFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("unsupported float value %v", f)
	}

	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	buf.WriteString(s)
	return nil
}

func fromResult(r gjson.Result) interface{} {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.String:
		return r.Str
	case gjson.Number:
		if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return i
		}
		return r.Num
	}

	if r.IsObject() {
		m := paths.NewMap()
		r.ForEach(func(key, value gjson.Result) bool {
			m.Set(key.String(), fromResult(value))
			return true
		})
		return m
	}

	out := make([]interface{}, 0)
	r.ForEach(func(_, value gjson.Result) bool {
		out = append(out, fromResult(value))
		return true
	})
	return out
}
