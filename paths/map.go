package paths

import (
	"bytes"
	"encoding/json"
	"iter"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Map is an ordered key/value store. Keys keep the position of their first
// insertion; overwriting a key does not move it.
type Map struct {
	keys   []string
	values map[string]interface{}
}

func NewMap() *Map {
	return &Map{
		keys:   make([]string, 0),
		values: make(map[string]interface{}),
	}
}

// MapOf converts a standard map into a Map, recursively.
func MapOf(m map[string]interface{}) *Map {
	return FromStd(m).(*Map)
}

// Key normalizes integer keys to their decimal form.
func Key(k interface{}) string {
	switch v := k.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}

	rv := reflect.ValueOf(k)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.String:
		return rv.String()
	}

	return ""
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return []string{}
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Map) Get(key string) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

func (m *Map) Set(key string, value interface{}) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	if _, ok := m.values[key]; !ok {
		return false
	}

	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// All yields the top-level pairs in insertion order. Every range over the
// returned sequence starts from the first key again.
func (m *Map) All() iter.Seq2[string, interface{}] {
	return func(yield func(string, interface{}) bool) {
		for _, k := range m.Keys() {
			v, ok := m.Get(k)
			if !ok {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

// Clone returns a deep copy of m.
func (m *Map) Clone() *Map {
	out := NewMap()
	for k, v := range m.All() {
		out.Set(k, CloneValue(v))
	}
	return out
}

// CloneValue deep-copies mappings and sequences inside v. Scalars are
// returned as they are.
func CloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case *Map:
		return t.Clone()
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	}
	return v
}

// ToStd converts m into nested standard maps.
func (m *Map) ToStd() map[string]interface{} {
	out := make(map[string]interface{}, m.Len())
	for k, v := range m.All() {
		out[k] = toStdValue(v)
	}
	return out
}

func toStdValue(v interface{}) interface{} {
	switch t := v.(type) {
	case *Map:
		return t.ToStd()
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = toStdValue(e)
		}
		return out
	}
	return v
}

// MarshalJSON renders m as a JSON object in key order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		v, _ := m.Get(k)
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// IsArray reports whether v is a mapping.
func IsArray(v interface{}) bool {
	switch v.(type) {
	case *Map, map[string]interface{}:
		return !reflect.ValueOf(v).IsNil()
	}
	return false
}

// FromStd converts standard maps and slices inside v into Map and []interface{}
// trees. Map keys of standard maps are inserted in sorted order. Integer
// kinds become int64 and float32 becomes float64. Unsigned values above
// math.MaxInt64 become float64 and lose precision.
func FromStd(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case *Map:
		out := NewMap()
		for k, e := range t.All() {
			out.Set(k, FromStd(e))
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = FromStd(e)
		}
		return out
	case []byte:
		return t
	case string, bool, int64, float64:
		return t
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return NewMap()
		}
		entries := make(map[string]interface{}, rv.Len())
		keys := make([]string, 0, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			k := Key(it.Key().Interface())
			entries[k] = it.Value().Interface()
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := NewMap()
		for _, k := range keys {
			out.Set(k, FromStd(entries[k]))
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = FromStd(rv.Index(i).Interface())
		}
		return out
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			// same lossy value the codecs produce for it
			return float64(u)
		}
		return int64(u)
	case reflect.Float32:
		return rv.Float()
	}

	return v
}

// Equal compares two trees. Map comparison ignores key order.
func Equal(a, b interface{}) bool {
	switch x := a.(type) {
	case *Map:
		y, ok := b.(*Map)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for k, xv := range x.All() {
			yv, ok := y.Get(k)
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	case []interface{}:
		y, ok := b.([]interface{})
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
