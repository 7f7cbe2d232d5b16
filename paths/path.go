package paths

import (
	"strconv"
	"strings"
)

// Separator splits a path into its segments.
const Separator = "."

func split(path string) []string {
	return strings.Split(path, Separator)
}

// GetPath walks m along the dotted path and returns def when a segment is
// missing. Sequences can be indexed with numeric segments.
func GetPath(m *Map, path string, def interface{}) interface{} {
	if v, ok := Lookup(m, path); ok {
		return v
	}
	return def
}

// Lookup is GetPath reporting whether the path exists instead of taking a
// default.
func Lookup(m *Map, path string) (interface{}, bool) {
	var current interface{} = m
	for _, segment := range split(path) {
		switch node := current.(type) {
		case *Map:
			v, ok := node.Get(segment)
			if !ok {
				return nil, false
			}
			current = v
		case []interface{}:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	return current, true
}

// SetPath assigns value at the dotted path, creating intermediate mappings.
// Intermediate values that are not mappings are replaced.
func SetPath(m *Map, path string, value interface{}) {
	segments := split(path)
	node := m
	for _, segment := range segments[:len(segments)-1] {
		next, ok := node.values[segment].(*Map)
		if !ok {
			next = NewMap()
			node.Set(segment, next)
		}
		node = next
	}
	node.Set(segments[len(segments)-1], value)
}

// Clear removes the value at the dotted path. Missing paths are ignored.
func Clear(m *Map, path string) {
	segments := split(path)
	node := m
	for _, segment := range segments[:len(segments)-1] {
		next, ok := node.values[segment].(*Map)
		if !ok {
			return
		}
		node = next
	}
	node.Delete(segments[len(segments)-1])
}

// Extend deep-merges overlay onto a copy of base. Nested mappings merge,
// everything else (sequences included) is overwritten.
func Extend(base, overlay *Map) *Map {
	out := base.Clone()
	for k, v := range overlay.All() {
		if next, ok := v.(*Map); ok {
			if current, ok := out.values[k].(*Map); ok {
				out.Set(k, Extend(current, next))
				continue
			}
		}
		out.Set(k, CloneValue(v))
	}
	return out
}
