package paths

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Compose renders m as a query string with dotted keys, e.g.
// "a.b=1&a.c=x&list.0=y". Keys follow mapping order.
func Compose(m *Map) string {
	var parts []string
	composeInto(&parts, "", m)
	return strings.Join(parts, "&")
}

func composeInto(parts *[]string, prefix string, v interface{}) {
	switch node := v.(type) {
	case *Map:
		for k, e := range node.All() {
			composeInto(parts, join(prefix, k), e)
		}
	case []interface{}:
		for i, e := range node {
			composeInto(parts, join(prefix, strconv.Itoa(i)), e)
		}
	default:
		*parts = append(*parts, url.QueryEscape(prefix)+"="+url.QueryEscape(scalar(node)))
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + Separator + key
}

func scalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	}
	return fmt.Sprint(v)
}

// Parse reads the Compose grammar back into a mapping. Leaves are strings.
func Parse(s string) (*Map, error) {
	out := NewMap()
	s = strings.TrimPrefix(strings.TrimSpace(s), "?")
	if s == "" {
		return out, nil
	}

	for _, pair := range strings.Split(s, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("could not parse key %q: %w", rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("could not parse value of %q: %w", key, err)
		}
		SetPath(out, key, value)
	}
	return out, nil
}
