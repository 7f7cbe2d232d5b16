// Package paths provides the ordered mapping used as in-memory representation
// of bound data, together with dotted-path access ("a.b.c"), deep merging and
// a query-string grammar to render mappings as flat strings.
package paths
