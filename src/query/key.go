// Package query caches API reads under composite keys and invalidates them by key prefix.
package query

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key addresses a cached result. Elements are compared by their JSON encoding,
// so a nil element and an untyped nil pointer are the same key part.
type Key []any

// String returns the canonical encoding of the key.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, part := range k {
		parts[i] = encodePart(part)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// HasPrefix reports whether prefix matches the leading elements of k.
// An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if encodePart(k[i]) != encodePart(prefix[i]) {
			return false
		}
	}
	return true
}

// Append returns a new key with parts added to the end of k.
func (k Key) Append(parts ...any) Key {
	out := make(Key, 0, len(k)+len(parts))
	out = append(out, k...)
	return append(out, parts...)
}

func encodePart(part any) string {
	data, err := json.Marshal(part)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprintf("%v", part))
	}
	return string(data)
}
