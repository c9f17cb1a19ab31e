// Package jsonutil provides safe extraction helpers for values decoded into
// map[string]any by encoding/json. Missing keys and wrong types yield the
// zero value.
package jsonutil

// GetString safely extracts a string field from a map.
func GetString(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// GetMap safely extracts a nested object from a map.
func GetMap(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

// GetSlice safely extracts an array field from a map.
func GetSlice(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}

// Objects returns the elements of s that are JSON objects, in order.
func Objects(s []any) []map[string]any {
	var out []map[string]any
	for _, v := range s {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
