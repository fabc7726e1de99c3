// Package attrs reads slog-style key/value attribute lists.
package attrs

// ExtractString extracts a string value from a key-value attribute slice.
// The slice should be formatted as [key1, value1, key2, value2, ...].
// Values implementing fmt.Stringer are rendered. Returns empty string if the key
// is not found.
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		switch v := attrs[i+1].(type) {
		case string:
			return v
		case interface{ String() string }:
			return v.String()
		}
	}
	return ""
}

// ToMap converts the pairs into a map, leaving out the skipped keys and any
// pair whose key is not a string. Returns nil when nothing remains.
func ToMap(attrs []any, skip ...string) map[string]any {
	var out map[string]any
outer:
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		for _, s := range skip {
			if k == s {
				continue outer
			}
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = attrs[i+1]
	}
	return out
}
