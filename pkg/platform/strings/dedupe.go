// Package strings normalizes free-text values coming from form inputs.
package strings

import (
	"strings"
)

// NormalizeSelection cleans a multi-select answer: each entry is trimmed and
// runs of inner whitespace collapse to one space, blanks are dropped, and
// entries that differ only by case keep their first spelling. Order is preserved.
// A nil or empty input returns an empty, non-nil slice.
//
//	NormalizeSelection([]string{" Food  stall", "food stall", "", "Music"})
//	// []string{"Food stall", "Music"}
func NormalizeSelection(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		clean := strings.Join(strings.Fields(v), " ")
		if clean == "" {
			continue
		}
		key := strings.ToLower(clean)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, clean)
	}
	return out
}
