// Package strings provides string slice helpers shared by middleware and stores.
package strings

import (
	"strings"
)

// DedupeAndTrimLower trims and lowercases each element, dropping empties and
// repeats. Order of first occurrence is preserved.
//
//	DedupeAndTrimLower([]string{"  Principal ", "dean", "principal", ""})
//	// Returns: []string{"principal", "dean"}
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		norm := strings.ToLower(strings.TrimSpace(v))
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		result = append(result, norm)
	}
	return result
}
