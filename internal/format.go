package internal

import (
	"fmt"
	"strings"
)

// SlotAnnotation returns a parenthetical annotation like " (1 invalid, 2 empty)"
// for non-zero counts, or an empty string if both are zero.
func SlotAnnotation(invalid, empty int) string {
	var parts []string
	if invalid > 0 {
		parts = append(parts, fmt.Sprintf("%d invalid", invalid))
	}
	if empty > 0 {
		parts = append(parts, fmt.Sprintf("%d empty", empty))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
