// Package display renders short texts on the monitor screen.
package display

import (
	"image/color"
	"strings"
)

// Display shows one frame at a time. Callers own the display exclusively.
type Display interface {
	// Text shows a single string. Numeric strings are rendered large.
	Text(s string, fg, bg color.Color) error
	// Lines shows centred lines stacked vertically.
	Lines(lines []string, fg, bg color.Color) error
	Logo() error
	// SetOnline toggles the network indicator drawn with every frame.
	SetOnline(online bool)
}

// IsNumeric reports whether s only holds decimal digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	return strings.Trim(s, "0123456789") == ""
}

// Replace returns a copy of lines with every old substring replaced.
func Replace(lines []string, old, new string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.ReplaceAll(l, old, new)
	}
	return out
}
