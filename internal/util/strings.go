// Package util holds small string helpers for terminal rendering.
package util

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// TruncateANSI cuts s to maxWidth visual columns, ending in "..." when
// anything was removed. Escape sequences and wide runes are measured by
// their rendered width.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "...")
}

// PadANSI right-pads s with spaces to width visual columns, truncating it
// first when it is wider.
func PadANSI(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) > width {
		s = TruncateANSI(s, width)
	}
	if w := lipgloss.Width(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

// CleanLine prepares a line of device output for display: escape sequences
// are removed and remaining control characters other than tab are dropped.
func CleanLine(s string) string {
	s = ansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
