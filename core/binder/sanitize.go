package binder

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sanitizeStringValue strips NUL bytes, invalid runes, and non-printable
// control characters. Tabs and line breaks survive because prompt bodies
// legitimately span multiple lines.
func sanitizeStringValue(value string) string {
	// Remove NUL bytes
	value = strings.ReplaceAll(value, "\x00", "")

	var builder strings.Builder
	builder.Grow(len(value))

	for _, r := range value {
		if r == '\t' || r == '\n' || r == '\r' || r >= ' ' || unicode.IsGraphic(r) {
			if utf8.ValidRune(r) {
				builder.WriteRune(r)
			}
		}
	}

	return builder.String()
}
