package datalens

import "unicode/utf8"

// MaxErrorBodyBytes caps raw response bodies embedded in error details.
const MaxErrorBodyBytes = 2000

const truncationMarker = "...(truncated)"

// TruncateUTF8 shortens s to at most maxBytes bytes without splitting a
// multi-byte rune, appending a visible marker when anything was cut.
func TruncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	end := maxBytes
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end] + truncationMarker
}
