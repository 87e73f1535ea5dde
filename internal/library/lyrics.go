package library

import "strings"

// ValidLyrics reports whether text is usable lyrics: not blank and not one of
// the "null"/"undefined" sentinels some upstream writers store instead of
// leaving the field empty.
func ValidLyrics(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	switch strings.ToLower(trimmed) {
	case "null", "undefined":
		return false
	}
	return true
}
