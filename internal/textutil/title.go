package textutil

import (
	"strings"
	"unicode"
)

// ExtractTitle returns the text following the first "Title:" marker, up to a
// following "Description:" marker or the end of the line. Matching is case
// insensitive and leading markdown header marks are removed. The boolean is
// false when no non-empty title is present.
func ExtractTitle(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	start := indexFold(text, "title:")
	if start < 0 {
		return "", false
	}
	rest := text[start+len("title:"):]
	if end := indexFold(rest, "description:"); end >= 0 {
		rest = rest[:end]
	}
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	if nl := strings.IndexAny(rest, "\r\n"); nl >= 0 {
		rest = rest[:nl]
	}
	title := strings.TrimSpace(rest)
	title = strings.TrimRight(title, "#")
	title = strings.TrimSpace(strings.TrimLeft(title, "#"))
	if title == "" {
		return "", false
	}
	return title, true
}

// indexFold is strings.Index with ASCII case folding; marker must be
// lowercase ASCII.
func indexFold(s, marker string) int {
	for i := 0; i+len(marker) <= len(s); i++ {
		if asciiEqualFold(s[i:i+len(marker)], marker) {
			return i
		}
	}
	return -1
}

func asciiEqualFold(s, lower string) bool {
	for i := 0; i < len(lower); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != lower[i] {
			return false
		}
	}
	return true
}
