package textutil

import (
	"strings"
	"unicode"
)

const maxFileNameRunes = 100

// CleanFileName reduces a title to word characters, whitespace and hyphens,
// joins words with underscores and caps the result at 100 characters.
// It returns "" when nothing usable remains.
func CleanFileName(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), "_")
	cleaned = strings.Trim(cleaned, "_")
	if runes := []rune(cleaned); len(runes) > maxFileNameRunes {
		cleaned = string(runes[:maxFileNameRunes])
	}
	return cleaned
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
