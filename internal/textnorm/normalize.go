package textnorm

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// fixups handle fragments the byte-level repair cannot recover. Each
// replacement is shorter than its pattern so Normalize reaches a fixed point.
var fixups = []string{
	"\ufeff", "",
	"â€", "\"",
	"Â ", " ",
}

var fixupReplacer = strings.NewReplacer(fixups...)

// Normalize repairs mojibake in s. It returns s unchanged when no known
// marker is present.
func Normalize(s string) string {
	out, _ := Repair(s)
	return out
}

// Repair is Normalize that also reports whether anything changed. Byte-level
// repair runs to a fixed point before any fixup, so nested encodings are
// peeled completely before a fixup can consume one of their fragments.
func Repair(s string) (string, bool) {
	changed := false
	for {
		next := untilStable(untilStable(s, repairSequences), fixupReplacer.Replace)
		if next == s {
			return s, changed
		}
		s = next
		changed = true
	}
}

func untilStable(s string, step func(string) string) string {
	for {
		next := step(s)
		if next == s {
			return s
		}
		s = next
	}
}

// HasMojibake reports whether s contains a sequence Normalize would rewrite.
func HasMojibake(s string) bool {
	_, changed := Repair(s)
	return changed
}

func repairSequences(s string) string {
	if !hasLeadCandidate(s) {
		return s
	}
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(runes); {
		if r, n := decodeAt(runes[i:]); n > 0 {
			b.WriteRune(r)
			i += n
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	return b.String()
}

func hasLeadCandidate(s string) bool {
	for _, r := range s {
		if r >= 0xC2 && r <= 0xF4 {
			return true
		}
	}
	return false
}

// decodeAt interprets the leading runes as single bytes and returns the rune
// they spell in UTF-8 along with how many runes were consumed.
func decodeAt(rs []rune) (rune, int) {
	lead, ok := toByte(rs[0])
	if !ok || lead < 0xC2 || lead > 0xF4 {
		return 0, 0
	}
	size := 2
	switch {
	case lead >= 0xF0:
		size = 4
	case lead >= 0xE0:
		size = 3
	}
	if len(rs) < size {
		return 0, 0
	}
	buf := make([]byte, 1, 4)
	buf[0] = lead
	for _, r := range rs[1:size] {
		c, ok := toByte(r)
		if !ok || c < 0x80 || c > 0xBF {
			return 0, 0
		}
		buf = append(buf, c)
	}
	r, n := utf8.DecodeRune(buf)
	if r == utf8.RuneError || n != size {
		return 0, 0
	}
	return r, size
}

// toByte maps a rune back to the byte a Latin-1 or Windows-1252 decoder
// would have produced it from.
func toByte(r rune) (byte, bool) {
	if r < 0x100 {
		return byte(r), true
	}
	return charmap.Windows1252.EncodeRune(r)
}
