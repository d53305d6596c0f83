package speech

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk is one segment of split text. Sep holds the whitespace that followed
// the segment in the source and is empty after a hard cut.
type Chunk struct {
	Text string
	Sep  string
}

// Split packs sentences greedily into chunks of at most limit runes.
// Sentences end at '.', '!' or '?' followed by whitespace. A sentence longer
// than limit is cut at limit runes and its remainder packed as usual. A
// limit <= 0 disables splitting.
func Split(text string, limit int) []Chunk {
	if text == "" {
		return nil
	}
	if limit <= 0 {
		return []Chunk{{Text: text}}
	}

	parts, seps := sentences(text)
	var (
		out     []Chunk
		cur     strings.Builder
		curLen  int
		pending string
	)
	for i, part := range parts {
		n := utf8.RuneCountInString(part)
		if curLen > 0 {
			if curLen+utf8.RuneCountInString(pending)+n <= limit {
				cur.WriteString(pending)
				cur.WriteString(part)
				curLen += utf8.RuneCountInString(pending) + n
				pending = seps[i]
				continue
			}
			out = append(out, Chunk{Text: cur.String(), Sep: pending})
			cur.Reset()
			curLen = 0
		}
		for utf8.RuneCountInString(part) > limit {
			head, tail := cutRunes(part, limit)
			out = append(out, Chunk{Text: head})
			part = tail
		}
		cur.WriteString(part)
		curLen = utf8.RuneCountInString(part)
		pending = seps[i]
	}
	if curLen > 0 {
		out = append(out, Chunk{Text: cur.String(), Sep: pending})
	}
	return out
}

// Join reassembles chunks produced by Split.
func Join(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
		b.WriteString(c.Sep)
	}
	return b.String()
}

// sentences breaks text after every terminal punctuation mark that is
// followed by whitespace. seps[i] is the whitespace run after parts[i].
func sentences(text string) (parts, seps []string) {
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		end := i
		for i < len(text) {
			next, nsize := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(next) {
				break
			}
			i += nsize
		}
		if i > end {
			parts = append(parts, text[start:end])
			seps = append(seps, text[end:i])
			start = i
		}
	}
	if start < len(text) {
		parts = append(parts, text[start:])
		seps = append(seps, "")
	}
	return parts, seps
}

func cutRunes(s string, n int) (string, string) {
	count := 0
	for idx := range s {
		if count == n {
			return s[:idx], s[idx:]
		}
		count++
	}
	return s, ""
}
