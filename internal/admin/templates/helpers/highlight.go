package helpers

import (
	"strings"
	"unicode/utf8"
)

// HighlightSegment is a run of text, marked when it matches the search term.
type HighlightSegment struct {
	Text  string
	Match bool
}

// HighlightSegments splits text around case-insensitive occurrences of term so the
// table can wrap matches in <mark>.
func HighlightSegments(text, term string) []HighlightSegment {
	if text == "" {
		return nil
	}
	term = strings.TrimSpace(term)
	width := utf8.RuneCountInString(term)
	if width == 0 {
		return []HighlightSegment{{Text: text}}
	}

	var (
		segments []HighlightSegment
		start    int
	)
	for i := 0; i < len(text); {
		end := advanceRunes(text, i, width)
		if end > 0 && strings.EqualFold(text[i:end], term) {
			if start < i {
				segments = append(segments, HighlightSegment{Text: text[start:i]})
			}
			segments = append(segments, HighlightSegment{Text: text[i:end], Match: true})
			i, start = end, end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	if start < len(text) {
		segments = append(segments, HighlightSegment{Text: text[start:]})
	}
	return segments
}

// advanceRunes returns the byte offset n runes after from, or -1 when text is shorter.
func advanceRunes(text string, from, n int) int {
	offset := from
	for ; n > 0; n-- {
		if offset >= len(text) {
			return -1
		}
		_, size := utf8.DecodeRuneInString(text[offset:])
		offset += size
	}
	return offset
}
