package output

import (
	"fmt"
	"strings"
	"unicode"
)

// Hit is one search match prepared for display.
type Hit struct {
	Term     string `json:"term"`
	Page     int    `json:"page"`
	Position int    `json:"position"`
	Snippet  string `json:"snippet,omitempty"`
}

// Snippet returns the text around a match of termLen runes starting at
// rune offset pos, with up to radius runes of context on each side.
// Whitespace runs collapse to one space; cut ends are marked with "…".
func Snippet(content string, pos, termLen, radius int) string {
	runes := []rune(content)
	if pos < 0 || pos > len(runes) {
		return ""
	}

	start := max(pos-radius, 0)
	end := min(pos+termLen+radius, len(runes))

	var sb strings.Builder
	if start > 0 {
		sb.WriteString("…")
	}
	space := false
	for _, r := range runes[start:end] {
		if unicode.IsSpace(r) {
			if !space {
				sb.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		sb.WriteRune(r)
	}
	if end < len(runes) {
		sb.WriteString("…")
	}
	return sb.String()
}

// Hits prints one line per hit.
func (w *Writer) Hits(hits []Hit) {
	for _, h := range hits {
		if h.Snippet != "" {
			_, _ = fmt.Fprintf(w.out, "  p.%-4d @%-6d %s\n", h.Page, h.Position, h.Snippet)
		} else {
			_, _ = fmt.Fprintf(w.out, "  p.%-4d @%d\n", h.Page, h.Position)
		}
	}
}

// SearchSummary prints the totals for one term.
func (w *Writer) SearchSummary(term string, matches, pages int) {
	switch matches {
	case 0:
		w.Statusf("🔍", "%q: no matches", term)
	case 1:
		w.Statusf("🔍", "%q: 1 match on 1 page", term)
	default:
		w.Statusf("🔍", "%q: %d matches on %d %s", term, matches, pages, plural(pages, "page"))
	}
}

// Truncated notes that only limit of total hits were printed.
func (w *Writer) Truncated(limit, total int) {
	if total > limit {
		w.Statusf("", "… %d more not shown (raise --limit)", total-limit)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
