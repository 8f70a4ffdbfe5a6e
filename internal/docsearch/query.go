package docsearch

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// DefaultBatchSize is the number of matches per response message.
const DefaultBatchSize = 20

// Match is one occurrence of a query term.
type Match struct {
	Type   MessageType `json:"type"`
	Query  string      `json:"query"`
	Number int         `json:"number"`
	// Position is the character (rune) offset of the match in the
	// document content.
	Position int `json:"position"`
}

// Find returns every case-sensitive, non-overlapping occurrence of term in
// the documents, in document order then scan order. An empty term matches
// nothing.
func Find(docs []Document, term string) []Match {
	var out []Match
	Query(docs, term, 0, func(batch []Match) bool {
		out = append(out, batch...)
		return true
	})
	return out
}

// Query scans docs for term and calls emit with batches of batchSize
// matches: every full batch as soon as it fills, then one final partial
// batch. Batches are never empty and each is a fresh slice. A batchSize
// below 1 emits everything as a single batch. Scanning stops early when
// emit returns false; Query reports whether it ran to completion.
func Query(docs []Document, term string, batchSize int, emit func([]Match) bool) bool {
	if term == "" {
		return true
	}

	var batch []Match
	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		out := batch
		batch = nil
		return emit(out)
	}

	for _, doc := range docs {
		ok := scan(doc, term, func(m Match) bool {
			batch = append(batch, m)
			if batchSize > 0 && len(batch) == batchSize {
				return flush()
			}
			return true
		})
		if !ok {
			return false
		}
	}
	return flush()
}

// Batches splits matches into consecutive slices of at most size
// elements. A size below 1 yields one batch. Each batch is a copy, so
// changing it leaves matches untouched.
func Batches(matches []Match, size int) [][]Match {
	if len(matches) == 0 {
		return nil
	}
	if size < 1 || size >= len(matches) {
		return [][]Match{slices.Clone(matches)}
	}
	out := make([][]Match, 0, (len(matches)+size-1)/size)
	for start := 0; start < len(matches); start += size {
		end := min(start+size, len(matches))
		out = append(out, slices.Clone(matches[start:end]))
	}
	return out
}

// scan reports each occurrence of term in doc, resuming the forward
// search after the end of the previous match.
func scan(doc Document, term string, found func(Match) bool) bool {
	content := doc.Content
	byteOff, runeOff := 0, 0

	for {
		i := strings.Index(content[byteOff:], term)
		if i < 0 {
			return true
		}
		runeOff += utf8.RuneCountInString(content[byteOff : byteOff+i])
		if !found(Match{Type: TypeMatch, Query: term, Number: doc.Number, Position: runeOff}) {
			return false
		}

		byteOff += i + len(term)
		runeOff += utf8.RuneCountInString(term)
	}
}
