package docsearch

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind_NonOverlappingPositions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		term    string
		want    []int
	}{
		{"repeat", "abcabc", "abc", []int{0, 3}},
		{"overlap candidates", "aaaa", "aa", []int{0, 2}},
		{"no match", "hello", "xyz", nil},
		{"case sensitive", "Abc abc", "abc", []int{4}},
		{"term longer than content", "ab", "abc", nil},
		{"rune offsets", "héllo héllo", "llo", []int{2, 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := Find([]Document{{Number: 1, Content: tt.content}}, tt.term)

			var got []int
			for _, m := range matches {
				assert.Equal(t, TypeMatch, m.Type)
				assert.Equal(t, tt.term, m.Query)
				assert.Equal(t, 1, m.Number)
				got = append(got, m.Position)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFind_EmptyTermMatchesNothing(t *testing.T) {
	assert.Empty(t, Find([]Document{{Number: 1, Content: "abc"}}, ""))
}

func TestFind_DocumentOrderThenScanOrder(t *testing.T) {
	docs := []Document{
		{Number: 2, Content: "x.x"},
		{Number: 1, Content: "x"},
		{Number: 2, Content: "x"},
	}

	matches := Find(docs, "x")

	require.Len(t, matches, 4)
	assert.Equal(t, []int{2, 2, 1, 2}, []int{matches[0].Number, matches[1].Number, matches[2].Number, matches[3].Number})
	assert.Equal(t, []int{0, 2, 0, 0}, []int{matches[0].Position, matches[1].Position, matches[2].Position, matches[3].Position})
}

func TestQuery_BatchesFullThenPartial(t *testing.T) {
	// Given: 45 occurrences spread over three pages
	docs := []Document{
		{Number: 1, Content: strings.Repeat("ab ", 15)},
		{Number: 2, Content: strings.Repeat("ab ", 15)},
		{Number: 3, Content: strings.Repeat("ab ", 15)},
	}

	// When: querying with the default batch size
	var sizes []int
	complete := Query(docs, "ab", DefaultBatchSize, func(batch []Match) bool {
		sizes = append(sizes, len(batch))
		return true
	})

	// Then: two full batches and a partial one
	assert.True(t, complete)
	assert.Equal(t, []int{20, 20, 5}, sizes)
}

func TestQuery_ExactMultipleHasNoEmptyBatch(t *testing.T) {
	docs := []Document{{Number: 1, Content: strings.Repeat("z", 40)}}

	var sizes []int
	Query(docs, "z", 20, func(batch []Match) bool {
		sizes = append(sizes, len(batch))
		return true
	})

	assert.Equal(t, []int{20, 20}, sizes)
}

func TestQuery_StopsWhenEmitDeclines(t *testing.T) {
	docs := []Document{{Number: 1, Content: strings.Repeat("z", 100)}}

	calls := 0
	complete := Query(docs, "z", 10, func([]Match) bool {
		calls++
		return false
	})

	assert.False(t, complete)
	assert.Equal(t, 1, calls)
}

func TestQuery_BatchesAreIndependent(t *testing.T) {
	docs := []Document{{Number: 1, Content: strings.Repeat("q", 4)}}

	var batches [][]Match
	Query(docs, "q", 2, func(batch []Match) bool {
		batches = append(batches, batch)
		return true
	})

	require.Len(t, batches, 2)
	assert.Equal(t, 0, batches[0][0].Position)
	assert.Equal(t, 2, batches[1][0].Position)
}

func TestBatches_ReturnsCopies(t *testing.T) {
	matches := []Match{{Position: 0}, {Position: 1}, {Position: 2}}

	for _, size := range []int{0, 2} {
		for _, batch := range Batches(matches, size) {
			batch[0].Position = 99
		}
	}

	assert.Equal(t, []int{0, 1, 2}, []int{matches[0].Position, matches[1].Position, matches[2].Position})
}

func TestBatches(t *testing.T) {
	matches := make([]Match, 7)
	for i := range matches {
		matches[i].Position = i
	}

	tests := []struct {
		size int
		want []int
	}{
		{3, []int{3, 3, 1}},
		{7, []int{7}},
		{10, []int{7}},
		{0, []int{7}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.size), func(t *testing.T) {
			var sizes []int
			for _, b := range Batches(matches, tt.size) {
				sizes = append(sizes, len(b))
			}
			assert.Equal(t, tt.want, sizes)
		})
	}

	assert.Nil(t, Batches(nil, 3))
}

func TestStore_AppendOnlyKeepsDuplicates(t *testing.T) {
	s := NewStore()
	s.Add(Document{Number: 1, Content: "a"})
	s.Add(Document{Number: 1, Content: "a"}, Document{Number: 2, Content: "b"})

	assert.Equal(t, 3, s.Len())
	assert.Len(t, Find(s.All(), "a"), 2)
}

func TestResponse_DoneAndRequestString(t *testing.T) {
	end := Response{Type: TypeMatches, Session: 4}
	data := Response{Type: TypeMatches, Session: 4, Results: []Match{{Type: TypeMatch}}}

	assert.True(t, end.Done())
	assert.False(t, data.Done())
	assert.Equal(t, "query(session=3, \"abc\")", Request{Type: TypeQuery, Session: 3, Query: "abc"}.String())
}
