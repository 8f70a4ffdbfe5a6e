// Package docsearch is an incremental literal full-text search over
// loaded document pages.
//
// A Worker goroutine owns the Store and answers requests received over a
// channel. A Dispatcher sends those requests and routes each response to
// the Session that asked for it, keyed by session id.
package docsearch

// Document is the text of one page, identified by its page number.
type Document struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// Store is an append-only, ordered list of documents. Adding the same
// number twice keeps both entries; both are searched. A Store is not safe
// for concurrent use; the Worker owning it is its only user.
type Store struct {
	docs []Document
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Add appends docs in order.
func (s *Store) Add(docs ...Document) {
	s.docs = append(s.docs, docs...)
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	return len(s.docs)
}

// All returns the stored documents in insertion order. The slice must not
// be modified.
func (s *Store) All() []Document {
	return s.docs
}
