package docsearch

import "fmt"

// MessageType tags worker messages.
type MessageType string

const (
	// TypeAddDocuments appends documents to the worker's store.
	TypeAddDocuments MessageType = "add-documents"
	// TypeQuery starts a scan for Request.Query.
	TypeQuery MessageType = "query"
	// TypeMatches carries a batch of results, or none at end of stream.
	TypeMatches MessageType = "matches"
	// TypeMatch tags a single result.
	TypeMatch MessageType = "match"
)

// Request is a message to the worker.
type Request struct {
	Type MessageType `json:"type"`
	// Session correlates the responses to a query.
	Session   uint64     `json:"session,omitempty"`
	Documents []Document `json:"documents,omitempty"`
	Query     string     `json:"query,omitempty"`
}

// Response is a message from the worker. A nil Results is the end of the
// session's stream; data batches are never empty.
type Response struct {
	Type    MessageType `json:"type"`
	Session uint64      `json:"session"`
	Results []Match     `json:"results"`
}

// Done reports whether r is the end-of-stream sentinel.
func (r Response) Done() bool {
	return r.Results == nil
}

func (r Request) String() string {
	switch r.Type {
	case TypeAddDocuments:
		return fmt.Sprintf("%s(%d documents)", r.Type, len(r.Documents))
	case TypeQuery:
		return fmt.Sprintf("%s(session=%d, %q)", r.Type, r.Session, r.Query)
	default:
		return fmt.Sprintf("%s(session=%d)", r.Type, r.Session)
	}
}
