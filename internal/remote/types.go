package remote

// DirectoryRef is a child entry of a collection node.
type DirectoryRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Node is one level of a collection tree as returned by the collection
// endpoint. DocumentCount is the recursive total and only meaningful for
// the root level.
type Node struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	DocumentCount int            `json:"document_count"`
	DocumentsURI  string         `json:"documents_uri"`
	Directories   []DirectoryRef `json:"directories"`
}

// DocumentRef is a document entry from a documents listing.
type DocumentRef struct {
	ID       int    `json:"id"`
	URL      string `json:"file_url"`
	PagesURI string `json:"pages_uri"`
	Title    string `json:"title"`
}

// Page is the extracted text of one document page.
type Page struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// listMeta is the cursor block of a paginated listing.
type listMeta struct {
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	TotalCount int     `json:"total_count"`
	Next       *string `json:"next"`
	Previous   *string `json:"previous"`
}

type listPage[T any] struct {
	Meta    listMeta `json:"meta"`
	Objects []T      `json:"objects"`
}
