// Package remotetest serves a fake filingcabinet API for tests.
package remotetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Aman-CERP/fcmirror/internal/remote"
)

// CollectionPath is the collection endpoint served by Server.
const CollectionPath = "/api/documentcollection/1/"

// Doc is a document served by Server.
type Doc struct {
	ID int
	// File is the last path segment of the file URL, e.g. "a.pdf". Names
	// may repeat across documents.
	File    string
	Content []byte
	// Status overrides the file response status when non-zero.
	Status int
	Pages  []remote.Page
}

// Dir is a collection level. The root Dir's ID is ignored.
type Dir struct {
	ID        int
	Name      string
	Documents []Doc
	Children  []*Dir
}

// Server is an httptest server with collection, document, page and file
// endpoints backed by an in-memory tree.
type Server struct {
	*httptest.Server

	// Root, PageSize and CountOverride are read under the server lock;
	// change them through Update once the server is running.
	Root *Dir
	// PageSize is the listing page size (default 2).
	PageSize int
	// CountOverride replaces the root document_count when non-negative.
	CountOverride int

	mu       sync.Mutex
	requests []*http.Request
}

// New starts a Server for root and registers its shutdown with t.
func New(t testing.TB, root *Dir) *Server {
	t.Helper()
	s := &Server{Root: root, PageSize: 2, CountOverride: -1}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// FilePath returns the file endpoint path of a document. The id is part
// of the path so documents sharing a file name stay distinct.
func FilePath(id int, name string) string {
	return fmt.Sprintf("/files/%d/%s", id, name)
}

// CollectionURL returns the absolute collection endpoint URL.
func (s *Server) CollectionURL() string {
	return s.URL + CollectionPath
}

// Requests returns a copy of the received requests.
func (s *Server) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

// FileRequests counts requests to the file endpoint.
func (s *Server) FileRequests() int {
	n := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r.URL.Path, "/files/") {
			n++
		}
	}
	return n
}

// Update mutates the served tree or settings while no request is being
// handled.
func (s *Server) Update(fn func(s *Server)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r)

	switch {
	case r.URL.Path == CollectionPath:
		s.serveCollection(w, r)
	case r.URL.Path == "/api/document/":
		s.serveDocuments(w, r)
	case r.URL.Path == "/api/page/":
		s.servePages(w, r)
	case strings.HasPrefix(r.URL.Path, "/files/"):
		s.serveFile(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) lookup(directory string) *Dir {
	if directory == "-" || directory == "" {
		return s.Root
	}
	id, err := strconv.Atoi(directory)
	if err != nil {
		return nil
	}
	var find func(d *Dir) *Dir
	find = func(d *Dir) *Dir {
		for _, c := range d.Children {
			if c.ID == id {
				return c
			}
			if f := find(c); f != nil {
				return f
			}
		}
		return nil
	}
	return find(s.Root)
}

func count(d *Dir) int {
	n := len(d.Documents)
	for _, c := range d.Children {
		n += count(c)
	}
	return n
}

func (s *Server) serveCollection(w http.ResponseWriter, r *http.Request) {
	dir := s.lookup(r.URL.Query().Get("directory"))
	if dir == nil {
		http.NotFound(w, r)
		return
	}

	total := count(s.Root)
	if s.CountOverride >= 0 {
		total = s.CountOverride
	}
	children := make([]remote.DirectoryRef, 0, len(dir.Children))
	for _, c := range dir.Children {
		children = append(children, remote.DirectoryRef{ID: c.ID, Name: c.Name})
	}

	writeJSON(w, map[string]any{
		"id":             1,
		"name":           dir.Name,
		"document_count": total,
		"documents_uri":  "/api/document/?collection=1",
		"directories":    children,
	})
}

func (s *Server) serveDocuments(w http.ResponseWriter, r *http.Request) {
	dir := s.lookup(r.URL.Query().Get("directory"))
	if dir == nil {
		http.NotFound(w, r)
		return
	}

	objects := make([]map[string]any, 0, len(dir.Documents))
	for _, d := range dir.Documents {
		objects = append(objects, map[string]any{
			"id":        d.ID,
			"title":     d.File,
			"file_url":  FilePath(d.ID, d.File),
			"pages_uri": fmt.Sprintf("/api/page/?document=%d", d.ID),
		})
	}
	s.writePage(w, r, objects)
}

func (s *Server) servePages(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.URL.Query().Get("document"))
	doc := s.findDoc(func(d Doc) bool { return d.ID == id })
	if doc == nil {
		http.NotFound(w, r)
		return
	}

	objects := make([]map[string]any, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		objects = append(objects, map[string]any{
			"document": doc.ID,
			"number":   p.Number,
			"content":  p.Content,
		})
	}
	s.writePage(w, r, objects)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	idPart, name, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/files/"), "/")
	id, err := strconv.Atoi(idPart)
	if !ok || err != nil {
		http.NotFound(w, r)
		return
	}
	doc := s.findDoc(func(d Doc) bool { return d.ID == id })
	if doc == nil || doc.File != name {
		http.NotFound(w, r)
		return
	}
	if doc.Status != 0 {
		w.WriteHeader(doc.Status)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = w.Write(doc.Content)
}

func (s *Server) findDoc(match func(Doc) bool) *Doc {
	var walk func(d *Dir) *Doc
	walk = func(d *Dir) *Doc {
		for i := range d.Documents {
			if match(d.Documents[i]) {
				return &d.Documents[i]
			}
		}
		for _, c := range d.Children {
			if f := walk(c); f != nil {
				return f
			}
		}
		return nil
	}
	return walk(s.Root)
}

// writePage serves objects[offset:offset+PageSize] with a relative next
// link, the way the real API paginates.
func (s *Server) writePage(w http.ResponseWriter, r *http.Request, objects []map[string]any) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	end := min(offset+s.PageSize, len(objects))
	if offset > end {
		offset = end
	}

	var next any
	if end < len(objects) {
		q := r.URL.Query()
		q.Set("offset", strconv.Itoa(end))
		next = r.URL.Path + "?" + q.Encode()
	}

	writeJSON(w, map[string]any{
		"meta": map[string]any{
			"limit":       s.PageSize,
			"offset":      offset,
			"total_count": len(objects),
			"next":        next,
			"previous":    nil,
		},
		"objects": objects[offset:end],
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
