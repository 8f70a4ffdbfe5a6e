// Package mirror materializes a remote collection tree as local
// directories and files.
//
// Handles are scoped: every Dir returned by OpenDir or Dir.Directory must
// be closed by the caller, and every Writable must be closed (committed)
// or aborted.
package mirror

import (
	"errors"
	"io"
)

// ErrNotFound is returned by lookups without creation when the entry does
// not exist. Any other lookup error is a real failure.
var ErrNotFound = errors.New("mirror: entry not found")

// Dir is a handle to a local directory.
type Dir interface {
	// Name is the directory's own name.
	Name() string
	// Path is the directory's location on the host filesystem.
	Path() string
	// Directory returns the child directory name, creating it when
	// create is set. Without create a missing entry yields ErrNotFound.
	Directory(name string, create bool) (Dir, error)
	// File returns the child file name. With create a missing entry is
	// created empty.
	File(name string, create bool) (File, error)
	// Target returns a handle for writing the child file name without
	// creating it. The name appears only when a Writable is committed.
	Target(name string) (File, error)
	// Remove deletes the child entry name.
	Remove(name string) error
	Close() error
}

// File is a handle to a local file.
type File interface {
	Name() string
	// CreateWritable starts a replacement of the file's content. Nothing
	// is visible under the file's name until the Writable is closed.
	CreateWritable() (Writable, error)
}

// Writable receives a file's new content.
type Writable interface {
	io.Writer
	// Close commits the written content.
	Close() error
	// Abort discards the written content. It is a no-op after Close.
	Abort() error
}

// SubDirectory returns the child directory for a remote collection name,
// reusing it when present. name is sanitized first.
func SubDirectory(parent Dir, name string) (Dir, error) {
	name = SanitizeName(name)

	dir, err := parent.Directory(name, false)
	if err == nil {
		return dir, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return parent.Directory(name, true)
}

// WriteFile streams content into f through a Writable, committing only
// if fn succeeds. The Writable is finalized on every path.
func WriteFile(f File, fn func(w io.Writer) error) (err error) {
	w, err := f.CreateWritable()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = w.Abort()
			panic(r)
		}
		if err != nil {
			_ = w.Abort()
		}
	}()

	if err = fn(w); err != nil {
		return err
	}
	return w.Close()
}
