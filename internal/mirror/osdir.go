package mirror

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
)

// partPrefix marks in-progress writes. They never collide with derived
// document names, which end in "-<id>" or "-<id>.pdf".
const partPrefix = ".fcmirror-part-"

// osDir is a Dir confined to one host directory through os.Root, so
// entry names can never escape it.
type osDir struct {
	root *os.Root
	path string
}

// OpenDir opens an existing host directory as a Dir.
func OpenDir(path string) (Dir, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, mirrorerrors.New(mirrorerrors.ErrCodeInvalidPath, "invalid destination path", err).
			WithDetail("path", path)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, classify(err, abs)
	}
	return &osDir{root: root, path: abs}, nil
}

func (d *osDir) Name() string { return filepath.Base(d.path) }

func (d *osDir) Path() string { return d.path }

func (d *osDir) Close() error { return d.root.Close() }

func (d *osDir) Directory(name string, create bool) (Dir, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	full := filepath.Join(d.path, name)

	info, err := d.root.Lstat(name)
	switch {
	case err == nil && !info.IsDir():
		return nil, conflict(full, "exists and is not a directory")
	case err == nil:
	case !errors.Is(err, fs.ErrNotExist):
		return nil, classify(err, full)
	case !create:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, full)
	default:
		if err := d.root.Mkdir(name, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return nil, classify(err, full)
		}
	}

	sub, err := d.root.OpenRoot(name)
	if err != nil {
		return nil, classify(err, full)
	}
	return &osDir{root: sub, path: full}, nil
}

func (d *osDir) File(name string, create bool) (File, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	full := filepath.Join(d.path, name)

	info, err := d.root.Lstat(name)
	switch {
	case err == nil && !info.Mode().IsRegular():
		return nil, conflict(full, "exists and is not a regular file")
	case err == nil:
	case !errors.Is(err, fs.ErrNotExist):
		return nil, classify(err, full)
	case !create:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, full)
	default:
		f, err := d.root.OpenFile(name, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, classify(err, full)
		}
		if err := f.Close(); err != nil {
			return nil, classify(err, full)
		}
	}

	return &osFile{dir: d, name: name}, nil
}

func (d *osDir) Target(name string) (File, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	full := filepath.Join(d.path, name)

	info, err := d.root.Lstat(name)
	switch {
	case err == nil && !info.Mode().IsRegular():
		return nil, conflict(full, "exists and is not a regular file")
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, classify(err, full)
	}
	return &osFile{dir: d, name: name}, nil
}

func (d *osDir) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := d.root.Remove(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, filepath.Join(d.path, name))
		}
		return classify(err, filepath.Join(d.path, name))
	}
	return nil
}

type osFile struct {
	dir  *osDir
	name string
}

func (f *osFile) Name() string { return f.name }

func (f *osFile) CreateWritable() (Writable, error) {
	tmp, err := tempName()
	if err != nil {
		return nil, mirrorerrors.InternalError("cannot name temporary file", err)
	}
	out, err := f.dir.root.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, classify(err, filepath.Join(f.dir.path, f.name))
	}
	return &osWritable{file: f, tmp: tmp, out: out}, nil
}

// osWritable writes to a sibling temporary file and renames it over the
// target on Close.
type osWritable struct {
	file *osFile
	tmp  string
	out  *os.File
	done bool
}

func (w *osWritable) Write(p []byte) (int, error) {
	n, err := w.out.Write(p)
	if err != nil {
		return n, classify(err, filepath.Join(w.file.dir.path, w.file.name))
	}
	return n, nil
}

func (w *osWritable) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	target := filepath.Join(w.file.dir.path, w.file.name)
	if err := w.out.Sync(); err != nil {
		_ = w.out.Close()
		_ = w.file.dir.root.Remove(w.tmp)
		return classify(err, target)
	}
	if err := w.out.Close(); err != nil {
		_ = w.file.dir.root.Remove(w.tmp)
		return classify(err, target)
	}
	if err := w.file.dir.root.Rename(w.tmp, w.file.name); err != nil {
		_ = w.file.dir.root.Remove(w.tmp)
		return classify(err, target)
	}
	return nil
}

func (w *osWritable) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.out.Close()
	if err := w.file.dir.root.Remove(w.tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return classify(err, filepath.Join(w.file.dir.path, w.tmp))
	}
	return nil
}

func tempName() (string, error) {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return partPrefix + hex.EncodeToString(b[:]), nil
}

// IsPartial reports whether name is an in-progress write left behind by
// an interrupted run.
func IsPartial(name string) bool {
	return strings.HasPrefix(name, partPrefix)
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return mirrorerrors.New(mirrorerrors.ErrCodeInvalidPath, fmt.Sprintf("invalid entry name %q", name), nil)
	}
	return nil
}

func conflict(path, msg string) error {
	return mirrorerrors.New(mirrorerrors.ErrCodeFSConflict, fmt.Sprintf("%s %s", path, msg), nil).
		WithDetail("path", path).
		WithSuggestion("Move the conflicting entry out of the destination and run again")
}

// classify turns a host filesystem error into a structured error.
func classify(err error, path string) error {
	code := mirrorerrors.ErrCodeFSConflict
	switch {
	case errors.Is(err, fs.ErrNotExist):
		code = mirrorerrors.ErrCodeFileNotFound
	case errors.Is(err, fs.ErrPermission):
		code = mirrorerrors.ErrCodeFilePermission
	case isDiskFull(err):
		code = mirrorerrors.ErrCodeDiskFull
	}
	return mirrorerrors.New(code, err.Error(), err).WithDetail("path", path)
}
