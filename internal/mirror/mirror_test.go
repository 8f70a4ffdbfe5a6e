package mirror

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
)

func openTemp(t *testing.T) Dir {
	t.Helper()
	dir, err := OpenDir(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })
	return dir
}

func TestDirectory_ProbeWithoutCreate(t *testing.T) {
	root := openTemp(t)

	_, err := root.Directory("missing", false)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoDirExists(t, filepath.Join(root.Path(), "missing"))
}

func TestSubDirectory_Idempotent(t *testing.T) {
	// Given: an empty root
	root := openTemp(t)

	// When: materializing the same collection twice
	first, err := SubDirectory(root, "Q1/Q2")
	require.NoError(t, err)
	require.NoError(t, first.Close())
	second, err := SubDirectory(root, "Q1/Q2")
	require.NoError(t, err)
	defer second.Close()

	// Then: one sanitized directory exists
	assert.Equal(t, "Q1_Q2", second.Name())
	entries, err := os.ReadDir(root.Path())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Q1_Q2", entries[0].Name())
}

func TestSubDirectory_FileInTheWayIsConflict(t *testing.T) {
	root := openTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(root.Path(), "Reports"), []byte("x"), 0o644))

	_, err := SubDirectory(root, "Reports")

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, mirrorerrors.ErrCodeFSConflict, mirrorerrors.GetCode(err))
}

func TestFile_ProbeAndCreate(t *testing.T) {
	root := openTemp(t)

	_, err := root.File("a-1.pdf", false)
	assert.ErrorIs(t, err, ErrNotFound)

	f, err := root.File("a-1.pdf", true)
	require.NoError(t, err)
	assert.Equal(t, "a-1.pdf", f.Name())
	assert.FileExists(t, filepath.Join(root.Path(), "a-1.pdf"))

	_, err = root.File("a-1.pdf", false)
	assert.NoError(t, err)
}

func TestTarget_NothingVisibleUntilCommit(t *testing.T) {
	// Given: a write target for a missing file
	root := openTemp(t)
	f, err := root.Target("a-1.pdf")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(root.Path(), "a-1.pdf"))

	// When: content is written but not yet committed
	w, err := f.CreateWritable()
	require.NoError(t, err)
	_, err = w.Write([]byte("%PDF"))
	require.NoError(t, err)

	// Then: the name only appears on commit
	_, err = root.File("a-1.pdf", false)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, w.Close())
	data, err := os.ReadFile(filepath.Join(root.Path(), "a-1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
}

func TestTarget_DirectoryInTheWayIsConflict(t *testing.T) {
	root := openTemp(t)
	require.NoError(t, os.Mkdir(filepath.Join(root.Path(), "a-1.pdf"), 0o755))

	_, err := root.Target("a-1.pdf")

	assert.Equal(t, mirrorerrors.ErrCodeFSConflict, mirrorerrors.GetCode(err))
}

func TestFile_DirectoryInTheWayIsConflict(t *testing.T) {
	root := openTemp(t)
	require.NoError(t, os.Mkdir(filepath.Join(root.Path(), "a-1.pdf"), 0o755))

	_, err := root.File("a-1.pdf", false)

	assert.Equal(t, mirrorerrors.ErrCodeFSConflict, mirrorerrors.GetCode(err))
}

func TestDir_RejectsPathNames(t *testing.T) {
	root := openTemp(t)

	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := root.File(name, true)
		assert.Equal(t, mirrorerrors.ErrCodeInvalidPath, mirrorerrors.GetCode(err), name)
	}
}

func TestWriteFile_CommitsOnSuccess(t *testing.T) {
	root := openTemp(t)
	f, err := root.File("a-1.pdf", true)
	require.NoError(t, err)

	err = WriteFile(f, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader([]byte("%PDF-1.7")))
		return err
	})

	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(root.Path(), "a-1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
	assertNoPartials(t, root.Path())
}

func TestWriteFile_AbortsOnError(t *testing.T) {
	// Given: a file with previous content
	root := openTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(root.Path(), "a-1.pdf"), []byte("old"), 0o644))
	f, err := root.File("a-1.pdf", false)
	require.NoError(t, err)

	// When: the stream fails midway
	boom := errors.New("connection reset")
	err = WriteFile(f, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})

	// Then: the error surfaces, old content stays, no temp file is left
	assert.ErrorIs(t, err, boom)
	data, err := os.ReadFile(filepath.Join(root.Path(), "a-1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	assertNoPartials(t, root.Path())
}

func TestWriteFile_AbortsOnPanic(t *testing.T) {
	root := openTemp(t)
	f, err := root.File("a-1.pdf", true)
	require.NoError(t, err)

	assert.Panics(t, func() {
		_ = WriteFile(f, func(w io.Writer) error { panic("boom") })
	})
	assertNoPartials(t, root.Path())
}

func TestWritable_AbortAfterCloseIsNoop(t *testing.T) {
	root := openTemp(t)
	f, err := root.File("x-1.pdf", true)
	require.NoError(t, err)
	w, err := f.CreateWritable()
	require.NoError(t, err)

	require.NoError(t, w.Close())
	assert.NoError(t, w.Abort())
	assert.NoError(t, w.Close())
}

func TestRemove(t *testing.T) {
	root := openTemp(t)
	_, err := root.File("a-1.pdf", true)
	require.NoError(t, err)

	require.NoError(t, root.Remove("a-1.pdf"))
	assert.ErrorIs(t, root.Remove("a-1.pdf"), ErrNotFound)
}

func TestOpenDir_Missing(t *testing.T) {
	_, err := OpenDir(filepath.Join(t.TempDir(), "nope"))

	assert.Equal(t, mirrorerrors.ErrCodeFileNotFound, mirrorerrors.GetCode(err))
}

func TestPathPicker_CreatesDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "mirror", "reports")

	dir, err := PathPicker{Path: dest}.Pick(context.Background())

	require.NoError(t, err)
	defer dir.Close()
	assert.Equal(t, dest, dir.Path())
	assertNoPartials(t, dest)
}

func TestPathPicker_AsksWhenNoPath(t *testing.T) {
	dest := t.TempDir()
	var suggested string
	p := PathPicker{Ask: func(_ context.Context, s string) (string, error) {
		suggested = s
		return "  " + dest + " ", nil
	}}

	dir, err := p.Pick(context.Background())

	require.NoError(t, err)
	defer dir.Close()
	assert.Empty(t, suggested)
	assert.Equal(t, dest, dir.Path())
}

func TestPathPicker_Cancelled(t *testing.T) {
	p := PathPicker{Path: t.TempDir(), AlwaysAsk: true, Ask: func(context.Context, string) (string, error) {
		return "", ErrCancelled
	}}

	_, err := p.Pick(context.Background())

	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, mirrorerrors.CategoryPermission, mirrorerrors.GetCategory(err))
}

func TestPathPicker_NoPathNoPrompt(t *testing.T) {
	_, err := PathPicker{}.Pick(context.Background())

	assert.Equal(t, mirrorerrors.CategoryValidation, mirrorerrors.GetCategory(err))
}

func TestPathPicker_ReadOnlyDestinationDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	dest := t.TempDir()
	require.NoError(t, os.Chmod(dest, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dest, 0o755) })

	_, err := PathPicker{Path: dest}.Pick(context.Background())

	assert.ErrorIs(t, err, ErrDenied)
}

func TestLockedPicker_SecondRunIsBusy(t *testing.T) {
	// Given: a destination picked and locked
	dest := t.TempDir()
	lockDir := t.TempDir()
	picker := LockedPicker{Picker: PathPicker{Path: dest}, LockDir: lockDir}
	first, err := picker.Pick(context.Background())
	require.NoError(t, err)

	// When: a second run picks the same destination
	_, err = picker.Pick(context.Background())

	// Then: it is refused until the first handle is closed
	assert.Equal(t, mirrorerrors.ErrCodeDestinationBusy, mirrorerrors.GetCode(err))
	require.NoError(t, first.Close())

	again, err := picker.Pick(context.Background())
	require.NoError(t, err)
	assert.NoError(t, again.Close())
	assertNoPartials(t, dest)
}

func TestDestinationLock_UnlockWhenNotLocked(t *testing.T) {
	lock := NewDestinationLock(t.TempDir(), "/tmp/x")

	assert.NoError(t, lock.Unlock())
	assert.Contains(t, filepath.Base(lock.Path()), "dest-")
}

func assertNoPartials(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, IsPartial(e.Name()), "left behind %s", e.Name())
	}
}
