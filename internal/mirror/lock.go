package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
)

// DestinationLock is a cross-process lock on one destination directory.
// The lock file lives in a separate state directory so the mirror itself
// stays free of bookkeeping files.
type DestinationLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDestinationLock returns the lock for destination, stored under
// lockDir.
func NewDestinationLock(lockDir, destination string) *DestinationLock {
	sum := sha256.Sum256([]byte(filepath.Clean(destination)))
	path := filepath.Join(lockDir, "dest-"+hex.EncodeToString(sum[:8])+".lock")
	return &DestinationLock{path: path, flock: flock.New(path)}
}

// TryLock acquires the lock without blocking. It returns false when
// another process holds it.
func (l *DestinationLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Safe to call when not locked.
func (l *DestinationLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *DestinationLock) Path() string {
	return l.path
}

// LockedPicker holds a DestinationLock on the picked directory until the
// returned Dir is closed.
type LockedPicker struct {
	Picker  Picker
	LockDir string
}

// Pick picks through the wrapped Picker and locks the result. A
// destination locked elsewhere fails with ErrCodeDestinationBusy.
func (p LockedPicker) Pick(ctx context.Context) (Dir, error) {
	dir, err := p.Picker.Pick(ctx)
	if err != nil {
		return nil, err
	}

	lock := NewDestinationLock(p.LockDir, dir.Path())
	ok, err := lock.TryLock()
	if err != nil {
		_ = dir.Close()
		return nil, mirrorerrors.IOError("cannot lock destination", err).WithDetail("lock", lock.Path())
	}
	if !ok {
		_ = dir.Close()
		return nil, mirrorerrors.New(mirrorerrors.ErrCodeDestinationBusy,
			"another fcmirror run is writing to "+dir.Path(), nil).
			WithDetail("lock", lock.Path()).
			WithSuggestion("Wait for the other download to finish")
	}

	return &lockedDir{Dir: dir, lock: lock}, nil
}

type lockedDir struct {
	Dir
	lock *DestinationLock
}

func (d *lockedDir) Close() error {
	err := d.Dir.Close()
	if uerr := d.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}
