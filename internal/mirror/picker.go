package mirror

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
)

var (
	// ErrCancelled is returned when the user backs out of choosing a
	// destination.
	ErrCancelled = mirrorerrors.New(mirrorerrors.ErrCodeGrantCancelled, "destination selection cancelled", nil)

	// ErrDenied is returned when the chosen destination cannot be written.
	ErrDenied = mirrorerrors.New(mirrorerrors.ErrCodeGrantDenied, "write access to the destination was denied", nil)
)

// Picker obtains a writable root directory from the user.
type Picker interface {
	Pick(ctx context.Context) (Dir, error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context) (Dir, error)

// Pick calls f.
func (f PickerFunc) Pick(ctx context.Context) (Dir, error) { return f(ctx) }

// PathPicker picks a host directory, creating it if needed.
type PathPicker struct {
	// Path is the destination. When empty, Ask must supply one.
	Path string
	// Ask prompts for the destination with Path as suggestion. It returns
	// ErrCancelled when the user backs out.
	Ask func(ctx context.Context, suggested string) (string, error)
	// AlwaysAsk prompts even when Path is set, as a confirmation.
	AlwaysAsk bool
}

// Pick resolves the destination, makes sure it exists and is writable,
// and opens it.
func (p PathPicker) Pick(ctx context.Context) (Dir, error) {
	path := p.Path
	if path == "" || p.AlwaysAsk {
		if p.Ask == nil {
			return nil, mirrorerrors.ValidationError("no destination directory given", nil).
				WithSuggestion("Pass --dest or set download.destination")
		}
		answer, err := p.Ask(ctx, path)
		if err != nil {
			return nil, err
		}
		path = strings.TrimSpace(answer)
		if path == "" {
			return nil, ErrCancelled
		}
	}

	path = expandHome(path)
	if err := os.MkdirAll(path, 0o755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, denied(path, err)
		}
		return nil, classify(err, path)
	}
	if err := probeWritable(path); err != nil {
		return nil, err
	}

	return OpenDir(path)
}

func probeWritable(path string) error {
	f, err := os.CreateTemp(path, partPrefix+"probe-")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return denied(path, err)
		}
		return classify(err, path)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func denied(path string, cause error) error {
	return mirrorerrors.New(mirrorerrors.ErrCodeGrantDenied, ErrDenied.Message, cause).
		WithDetail("path", path)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
