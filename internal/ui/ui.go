// Package ui provides terminal progress display for mirror runs and the
// interactive destination prompt.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage is a phase of a mirror run.
type Stage int

const (
	// StageResolving fetches the collection root.
	StageResolving Stage = iota
	// StageDownloading walks the tree and writes files.
	StageDownloading
	// StageComplete means the run has ended, successfully or not.
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageResolving:
		return "Resolving"
	case StageDownloading:
		return "Downloading"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the stage tag used in plain output.
func (s Stage) Icon() string {
	switch s {
	case StageResolving:
		return "RESOLVE"
	case StageDownloading:
		return "GET"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent is a progress update.
type ProgressEvent struct {
	Stage Stage
	// Percent is overall completion in [0,100].
	Percent float64
	// CurrentFile is the last processed document, relative to the
	// destination.
	CurrentFile string
	// Skipped marks CurrentFile as already present locally.
	Skipped bool
	// Bytes written for CurrentFile.
	Bytes   int64
	Message string
}

// ErrorEvent is a problem worth showing without aborting the display.
type ErrorEvent struct {
	File   string
	Err    error
	IsWarn bool
}

// CompletionStats summarizes a finished run.
type CompletionStats struct {
	Outcome     string
	Destination string
	Total       int
	Downloaded  int
	Skipped     int
	Empty       int
	Directories int
	Bytes       int64
	Duration    time.Duration
	// Err is the failure, for outcome "failed".
	Err error
}

// Renderer displays a mirror run.
type Renderer interface {
	Start(ctx context.Context) error
	UpdateProgress(event ProgressEvent)
	AddError(event ErrorEvent)
	// Complete shows the final summary.
	Complete(stats CompletionStats)
	Stop() error
}

// Config configures a Renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	// Collection is shown in the TUI header.
	Collection string
}

// ConfigOption modifies a Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) { c.ForcePlain = force }
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) { c.NoColor = noColor }
}

// WithCollection sets the collection URL shown in the header.
func WithCollection(url string) ConfigOption {
	return func(c *Config) { c.Collection = url }
}

// NewConfig creates a Config writing to output.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer picks the TUI renderer for interactive terminals and the
// plain renderer for pipes, CI, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}

	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether NO_COLOR is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI reports whether the process runs under a CI system.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
