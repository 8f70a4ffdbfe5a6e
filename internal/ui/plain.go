package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// PlainRenderer writes one line per event, for CI and pipes.
type PlainRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	last   float64
	errors []ErrorEvent
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output, last: -1}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(context.Context) error {
	return nil
}

// UpdateProgress implements Renderer. Events without a file only print
// when the percentage changed or a message is present.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case event.CurrentFile != "":
		note := ""
		if event.Skipped {
			note = " (exists)"
		}
		_, _ = fmt.Fprintf(r.out, "[%s] %3.0f%% %s%s\n", event.Stage.Icon(), event.Percent, event.CurrentFile, note)
	case event.Message != "":
		_, _ = fmt.Fprintf(r.out, "[%s] %s\n", event.Stage.Icon(), event.Message)
	case event.Percent != r.last:
		_, _ = fmt.Fprintf(r.out, "[%s] %3.0f%%\n", event.Stage.Icon(), event.Percent)
	}
	r.last = event.Percent
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}
	if event.File != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.File, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch stats.Outcome {
	case "completed":
		_, _ = fmt.Fprintf(r.out, "Complete: %d downloaded, %d skipped (%s) in %s\n",
			stats.Downloaded, stats.Skipped, FormatBytes(stats.Bytes), formatDuration(stats.Duration))
	case "failed":
		_, _ = fmt.Fprintf(r.out, "Failed after %d downloaded, %d skipped: %v\n",
			stats.Downloaded, stats.Skipped, stats.Err)
	default:
		_, _ = fmt.Fprintln(r.out, "Not started: no destination selected")
		return
	}
	if stats.Destination != "" {
		_, _ = fmt.Fprintf(r.out, "Destination: %s\n", stats.Destination)
	}
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

var _ Renderer = (*PlainRenderer)(nil)
