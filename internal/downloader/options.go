package downloader

import "log/slog"

// DefaultMaxDepth bounds sub-collection nesting.
const DefaultMaxDepth = 64

// ProgressFunc receives the overall completion percentage in [0,100].
type ProgressFunc func(percent float64)

// DocumentEvent describes one processed document.
type DocumentEvent struct {
	// Path is the file's location relative to the destination root,
	// slash separated.
	Path    string
	ID      int
	Skipped bool
	Bytes   int64
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(d *Downloader) { d.progress = fn }
}

// WithDocumentHook is called after each document, downloaded or skipped,
// before the progress callback.
func WithDocumentHook(fn func(DocumentEvent)) Option {
	return func(d *Downloader) { d.onDocument = fn }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) { d.logger = logger }
}

// WithMaxDepth bounds sub-collection nesting. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(d *Downloader) {
		if depth > 0 {
			d.maxDepth = depth
		}
	}
}
