// Package downloader mirrors a remote document collection tree onto a
// local directory.
//
// A run is sequential and depth-first: the documents of a level in server
// order, then each sub-collection in server order. Files already present
// are skipped, so an interrupted run can simply be started again.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"path"
	"strconv"
	"time"

	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
	"github.com/Aman-CERP/fcmirror/internal/mirror"
	"github.com/Aman-CERP/fcmirror/internal/remote"
)

// Remote is the subset of *remote.Client the downloader needs.
type Remote interface {
	FetchCollection(ctx context.Context, collectionURL string, scope remote.Scope) (*remote.Node, error)
	Documents(ctx context.Context, documentsURI string, scope remote.Scope) iter.Seq2[remote.DocumentRef, error]
	Open(ctx context.Context, fileURL string) (*remote.Download, error)
}

// Outcome is the terminal state of a run.
type Outcome int

const (
	// OutcomeNotStarted means no destination was obtained; nothing was
	// written.
	OutcomeNotStarted Outcome = iota
	// OutcomeCompleted means the whole tree was mirrored.
	OutcomeCompleted
	// OutcomeFailed means the walk aborted; the mirror may be partial.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotStarted:
		return "not_started"
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats counts what a run did.
type Stats struct {
	// Total is the root's document count, the denominator of progress.
	Total int
	// Processed counts documents handled, downloaded or skipped.
	Processed   int
	Downloaded  int
	Skipped     int
	Empty       int
	Directories int
	Bytes       int64
	Duration    time.Duration
}

// Result is returned by Start.
type Result struct {
	Outcome Outcome
	// Reason explains OutcomeNotStarted.
	Reason      error
	Destination string
	Stats       Stats
}

// Downloader mirrors one collection. A Downloader runs one Start at a time.
type Downloader struct {
	remote        Remote
	picker        mirror.Picker
	collectionURL string

	progress   ProgressFunc
	onDocument func(DocumentEvent)
	logger     *slog.Logger
	maxDepth   int

	// per-run state
	totalKnown  bool
	emitted     bool
	lastPercent float64
	visited     map[int]struct{}
	stats       Stats
}

// New creates a Downloader for the collection at collectionURL.
func New(r Remote, picker mirror.Picker, collectionURL string, opts ...Option) *Downloader {
	d := &Downloader{
		remote:        r,
		picker:        picker,
		collectionURL: collectionURL,
		logger:        slog.Default(),
		maxDepth:      DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start asks the picker for a destination and mirrors the whole
// collection into it.
//
// If no destination is obtained (cancelled, denied, busy or any other
// picker failure) Start returns OutcomeNotStarted with the cause in
// Reason and a nil error. A failure during the walk is returned as the
// error with OutcomeFailed; files written so far stay on disk. On success
// the progress callback has received 100 exactly once.
func (d *Downloader) Start(ctx context.Context) (Result, error) {
	dir, err := d.picker.Pick(ctx)
	if err != nil {
		d.logger.Info("download not started",
			slog.String("collection", d.collectionURL),
			mirrorerrors.LogAttr(err))
		return Result{Outcome: OutcomeNotStarted, Reason: err}, nil
	}
	defer func() {
		if cerr := dir.Close(); cerr != nil {
			d.logger.Warn("closing destination failed", slog.String("error", cerr.Error()))
		}
	}()

	started := time.Now()
	d.logger.Info("download started",
		slog.String("collection", d.collectionURL),
		slog.String("destination", dir.Path()))

	err = d.DownloadDirectory(ctx, dir, nil)
	d.stats.Duration = time.Since(started)

	result := Result{Destination: dir.Path(), Stats: d.stats}
	if err != nil {
		result.Outcome = OutcomeFailed
		d.logger.Error("download failed",
			slog.String("collection", d.collectionURL),
			slog.Int("processed", d.stats.Processed),
			mirrorerrors.LogAttr(err))
		return result, err
	}

	if !d.emitted || d.lastPercent < 100 {
		d.emit(100)
	}

	result.Outcome = OutcomeCompleted
	d.logger.Info("download completed",
		slog.String("destination", dir.Path()),
		slog.Int("downloaded", d.stats.Downloaded),
		slog.Int("skipped", d.stats.Skipped),
		slog.Int64("bytes", d.stats.Bytes),
		slog.Duration("duration", d.stats.Duration))
	return result, nil
}

// Stats returns the counters of the current or last run.
func (d *Downloader) Stats() Stats {
	return d.stats
}

func (d *Downloader) reset() {
	d.totalKnown = false
	d.emitted = false
	d.lastPercent = 0
	d.visited = make(map[int]struct{})
	d.stats = Stats{}
}

// DownloadDirectory mirrors one collection level into dir and recurses
// into its sub-collections. A nil ref addresses the root, whose document
// count becomes the progress denominator; a root call starts a fresh run
// with new counters and an empty visited set.
func (d *Downloader) DownloadDirectory(ctx context.Context, dir mirror.Dir, ref *remote.DirectoryRef) error {
	if ref == nil || d.visited == nil {
		d.reset()
	}
	return d.walk(ctx, dir, ref, "", 0)
}

func (d *Downloader) walk(ctx context.Context, dir mirror.Dir, ref *remote.DirectoryRef, rel string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	scope := remote.RootScope()
	if ref != nil {
		if _, seen := d.visited[ref.ID]; seen {
			d.logger.Warn("sub-collection already visited, skipping",
				slog.Int("directory", ref.ID),
				slog.String("name", ref.Name))
			return nil
		}
		d.visited[ref.ID] = struct{}{}
		scope = remote.DirectoryScope(ref.ID)
	}
	if depth > d.maxDepth {
		return mirrorerrors.New(mirrorerrors.ErrCodeTreeTooDeep,
			fmt.Sprintf("collection nesting exceeds %d levels", d.maxDepth), nil).
			WithDetail("path", rel)
	}

	node, err := d.remote.FetchCollection(ctx, d.collectionURL, scope)
	if err != nil {
		return err
	}

	if ref == nil && !d.totalKnown {
		d.stats.Total = node.DocumentCount
		d.totalKnown = true
		d.logger.Info("collection size", slog.Int("documents", node.DocumentCount))
	}

	if node.DocumentsURI == "" {
		d.logger.Warn("collection level has no documents listing", slog.String("path", rel))
	} else {
		for doc, err := range d.remote.Documents(ctx, node.DocumentsURI, scope) {
			if err != nil {
				return err
			}
			if err := d.downloadDocument(ctx, dir, doc, rel); err != nil {
				return err
			}
		}
	}

	for _, child := range node.Directories {
		if err := d.descend(ctx, dir, child, rel, depth); err != nil {
			return err
		}
	}
	return nil
}

func (d *Downloader) descend(ctx context.Context, dir mirror.Dir, child remote.DirectoryRef, rel string, depth int) error {
	sub, err := mirror.SubDirectory(dir, child.Name)
	if err != nil {
		return err
	}
	defer sub.Close()

	d.stats.Directories++
	return d.walk(ctx, sub, &child, path.Join(rel, sub.Name()), depth+1)
}

// downloadDocument writes one document unless a file of its derived name
// already exists. Skipped documents count toward progress.
func (d *Downloader) downloadDocument(ctx context.Context, dir mirror.Dir, doc remote.DocumentRef, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.URL == "" {
		return mirrorerrors.New(mirrorerrors.ErrCodeBadResponse, "document has no file URL", nil).
			WithDetail("document", strconv.Itoa(doc.ID))
	}

	name := mirror.FileName(doc.URL, doc.ID)
	event := DocumentEvent{Path: path.Join(rel, name), ID: doc.ID}

	_, err := dir.File(name, false)
	switch {
	case err == nil:
		event.Skipped = true
		d.stats.Skipped++
		d.logger.Debug("document already present", slog.String("path", event.Path))
	case errors.Is(err, mirror.ErrNotFound):
		n, err := d.fetchInto(ctx, dir, name, doc)
		if err != nil {
			return err
		}
		event.Bytes = n
		d.stats.Downloaded++
		d.stats.Bytes += n
		if n == 0 {
			d.stats.Empty++
			d.logger.Warn("downloaded document is empty",
				slog.String("path", event.Path),
				slog.String("url", doc.URL))
		} else {
			d.logger.Debug("document downloaded", slog.String("path", event.Path), slog.Int64("bytes", n))
		}
	default:
		return err
	}

	d.stats.Processed++
	if d.onDocument != nil {
		d.onDocument(event)
	}
	d.report()
	return nil
}

// fetchInto streams the document into name and returns the byte count.
// The content goes to a temporary file that is renamed over name only
// once complete, so an interrupted fetch never leaves name behind.
func (d *Downloader) fetchInto(ctx context.Context, dir mirror.Dir, name string, doc remote.DocumentRef) (n int64, err error) {
	f, err := dir.Target(name)
	if err != nil {
		return 0, err
	}

	dl, err := d.remote.Open(ctx, doc.URL)
	if err != nil {
		return 0, err
	}
	defer dl.Body.Close()

	err = mirror.WriteFile(f, func(w io.Writer) error {
		var cerr error
		n, cerr = io.Copy(w, dl.Body)
		if cerr != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if cerr != nil {
			return mirrorerrors.New(mirrorerrors.ErrCodeDownloadFailed, "download interrupted", cerr).
				WithDetail("url", doc.URL)
		}
		return nil
	})
	return n, err
}

// report emits the current percentage. Nothing is emitted before the
// total is known; values are clamped to 100 and 100 is emitted once.
func (d *Downloader) report() {
	if !d.totalKnown {
		return
	}

	percent := 100.0
	if d.stats.Total > 0 {
		percent = float64(d.stats.Processed) / float64(d.stats.Total) * 100
	}
	if percent > 100 {
		if d.lastPercent < 100 {
			d.logger.Warn("server reported fewer documents than listed",
				slog.Int("reported", d.stats.Total),
				slog.Int("processed", d.stats.Processed))
		}
		percent = 100
	}
	if d.emitted && percent >= 100 && d.lastPercent >= 100 {
		return
	}
	d.emit(percent)
}

func (d *Downloader) emit(percent float64) {
	d.emitted = true
	d.lastPercent = percent
	if d.progress != nil {
		d.progress(percent)
	}
}
