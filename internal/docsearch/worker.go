package docsearch

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
)

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	// BatchSize is the number of matches per response. Default 20.
	BatchSize int
	// CacheSize bounds the number of remembered query results. Zero
	// disables caching.
	CacheSize int
	// InboxSize is the request channel buffer. Default 16.
	InboxSize int
	Logger    *slog.Logger
}

// Worker owns a Store and serves requests one at a time on its own
// goroutine. Its store is reachable only through messages.
type Worker struct {
	store     *Store
	cache     *lru.Cache[string, []Match]
	batchSize int
	inbox     chan Request
	outbox    chan Response
	logger    *slog.Logger
}

// NewWorker creates a Worker. Call Run to start serving.
func NewWorker(opts WorkerOptions) (*Worker, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 16
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	w := &Worker{
		store:     NewStore(),
		batchSize: opts.BatchSize,
		inbox:     make(chan Request, opts.InboxSize),
		outbox:    make(chan Response, opts.InboxSize),
		logger:    opts.Logger,
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, []Match](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create query cache: %w", err)
		}
		w.cache = cache
	}
	return w, nil
}

// Inbox is where requests are sent. Closing it stops the worker once the
// queued requests are served.
func (w *Worker) Inbox() chan<- Request {
	return w.inbox
}

// Outbox carries responses in the order they were produced. It is closed
// when Run returns.
func (w *Worker) Outbox() <-chan Response {
	return w.outbox
}

// Run serves requests until the inbox is closed, ctx is cancelled, or a
// malformed request arrives. A request of unknown type is a protocol
// error: the worker stops and returns it.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.outbox)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-w.inbox:
			if !ok {
				w.logger.Debug("search worker stopped", slog.Int("documents", w.store.Len()))
				return nil
			}
			if err := w.handle(ctx, req); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, req Request) error {
	switch req.Type {
	case TypeAddDocuments:
		w.store.Add(req.Documents...)
		if w.cache != nil {
			w.cache.Purge()
		}
		w.logger.Debug("documents added",
			slog.Int("added", len(req.Documents)),
			slog.Int("total", w.store.Len()))
		return nil

	case TypeQuery:
		return w.query(ctx, req.Session, req.Query)

	default:
		err := mirrorerrors.New(mirrorerrors.ErrCodeProtocol,
			fmt.Sprintf("unknown message type %q", req.Type), nil).
			WithDetail("session", fmt.Sprint(req.Session))
		w.logger.Error("search worker protocol violation", mirrorerrors.LogAttr(err))
		return err
	}
}

// query streams the batches for term, then the end-of-stream sentinel.
func (w *Worker) query(ctx context.Context, session uint64, term string) error {
	var sendErr error
	send := func(batch []Match) bool {
		sendErr = w.send(ctx, Response{Type: TypeMatches, Session: session, Results: batch})
		return sendErr == nil
	}

	if cached, ok := w.lookup(term); ok {
		for _, batch := range Batches(cached, w.batchSize) {
			if !send(batch) {
				return sendErr
			}
		}
	} else {
		var all []Match
		complete := Query(w.store.All(), term, w.batchSize, func(batch []Match) bool {
			all = append(all, batch...)
			return send(batch)
		})
		if !complete {
			return sendErr
		}
		if w.cache != nil && term != "" {
			w.cache.Add(term, all)
		}
		w.logger.Debug("query scanned",
			slog.Uint64("session", session),
			slog.Int("documents", w.store.Len()),
			slog.Int("matches", len(all)))
	}

	return w.send(ctx, Response{Type: TypeMatches, Session: session})
}

func (w *Worker) lookup(term string) ([]Match, bool) {
	if w.cache == nil || term == "" {
		return nil, false
	}
	return w.cache.Get(term)
}

func (w *Worker) send(ctx context.Context, resp Response) error {
	select {
	case w.outbox <- resp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
