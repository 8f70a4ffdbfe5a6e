package docsearch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	mirrorerrors "github.com/Aman-CERP/fcmirror/internal/errors"
)

// errWorkerStopped finishes sessions still pending when the worker exits.
var errWorkerStopped = mirrorerrors.New(mirrorerrors.ErrCodeWorkerStopped,
	"search worker stopped before the query finished", nil)

// Dispatcher is the single entry point to a Worker. It assigns session
// ids and routes every response to the session that owns it, so
// concurrent searches never see each other's results.
//
// Session callbacks run on the goroutine executing Run. They must not
// call back into the Dispatcher or register callbacks.
type Dispatcher struct {
	inbox  chan<- Request
	outbox <-chan Response
	logger *slog.Logger

	nextID atomic.Uint64

	mu       sync.Mutex
	sessions map[uint64]*Session

	// sendMu guards closing the inbox against in-flight sends.
	sendMu sync.RWMutex
	closed bool

	stopped chan struct{}
}

// NewDispatcher creates a Dispatcher for w. Run must be started for
// sessions to receive anything.
func NewDispatcher(w *Worker, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		inbox:    w.Inbox(),
		outbox:   w.Outbox(),
		logger:   logger,
		sessions: make(map[uint64]*Session),
		stopped:  make(chan struct{}),
	}
}

// Run routes responses until the worker's outbox closes or ctx is done.
// Sessions still pending at that point finish with a worker-stopped
// error.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer func() {
		d.failPending()
		close(d.stopped)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case resp, ok := <-d.outbox:
			if !ok {
				return nil
			}
			d.route(resp)
		}
	}
}

func (d *Dispatcher) route(resp Response) {
	if resp.Type != TypeMatches {
		d.logger.Warn("unexpected response type", slog.String("type", string(resp.Type)))
		return
	}

	d.mu.Lock()
	s, ok := d.sessions[resp.Session]
	if ok && resp.Done() {
		delete(d.sessions, resp.Session)
	}
	d.mu.Unlock()

	if !ok {
		d.logger.Debug("response for unknown session dropped", slog.Uint64("session", resp.Session))
		return
	}
	if resp.Done() {
		s.finish(nil)
		return
	}
	s.deliver(resp.Results)
}

func (d *Dispatcher) failPending() {
	d.mu.Lock()
	pending := d.sessions
	d.sessions = make(map[uint64]*Session)
	d.mu.Unlock()

	for _, s := range pending {
		s.finish(errWorkerStopped)
	}
}

// AddDocuments appends docs to the worker's store. Queries sent after it
// returns see them.
func (d *Dispatcher) AddDocuments(ctx context.Context, docs []Document) error {
	return d.send(ctx, Request{Type: TypeAddDocuments, Documents: docs})
}

// Search starts a query for term and returns its session. The session is
// registered before the request is sent, so no response can be missed.
func (d *Dispatcher) Search(ctx context.Context, term string) (*Session, error) {
	s := newSession(d.nextID.Add(1), term)

	d.mu.Lock()
	d.sessions[s.id] = s
	d.mu.Unlock()

	if err := d.send(ctx, Request{Type: TypeQuery, Session: s.id, Query: term}); err != nil {
		d.Forget(s.id)
		return nil, err
	}
	return s, nil
}

// Forget stops routing to session id. Later responses for it are
// dropped.
func (d *Dispatcher) Forget(id uint64) {
	d.mu.Lock()
	delete(d.sessions, id)
	d.mu.Unlock()
}

// Pending returns the number of sessions awaiting their end of stream.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// Close closes the worker's inbox. The worker finishes queued requests
// and then stops. Close is idempotent.
func (d *Dispatcher) Close() {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.inbox)
	}
}

// Stopped is closed once Run has returned.
func (d *Dispatcher) Stopped() <-chan struct{} {
	return d.stopped
}

func (d *Dispatcher) send(ctx context.Context, req Request) error {
	d.sendMu.RLock()
	defer d.sendMu.RUnlock()

	if d.closed {
		return mirrorerrors.New(mirrorerrors.ErrCodeWorkerStopped,
			fmt.Sprintf("cannot send %s: dispatcher closed", req), nil)
	}

	select {
	case <-d.stopped:
		return errWorkerStopped
	default:
	}

	select {
	case d.inbox <- req:
		return nil
	case <-d.stopped:
		return errWorkerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
